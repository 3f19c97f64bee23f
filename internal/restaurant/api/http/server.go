package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"moms-kitchen/internal/restaurant/api/http/handle"
	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/app/services"
	"moms-kitchen/internal/xpkg/config"
	"moms-kitchen/internal/xpkg/db"
	"moms-kitchen/internal/xpkg/logger"

	brokermessage "moms-kitchen/internal/restaurant/adapter/broker_message"
	database "moms-kitchen/internal/restaurant/adapter/db"
	"moms-kitchen/internal/restaurant/adapter/feed"
)

var ErrServerClosed = errors.New("Server closed")

type Server struct {
	router      *gin.Engine
	cfg         *config.Config
	srv         *http.Server
	boardParams *core.BoardParams
	mylog       logger.Logger
	db          core.IDB
	session     *services.Session
	ctx         context.Context
	appCtx      context.Context
	mu          sync.Mutex

	// streamsDone is closed on shutdown to end open event streams.
	streamsDone chan struct{}
	closeOnce   sync.Once
}

func NewServer(ctx, appCtx context.Context, cfg *config.Config, boardParams *core.BoardParams, mylog logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handle.RequestID())
	router.Use(handle.Logger(mylog))

	return &Server{
		ctx:         ctx,
		appCtx:      appCtx,
		cfg:         cfg,
		boardParams: boardParams,
		mylog:       mylog,
		router:      router,
		streamsDone: make(chan struct{}),
	}
}

// Run connects to the store and the feed, starts the session and serves the
// dashboards. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	session, err := s.initializeSession()
	if err != nil {
		mylog.Action("session_init_failed").Error("Failed to initialize session", err)
		return err
	}
	s.session = session

	if err := s.session.Start(s.appCtx); err != nil {
		mylog.Action("session_start_failed").Error("Failed to start session", err)
		return err
	}

	s.Configure()

	s.mu.Lock()
	s.srv = s.newHTTPServer()
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.boardParams.Port, "board_id", s.boardParams.BoardID, "feed", s.cfg.Feed.Driver)
	mylog.Info("server is running")
	return s.startHTTPServer()
}

func (s *Server) newHTTPServer() *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.boardParams.Port),
		Handler:           s.router,
		ReadHeaderTimeout: core.WaitTime * time.Second,
	}
	srv.RegisterOnShutdown(s.closeStreams)
	return srv
}

func (s *Server) closeStreams() {
	s.closeOnce.Do(func() { close(s.streamsDone) })
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
// The session is stopped even when the HTTP server does not shut down cleanly.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")
	s.closeStreams()

	var errs []error
	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if s.session != nil {
		if err := s.session.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("session stop: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// initializeSession wires the store, the feed and the notifier. Only an unknown
// feed driver is fatal. A store or broker that is missing or unreachable
// leaves the board running degraded until the poller gets through.
func (s *Server) initializeSession() (*services.Session, error) {
	deps := services.SessionDeps{}

	pool := s.openStore()
	if pool == nil {
		deps.DB = database.Unavailable{}
		deps.MenuRepo = database.Unavailable{}
		deps.OrderRepo = database.Unavailable{}
	} else {
		deps.DB = pool
		deps.MenuRepo = database.NewMenuRepo(pool.GetPool(), s.mylog)
		deps.OrderRepo = database.NewOrderRepo(pool.GetPool(), s.mylog)
	}
	s.db = deps.DB

	var mb *brokermessage.RabbitMQ
	if s.cfg.Feed.Driver == feed.DriverRabbitMQ || s.cfg.Notifications.Enabled {
		var err error
		mb, err = brokermessage.New(s.appCtx, s.cfg.RMQ, s.mylog)
		if err != nil {
			s.mylog.Action("mb_unreachable").Warn("Message broker is unreachable, running without it", "error", err.Error())
		} else {
			s.mylog.Action("mb_connected").Info("Successful message broker connection")
			if s.cfg.Notifications.Enabled {
				deps.Notifier = mb
			}
		}
	}

	var pgPool *pgxpool.Pool
	if pool != nil {
		pgPool = pool.GetPool()
	}
	f, err := s.openFeed(pgPool, mb)
	if err != nil {
		deps.DB.Close()
		if mb != nil {
			mb.Close()
		}
		return nil, err
	}
	deps.Feed = f
	if p, ok := f.(core.IPublisher); ok {
		deps.Publisher = p
	}

	opts := services.SessionOptions{
		Board: services.BoardOptions{
			BoardID:      s.boardParams.BoardID,
			PatchUpdates: s.cfg.Sync.PatchUpdates,
			Timeout:      s.cfg.Store.Timeout,
		},
		PollInterval: s.cfg.Sync.PollInterval,
		PollMenu:     isNone(f),
	}
	return services.NewSession(deps, opts, s.mylog), nil
}

// openStore returns nil when the store is not configured or its URL is
// unusable. An unreachable store still gets a pool that dials on demand.
func (s *Server) openStore() *db.DB {
	if err := s.cfg.Store.Validate(); err != nil {
		s.mylog.Action("store_not_configured").Warn("Remote store is not configured, running degraded", "error", err.Error())
		return nil
	}

	pool, err := db.Start(s.appCtx, s.cfg.Store, s.mylog)
	if err == nil {
		s.mylog.Action("db_connected").Info("Successful database connection")
		return pool
	}
	s.mylog.Action("db_unreachable").Warn("Remote store is unreachable, polling until it answers", "error", err.Error())

	pool, err = db.Open(s.appCtx, s.cfg.Store, s.mylog)
	if err != nil {
		s.mylog.Action("store_unusable").Warn("Remote store cannot be opened, running degraded", "error", err.Error())
		return nil
	}
	return pool
}

// openFeed falls back to polling alone when the selected feed cannot connect.
func (s *Server) openFeed(pool *pgxpool.Pool, mb *brokermessage.RabbitMQ) (core.IFeed, error) {
	f, err := feed.New(s.appCtx, s.cfg, pool, mb, s.mylog)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, core.ErrUnknownFeed) {
		return nil, err
	}
	s.mylog.Action("feed_unreachable").Warn("Change feed is unreachable, relying on polling", "feed", s.cfg.Feed.Driver, "error", err.Error())
	return feed.NewNone(), nil
}

func isNone(f core.IFeed) bool {
	_, ok := f.(feed.None)
	return ok
}

// Configure sets up the dashboard views and the JSON API.
func (s *Server) Configure() {
	menuHandler := handle.NewMenuHandler(s.session.Menu, s.cfg.Menu.SeedFile, s.mylog)
	orderHandler := handle.NewOrderHandler(s.session.Orders, s.session.Workflow, s.mylog)
	viewHandler := handle.NewViewHandler(s.session.Menu, s.session.Orders, s.db, s.cfg.Restaurant, s.mylog)
	eventsHandler := handle.NewEventsHandler(s.session.Menu, s.session.Orders, s.streamsDone, s.mylog)

	s.router.GET("/", viewHandler.Portal())
	s.router.GET("/kitchen", viewHandler.Kitchen())
	s.router.GET("/billing", viewHandler.Billing())
	s.router.GET("/settings", viewHandler.Settings())
	s.router.GET("/health", viewHandler.Health())

	api := s.router.Group("/api")
	{
		menu := api.Group("/menu")
		menu.GET("", menuHandler.List())
		menu.POST("", menuHandler.Create())
		menu.POST("/seed", menuHandler.Seed())
		menu.PUT("/:id", menuHandler.Update())
		menu.DELETE("/:id", menuHandler.Delete())

		orders := api.Group("/orders")
		orders.GET("", orderHandler.List())
		orders.POST("", orderHandler.Create())
		orders.PUT("/:id/status", orderHandler.UpdateStatus())
		orders.POST("/:id/advance", orderHandler.Advance())
		orders.PUT("/:id/payment", orderHandler.UpdatePayment())
		orders.DELETE("/:id", orderHandler.Cancel())

		api.GET("/tracker", orderHandler.Tracker())
		api.GET("/events", eventsHandler.Stream())
	}

	s.router.NoRoute(viewHandler.Home())
}
