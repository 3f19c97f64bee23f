package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/xpkg/logger"
)

type SessionDeps struct {
	DB        core.IDB
	MenuRepo  core.IMenuRepo
	OrderRepo core.IOrderRepo
	Feed      core.IFeed
	// Publisher and Notifier are optional.
	Publisher core.IPublisher
	Notifier  core.INotifier
}

type SessionOptions struct {
	Board        BoardOptions
	PollInterval time.Duration
	// PollMenu reloads the menu on every poll tick; used when no push feed is
	// available.
	PollMenu bool
}

// Session owns the caches, the workflow and every background goroutine that
// keeps them fresh. Start it once and Stop it on every exit path.
type Session struct {
	Menu     *MenuCatalog
	Orders   *OrderBoard
	Workflow *OrderWorkflow

	deps  SessionDeps
	opts  SessionOptions
	mylog logger.Logger

	cancel   context.CancelFunc
	g        *errgroup.Group
	stopOnce sync.Once
	stopErr  error
}

func NewSession(deps SessionDeps, opts SessionOptions, mylog logger.Logger) *Session {
	if opts.PollInterval < core.MinPollInterval {
		opts.PollInterval = core.MinPollInterval
	}
	if opts.PollInterval > core.MaxPollInterval {
		opts.PollInterval = core.MaxPollInterval
	}

	board := NewOrderBoard(deps.OrderRepo, deps.Publisher, deps.Notifier, opts.Board, mylog)
	return &Session{
		Menu:     NewMenuCatalog(deps.MenuRepo, deps.Publisher, opts.Board.Timeout, mylog),
		Orders:   board,
		Workflow: NewOrderWorkflow(deps.OrderRepo, board, deps.Publisher, opts.Board.Timeout, mylog),
		deps:     deps,
		opts:     opts,
		mylog:    mylog,
	}
}

// Start performs the initial loads, subscribes to both tables and starts the
// poller. Load failures are logged, not fatal: the poller retries.
func (s *Session) Start(ctx context.Context) error {
	log := s.mylog.Action("session_start")

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.g, ctx = errgroup.WithContext(ctx)

	if err := s.Menu.Load(ctx); err != nil {
		log.Warn("initial menu load failed", "error", err.Error())
	}
	if err := s.Orders.Load(ctx); err != nil {
		log.Warn("initial orders load failed", "error", err.Error())
	}

	if s.deps.Feed != nil {
		s.subscribe(ctx, core.MenuTable, s.Menu.HandleEvent)
		s.subscribe(ctx, core.OrdersTable, s.Orders.HandleEvent)
	}

	s.g.Go(func() error {
		return s.poll(ctx)
	})

	log.Info("session started", "poll_interval", s.opts.PollInterval.String())
	return nil
}

func (s *Session) subscribe(ctx context.Context, table string, handle func(context.Context, dto.ChangeEvent) error) {
	log := s.mylog.Action("feed_subscribe").With("table", table)

	events, err := s.deps.Feed.Subscribe(ctx, table)
	if err != nil {
		log.Error("Failed to subscribe, relying on polling", err)
		return
	}

	s.g.Go(func() error {
		for ev := range events {
			if err := handle(ctx, ev); err != nil {
				log.Warn("change event not applied", "type", string(ev.Type), "error", err.Error())
			}
		}
		if ctx.Err() == nil {
			log.Warn("change feed closed, relying on polling")
		}
		return nil
	})
}

// poll reloads the orders unconditionally on every tick.
func (s *Session) poll(ctx context.Context) error {
	t := time.NewTicker(s.opts.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := s.Orders.Load(ctx); err != nil && ctx.Err() == nil {
				s.mylog.Action("poll_failed").Debug("orders poll failed", "error", err.Error())
			}
			if s.opts.PollMenu {
				if err := s.Menu.Load(ctx); err != nil && ctx.Err() == nil {
					s.mylog.Action("poll_failed").Debug("menu poll failed", "error", err.Error())
				}
			}
		}
	}
}

// Stop cancels background work, waits for it and releases the feed, the
// notifier and the store. It is safe to call more than once.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		log := s.mylog.Action("session_stop")

		var errs []error
		if s.cancel != nil {
			s.cancel()
		}
		if s.deps.Feed != nil {
			if err := s.deps.Feed.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.g != nil {
			if err := s.g.Wait(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.deps.Notifier != nil {
			if err := s.deps.Notifier.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.deps.DB != nil {
			if err := s.deps.DB.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		s.stopErr = errors.Join(errs...)
		if s.stopErr != nil {
			log.Error("Session stopped with errors", s.stopErr)
			return
		}
		log.Info("session stopped")
	})
	return s.stopErr
}
