package restaurant

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"moms-kitchen/internal/restaurant/api/http"
	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/xpkg/config"
	xerrors "moms-kitchen/internal/xpkg/errors"
	"moms-kitchen/internal/xpkg/logger"
)

type params struct {
	boardParams *core.BoardParams
	configPath  string
	cfg         *config.Config
}

// Execute starts the live board: the dashboards, the JSON API and the session
// that keeps the caches in sync with the store.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	params, err := parseParams(args)
	if err != nil {
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}
	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	applyLogLevel(mylog, params.cfg)
	mylog.Action("command_validation_completed").Info("Successfully validate params", "board_id", params.boardParams.BoardID)

	server := http.NewServer(newCtx, context.Background(), params.cfg, params.boardParams, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylog.Action("board_failed").Error("Server failed unexpectedly", err)
			server.Stop(context.Background())
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return server.Stop(context.Background())
	}
}

// parseParams parse params from terminal
func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")

	port := fs.Int("port", 3000, "Port to serve the dashboards on")
	boardID := fs.String("board-id", defaultBoardID(), "Name of this board in status notifications")

	if err := fs.Parse(args); err != nil {
		return nil, xerrors.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, xerrors.ErrHelp
	}

	return &params{
		boardParams: &core.BoardParams{
			Port:    *port,
			BoardID: *boardID,
		},
		configPath: *configPath,
	}, nil
}

// validateParams loads the config and validates params
func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg

	if p := params.boardParams.Port; p <= 0 || p >= 65536 {
		return fmt.Errorf("port must be in [1: 65,535]: %d", p)
	}
	if params.boardParams.BoardID == "" {
		return fmt.Errorf("board id: %w", core.ErrFieldIsEmpty)
	}
	return nil
}

func defaultBoardID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "board-" + uuid.NewString()[:8]
}

func applyLogLevel(mylog logger.Logger, cfg *config.Config) {
	if cfg.Log.Level == "" {
		return
	}
	if err := mylog.SetLevel(cfg.Log.Level); err != nil {
		mylog.Action("log_level_invalid").Warn("Keeping the current log level", "error", err.Error())
	}
}
