package notsub

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"moms-kitchen/internal/notsub/adapter/consumer"
	"moms-kitchen/internal/xpkg/config"
	xerrors "moms-kitchen/internal/xpkg/errors"
	"moms-kitchen/internal/xpkg/logger"
)

type params struct {
	configPath string
	cfg        *config.Config
}

// Execute starts the notification subscriber, which prints every order status
// change announced by the boards.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	params, err := parseParams(args)
	if err != nil {
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_parse_completed").Debug("Received params", "config_path", params.configPath)

	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	if params.cfg.Log.Level != "" {
		if err := mylog.SetLevel(params.cfg.Log.Level); err != nil {
			mylog.Action("log_level_invalid").Warn("Keeping the current log level", "error", err.Error())
		}
	}
	mylog.Action("command_validation_completed").Info("Successfully validate params")

	notsub := consumer.NewNotification(newCtx, context.Background(), params.cfg, mylog)

	if err := notsub.Run(); err != nil {
		mylog.Action("notsub_run_failed").Error("Notification subscriber stopped with error", err)
		notsub.Stop(ctx)
		return err
	}
	return notsub.Stop(ctx)
}

// parseParams parse params from terminal
func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("notification-subscriber", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")

	if err := fs.Parse(args); err != nil {
		return nil, xerrors.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, xerrors.ErrHelp
	}

	return &params{
		configPath: *configPath,
	}, nil
}

// validateParams validates params
func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg
	return nil
}
