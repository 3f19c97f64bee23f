package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"moms-kitchen/internal/notsub"
	"moms-kitchen/internal/restaurant"
	xerrors "moms-kitchen/internal/xpkg/errors"
	"moms-kitchen/internal/xpkg/logger"
)

type runner func(ctx context.Context, mylog logger.Logger, args []string) error

func main() {
	level := os.Getenv("RESTAURANT_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	mylogger, err := logger.New("moms-kitchen", level)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer mylogger.Sync()

	// Global flags for selecting the mode
	fs := flag.NewFlagSet("main", flag.ExitOnError)
	mode := fs.String("mode", "board", "mode to run: board | notification-subscriber | seed-menu")

	// --mode may appear anywhere; every other arg goes to the mode
	modeArgs, remainingArgs := splitMode(os.Args[1:])
	if err := fs.Parse(modeArgs); err != nil {
		mylogger.Action("restaurant_system_failed").Error("Failed to parse flags", err)
		help(fs)
		return
	}
	if *mode == "" {
		mylogger.Action("restaurant_system_failed").Error("Failed to start", xerrors.ErrModeFlag)
		help(fs)
		return
	}

	var (
		run     runner
		service string
	)
	switch *mode {
	case "board", "b":
		run, service = restaurant.Execute, "board"
	case "notification-subscriber", "ns":
		run, service = notsub.Execute, "notification-subscriber"
	case "seed-menu", "seed":
		run, service = restaurant.Seed, "seed-menu"
	default:
		mylogger.Action("restaurant_system_failed").Error("Failed to start", xerrors.ErrUnknownService, "mode", *mode)
		help(fs)
		os.Exit(1)
	}

	l := mylogger.With("mode", service)
	l.Action(service + "_started").Info("Successfully started")
	if err := run(context.Background(), l, remainingArgs); err != nil {
		if errors.Is(err, xerrors.ErrHelp) {
			return
		}
		l.Action(service+"_failed").Error("Mode stopped with error", err)
		mylogger.Sync()
		os.Exit(1)
	}
	l.Action(service + "_completed").Info("Successfully completed")
}

// splitMode separates --mode and its value from the rest of args.
func splitMode(args []string) (modeArgs, rest []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--mode" || arg == "-mode":
			modeArgs = append(modeArgs, arg)
			if i+1 < len(args) {
				modeArgs = append(modeArgs, args[i+1])
				i++
			}
		case strings.HasPrefix(arg, "--mode=") || strings.HasPrefix(arg, "-mode="):
			modeArgs = append(modeArgs, arg)
		default:
			rest = append(rest, arg)
		}
	}
	return modeArgs, rest
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExample:")
	fmt.Println("  ./moms-kitchen --mode=board --port=3000 --config-path=config.yaml")
	fmt.Println("  ./moms-kitchen --mode=seed-menu")
	fmt.Println("  ./moms-kitchen --mode=notification-subscriber")
}
