package restaurant

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/app/services"
	"moms-kitchen/internal/xpkg/config"
	"moms-kitchen/internal/xpkg/db"
	xerrors "moms-kitchen/internal/xpkg/errors"
	"moms-kitchen/internal/xpkg/logger"

	database "moms-kitchen/internal/restaurant/adapter/db"
)

// Seed imports the default menu into an empty catalog and exits. A catalog that
// already has items is left alone.
func Seed(ctx context.Context, mylog logger.Logger, args []string) error {
	fs := flag.NewFlagSet("seed-menu", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	file := fs.String("file", "", "menu yaml to import instead of the configured seed file")

	if err := fs.Parse(args); err != nil {
		return xerrors.ErrParseCmd
	}
	if *showHelp {
		fs.Usage()
		return xerrors.ErrHelp
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	applyLogLevel(mylog, cfg)

	seedFile := cfg.Menu.SeedFile
	if *file != "" {
		seedFile = *file
	}
	items, err := services.LoadMenu(seedFile)
	if err != nil {
		return fmt.Errorf("read menu: %w", err)
	}

	if err := cfg.Store.Validate(); err != nil {
		return err
	}
	pool, err := db.Start(ctx, cfg.Store, mylog)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrDBConn, err)
	}
	defer pool.Close()

	catalog := services.NewMenuCatalog(database.NewMenuRepo(pool.GetPool(), mylog), nil, cfg.Store.Timeout, mylog)
	log := mylog.Action("seed_menu")
	if err := catalog.SeedDefaults(ctx, items); err != nil {
		if errors.Is(err, core.ErrCatalogNotEmpty) {
			log.Info("Menu already has items, nothing to seed")
			return nil
		}
		log.Error("Failed to seed menu", err)
		return err
	}
	log.Info("Menu seeded", "items", len(items))
	return nil
}
