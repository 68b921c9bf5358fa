package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/medorders-backend/pkg/config"
	"github.com/angelmondragon/medorders-backend/pkg/db"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
	"github.com/angelmondragon/medorders-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	cmd      string
	dir      string
	embedded bool
	name     string
	version  string
}

func main() {
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into the binary instead of -dir")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	src := migrate.Disk(opts.dir)
	if opts.embedded {
		src = migrate.Embedded()
	}
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": opts.cmd, "source": src.String()})

	// create and validate never touch config or the database
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			exit(ctx, logg, fmt.Errorf("missing -name for create"))
		}
		if opts.embedded {
			exit(ctx, logg, fmt.Errorf("create writes to -dir; drop -embedded"))
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			exit(ctx, logg, fmt.Errorf("create migration: %w", err))
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := src.Validate(); err != nil {
			exit(ctx, logg, fmt.Errorf("migration validation failed: %w", err))
		}
		fmt.Println("migration validation passed:", src)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		exit(ctx, logg, fmt.Errorf("load config: %w", err))
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.Store.Driver})

	if err := runWithDB(ctx, cfg, logg, src, opts); err != nil {
		exit(ctx, logg, err)
	}
}

func runWithDB(ctx context.Context, cfg *config.Config, logg *logger.Logger, src migrate.Source, opts options) error {
	if cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("goose migrations target postgres; %s=%s builds its schema with model auto-migration", config.EnvStoreDriver, cfg.Store.Driver)
	}
	dbClient, err := db.New(ctx, cfg.Store.Driver, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}

	logg.Info(ctx, "migrate ready")
	switch opts.cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, src, opts.cmd)
	case "version":
		if opts.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, src, opts.version)
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
}

func exit(ctx context.Context, logg *logger.Logger, err error) {
	logg.Error(ctx, "migrate failed", err)
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
