package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	"github.com/angelmondragon/partnerhub-backend/pkg/db"
	"github.com/angelmondragon/partnerhub-backend/pkg/instance"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|models")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// create and validate only touch the filesystem.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Static:      map[string]string{"env": cfg.App.Env, "instance": instance.GetID()},
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": opts.cmd, "dir": opts.dir})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	// goose files are Postgres-only; SQLite schemas come from the models.
	if opts.cmd == "models" || cfg.FeatureFlags.UseSQLite {
		if err := migrate.AutoMigrateModels(dbClient.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "schema migrated from models")
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}

	switch opts.cmd {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
	case "version":
		if opts.version == "" {
			return errors.New("missing -version")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	default:
		return fmt.Errorf("unknown command %q", opts.cmd)
	}
	if err != nil {
		return err
	}
	logg.Info(ctx, "migration command finished")
	return nil
}
