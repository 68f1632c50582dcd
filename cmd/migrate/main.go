package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/psysupport/psysupport-api/config"
	"github.com/psysupport/psysupport-api/pkg/db"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	path := flag.String("path", db.DefaultMigrationsPath, "migrations source URL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Server.AppEnv,
		ServiceName: "psysupport-migrate",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Database.URL == "" {
		logger.Fatal("DATABASE_URL is required to run migrations")
	}

	fields := []zap.Field{
		zap.String("database", maskDatabaseURL(cfg.Database.URL)),
		zap.String("source", *path),
	}

	if *down > 0 {
		logger.Info("Rolling back database migrations", append(fields, zap.Int("steps", *down))...)
		if err := db.RollbackMigrations(cfg.Database.URL, *path, *down); err != nil {
			logger.Fatal("Failed to roll back migrations", zap.Error(err))
		}
		logger.Info("Rollback completed")
		return
	}

	logger.Info("Starting database migrations", fields...)
	if err := db.RunMigrations(cfg.Database.URL, *path); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed successfully")
}

// maskDatabaseURL hides credentials for logging
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.Redacted()
}
