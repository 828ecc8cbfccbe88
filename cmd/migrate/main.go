package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/liamcoop/shiftrules/internal/config"
	"github.com/liamcoop/shiftrules/internal/logger"
)

func main() {
	var databaseURL string
	var migrationsPath string
	var command string

	flag.StringVar(&databaseURL, "database", "", "Database URL (defaults to config / DATABASE_URL)")
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force, steps")
	flag.Parse()

	if databaseURL == "" {
		cfg, err := config.Load("")
		if err != nil {
			logger.Fatal("failed to load configuration", "error", err)
		}
		databaseURL = cfg.Database.URL
	}

	if databaseURL == "" {
		logger.Fatal("database URL is required, use -database or DATABASE_URL")
	}

	logger.Info("connecting to database", "migrations_path", migrationsPath)

	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		logger.Fatal("failed to create migration instance", "error", err)
	}
	defer m.Close()

	switch command {
	case "up":
		logger.Info("running migrations up")
		report("migrations completed", m.Up())

	case "down":
		logger.Info("rolling back migrations")
		report("rollback completed", m.Down())

	case "steps":
		n := intArg("steps")
		logger.Info("applying migration steps", "steps", n)
		report("steps applied", m.Steps(n))

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migration applied yet")
			return
		}
		if err != nil {
			logger.Fatal("failed to get version", "error", err)
		}
		logger.Info("current version", "version", version, "dirty", dirty)

	case "force":
		version := intArg("force")
		if err := m.Force(version); err != nil {
			logger.Fatal("failed to force version", "error", err)
		}
		logger.Info("forced version", "version", version)

	default:
		logger.Fatal("unknown command (use: up, down, version, force, steps)", "command", command)
	}
}

// report treats ErrNoChange as success
func report(done string, err error) {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run, database is up to date")
		return
	}
	if err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	logger.Info(done)
}

// intArg reads the first positional argument as the command's number
func intArg(command string) int {
	if flag.NArg() < 1 {
		logger.Fatal("command requires a number argument", "command", command)
	}
	n, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		logger.Fatal("invalid number", "command", command, "value", flag.Arg(0), "error", err)
	}
	return n
}
