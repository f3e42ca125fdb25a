package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"ripsnc/internal/config"
	"ripsnc/internal/logger"
)

const usage = "Usage: migrate [-path dir] [up|down|steps N|version]"

func main() {
	path := flag.String("path", "db/migrations", "directory holding the SQL migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewZapLogger(&cfg.Log, cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if flag.NArg() < 1 {
		fmt.Println(usage)
		os.Exit(1)
	}

	m, err := migrate.New("file://"+*path, cfg.DB.DSN())
	if err != nil {
		log.Fatal("failed to create migrate instance", zap.Error(err))
	}
	defer m.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("migration up failed", zap.Error(err))
		}
		log.Info("migrations applied")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("migration down failed", zap.Error(err))
		}
		log.Info("migrations reverted")

	case "steps":
		if flag.NArg() < 2 {
			log.Fatal("steps requires a number argument")
		}
		n, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			log.Fatal("invalid steps argument", zap.String("arg", flag.Arg(1)))
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("migration steps failed", zap.Int("steps", n), zap.Error(err))
		}
		log.Info("migration steps applied", zap.Int("steps", n))

	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatal("failed to get version", zap.Error(err))
		}
		fmt.Printf("version: %d, dirty: %v\n", version, dirty)

	default:
		fmt.Printf("unknown command: %s\n%s\n", cmd, usage)
		os.Exit(1)
	}
}
