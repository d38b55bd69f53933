package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fieldops/stockledger/internal/infrastructure/config"
	"github.com/fieldops/stockledger/internal/infrastructure/logger"
	"github.com/fieldops/stockledger/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", defaultMigrationsPath, "Path to migrations directory")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&config.LogConfig{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	migrator, err := migration.NewFromURL(cfg.Database.DSN(), migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Error("Error closing migrator", zap.Error(err))
		}
	}()

	switch command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "steps":
		if len(args) < 2 {
			log.Fatal("steps requires a count, e.g. 'steps 1' or 'steps -1'")
		}
		n, parseErr := strconv.Atoi(args[1])
		if parseErr != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		err = migrator.Steps(n)
	case "version":
		version, dirty, verErr := migrator.Version()
		if verErr != nil {
			log.Fatal("Failed to get version", zap.Error(verErr))
		}
		log.Info("Current migration version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
	case "force":
		if len(args) < 2 {
			log.Fatal("force requires a version, e.g. 'force 3'")
		}
		v, parseErr := strconv.Atoi(args[1])
		if parseErr != nil {
			log.Fatal("Invalid version", zap.String("value", args[1]))
		}
		err = migrator.Force(v)
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("Migration command failed",
			zap.String("command", command),
			zap.Error(err),
		)
	}
}

func printUsage() {
	fmt.Println(`Usage: migrate [flags] <command>

Commands:
  up          Apply all pending migrations
  down        Roll back all migrations
  steps <n>   Apply n migrations (negative rolls back)
  version     Print the current migration version
  force <v>   Set the version without running migrations

Flags:
  -path       Path to migrations directory (default: ./migrations)
  -log-level  Log level (default: info)`)
}
