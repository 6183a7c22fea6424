package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nucleon/receipts/internal/infrastructure/config"
	"github.com/nucleon/receipts/internal/infrastructure/ledger"
	"github.com/nucleon/receipts/internal/infrastructure/logger"
	"github.com/nucleon/receipts/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	// Parse flags
	var (
		csvPath  string
		logLevel string
	)

	flag.StringVar(&csvPath, "csv", "", "CSV ledger to import (default: ledger.path from configuration)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
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

	dsn := cfg.Ledger.DSN
	switch cfg.Ledger.Driver {
	case config.LedgerDriverSQLite:
		dsn = cfg.Ledger.Path
	case config.LedgerDriverPostgres:
	default:
		log.Fatal("Ledger driver has no database to migrate",
			zap.String("driver", cfg.Ledger.Driver),
			zap.String("hint", "set RECEIPTS_LEDGER_DRIVER to sqlite or postgres"))
	}

	log.Info("Ledger migration started",
		zap.String("command", command),
		zap.String("driver", cfg.Ledger.Driver))

	db, err := persistence.NewDatabase(persistence.Config{
		Driver:   cfg.Ledger.Driver,
		DSN:      dsn,
		LogLevel: logLevel,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	store := ledger.NewGormLedger(db.DB, log)

	switch command {
	case "up":
		if err := store.Migrate(ctx); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Ledger schema is up to date", zap.Int("schema_version", ledger.SchemaVersion))

	case "import":
		if err := store.Migrate(ctx); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		if csvPath == "" {
			csvPath = cfg.Ledger.Path
		}
		src := ledger.NewCSVLedger(csvPath, ledger.WithLogger(log), ledger.WithLocation(cfg.App.Location()))
		stats, err := ledger.Copy(ctx, src, store)
		if err != nil {
			log.Fatal("Import failed", zap.Error(err), zap.Int("copied", stats.Copied))
		}
		log.Info("CSV ledger imported",
			zap.String("csv", csvPath),
			zap.Int("read", stats.Read),
			zap.Int("copied", stats.Copied),
			zap.Int("duplicates", stats.Duplicates))

	case "count":
		records, err := store.Records(ctx)
		if err != nil {
			log.Fatal("Failed to read ledger", zap.Error(err))
		}
		log.Info("Ledger rows", zap.Int("count", len(records)))

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Ledger database tool

Usage:
  migrate [flags] <command>

Commands:
  up        Create or update the receipt_ledger table
  import    Copy rows from a CSV ledger into the database, skipping known receipt numbers
  count     Print the number of ledger rows

Flags:
  -csv string        CSV ledger to import (default: ledger.path from configuration)
  -log-level string  Log level (debug, info, warn, error) (default "info")

The database is selected by RECEIPTS_LEDGER_DRIVER (sqlite or postgres)
together with RECEIPTS_LEDGER_PATH or RECEIPTS_LEDGER_DSN.`)
}
