package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nucleon/receipts/internal/application/issuance"
	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/nucleon/receipts/internal/infrastructure/auth"
	"github.com/nucleon/receipts/internal/infrastructure/config"
	"github.com/nucleon/receipts/internal/infrastructure/credential"
	"github.com/nucleon/receipts/internal/infrastructure/export"
	"github.com/nucleon/receipts/internal/infrastructure/ledger"
	"github.com/nucleon/receipts/internal/infrastructure/logger"
	"github.com/nucleon/receipts/internal/infrastructure/metrics"
	"github.com/nucleon/receipts/internal/infrastructure/numbering"
	"github.com/nucleon/receipts/internal/infrastructure/persistence"
	"github.com/nucleon/receipts/internal/infrastructure/printing"
	"github.com/nucleon/receipts/internal/infrastructure/storage"
	"github.com/nucleon/receipts/internal/infrastructure/telemetry"
	"github.com/nucleon/receipts/internal/interfaces/http/handler"
	"github.com/nucleon/receipts/internal/interfaces/http/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// ledgerStore is a ledger that can also be read back for export
type ledgerStore interface {
	receipt.Ledger
	receipt.LedgerReader
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger; unset fields follow the environment defaults
	log, err := logger.NewForEnvironment(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting receipts service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	loc := cfg.App.Location()

	profile, err := cfg.Branding.Resolve()
	if err != nil {
		log.Fatal("Invalid branding configuration", zap.Error(err))
	}

	store, closeLedger, err := openLedger(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open ledger", zap.Error(err))
	}
	defer closeLedger()

	numbers, err := numbering.New(cfg.Numbering.Strategy, numbering.WithLocation(loc))
	if err != nil {
		log.Fatal("Invalid numbering configuration", zap.Error(err))
	}

	renderer := printing.NewPDFRenderer(
		printing.WithLogger(log),
		printing.WithRecorder(m),
	)

	backend, closeStorage, err := openStorage(ctx, cfg, log, m)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer closeStorage()

	service, err := issuance.NewService(numbers, renderer, store, backend, profile,
		issuance.WithLogger(log),
		issuance.WithRecorder(m),
		issuance.WithLocation(loc),
	)
	if err != nil {
		log.Fatal("Failed to create issuance service", zap.Error(err))
	}

	sessions, err := auth.NewSessionService(cfg.Session)
	if err != nil {
		log.Fatal("Failed to create session service", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.NewEngine(router.Config{
		ServiceName:  cfg.App.Name,
		Tracing:      cfg.Telemetry.Enabled,
		MaxBodySize:  cfg.HTTP.MaxBodySize,
		AllowOrigins: cfg.HTTP.AllowOrigins,
	}, router.Dependencies{
		Logger:   log,
		Sessions: sessions,
		Metrics:  m,
		Gatherer: registry,
		System:   handler.NewSystemHandler(cfg.App.Name, version, backend.Name()),
		Receipts: handler.NewReceiptHandler(service, loc),
		Ledger:   handler.NewLedgerHandler(export.NewExporter(store, log)),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("profile", profile.Name),
			zap.String("storage", backend.Name()),
			zap.String("ledger", cfg.Ledger.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// openLedger builds the configured ledger. The returned func releases any
// database connection.
func openLedger(ctx context.Context, cfg *config.Config, log *zap.Logger) (ledgerStore, func(), error) {
	noop := func() {}

	switch cfg.Ledger.Driver {
	case config.LedgerDriverCSV:
		return ledger.NewCSVLedger(cfg.Ledger.Path,
			ledger.WithLogger(log),
			ledger.WithLocation(cfg.App.Location()),
		), noop, nil

	case config.LedgerDriverSQLite, config.LedgerDriverPostgres:
		dsn, system := cfg.Ledger.Path, "sqlite"
		if cfg.Ledger.Driver == config.LedgerDriverPostgres {
			dsn, system = cfg.Ledger.DSN, "postgresql"
		}

		db, err := persistence.NewDatabase(persistence.Config{
			Driver:   cfg.Ledger.Driver,
			DSN:      dsn,
			LogLevel: cfg.Log.Level,
		}, log)
		if err != nil {
			return nil, noop, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}

		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			Enabled:  cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
			DBSystem: system,
		}, log); err != nil {
			closeDB()
			return nil, noop, err
		}

		gl := ledger.NewGormLedger(db.DB, log)
		if err := gl.Migrate(ctx); err != nil {
			closeDB()
			return nil, noop, err
		}
		log.Info("Ledger database ready", zap.String("driver", cfg.Ledger.Driver))
		return gl, closeDB, nil

	default:
		return nil, noop, fmt.Errorf("unsupported ledger driver %q", cfg.Ledger.Driver)
	}
}

// openStorage builds the configured document storage backend.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (receipt.StorageBackend, func(), error) {
	noop := func() {}

	switch cfg.Storage.Driver {
	case config.StorageDriverLocal:
		return storage.NewLocalStorage(cfg.Storage.Local.BasePath, storage.WithLocalLogger(log)), noop, nil

	case config.StorageDriverCloud:
		cc := cfg.Storage.Cloud
		refresher := credential.NewRefresher(credential.RefresherConfig{
			TokenURL:     cc.TokenURL,
			ClientID:     cc.ClientID,
			ClientSecret: cc.ClientSecret,
			Timeout:      cc.Timeout,
		})

		var tokens credential.TokenProvider
		closeCache := noop
		if cc.CacheTokens {
			var cache credential.TokenCache = credential.NewMemoryTokenCache()
			if cc.TokenCache == config.TokenCacheRedis {
				rc, err := credential.NewRedisTokenCache(credential.RedisConfig{
					Addr:      cfg.Redis.Addr(),
					Password:  cfg.Redis.Password,
					DB:        cfg.Redis.DB,
					KeyPrefix: cfg.Redis.KeyPrefix,
				})
				if err != nil {
					return nil, noop, err
				}
				cache = rc
				closeCache = func() {
					if err := rc.Close(); err != nil {
						log.Error("Error closing token cache", zap.Error(err))
					}
				}
			}
			tokens = credential.NewCachingProvider(refresher, cc.RefreshToken,
				credential.WithCache(cache),
				credential.WithSkew(cc.TokenSkew),
				credential.WithRetry(cc.RefreshAttempts, cc.RefreshBackoff),
				credential.WithLogger(log),
				credential.WithRecorder(m),
			)
		} else {
			tokens = credential.NewDirectProvider(refresher, cc.RefreshToken)
		}

		cloud, err := storage.NewCloudStorage(storage.CloudConfig{
			APIURL:     cc.APIURL,
			ContentURL: cc.ContentURL,
			RootPath:   cc.RootPath,
			Timeout:    cc.Timeout,
		}, tokens, storage.WithCloudLogger(log))
		if err != nil {
			closeCache()
			return nil, noop, err
		}
		return cloud, closeCache, nil

	case config.StorageDriverS3:
		s3, err := storage.NewS3Storage(&cfg.Storage.S3,
			storage.WithS3Logger(log),
			storage.WithPresignExpiration(cfg.Storage.S3.PresignExpiration),
		)
		if err != nil {
			return nil, noop, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, noop, err
		}
		return s3, noop, nil

	default:
		return nil, noop, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
