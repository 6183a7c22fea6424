package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nucleon/receipts/internal/infrastructure/logger"
	"github.com/nucleon/receipts/internal/interfaces/http/dto"
	"github.com/nucleon/receipts/internal/interfaces/http/handler"
	"github.com/nucleon/receipts/internal/interfaces/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds the HTTP settings the engine needs
type Config struct {
	ServiceName  string
	Tracing      bool
	MaxBodySize  int64
	AllowOrigins []string
}

// Dependencies are the handlers and services served by the engine.
// Ledger may be nil when the configured ledger cannot be read back.
type Dependencies struct {
	Logger   *zap.Logger
	Sessions middleware.SessionValidator
	Metrics  middleware.HTTPRecorder
	Gatherer prometheus.Gatherer
	System   *handler.SystemHandler
	Receipts *handler.ReceiptHandler
	Ledger   *handler.LedgerHandler
}

// NewEngine builds the gin engine: middleware stack, /health, /metrics and
// the session-protected /api/v1 routes.
func NewEngine(cfg Config, deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	// Tracing wraps everything so request logs carry the trace id
	engine.Use(middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}))
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.HTTPMetrics(deps.Metrics))
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.AllowOrigins
	engine.Use(middleware.CORSWithConfig(cors))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeMethodNotAllowed, "Method not allowed", middleware.GetRequestID(c)))
	})

	if deps.System != nil {
		engine.GET("/health", deps.System.Health)
	}
	if deps.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{
			Timeout: 10 * time.Second,
		})))
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.SessionAuth(middleware.SessionConfig{
		Validator: deps.Sessions,
		Logger:    log,
	}))

	if deps.Receipts != nil {
		r.Register(NewDomainGroup("receipts", "/receipts").
			POST("", deps.Receipts.Issue).
			GET("/options", deps.Receipts.Options))
	}
	if deps.Ledger != nil {
		r.Register(NewDomainGroup("ledger", "/ledger").
			GET("/export.xlsx", deps.Ledger.ExportXLSX))
	}
	r.Setup()

	return engine
}
