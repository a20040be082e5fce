package bootstrap

import (
	"github.com/gin-gonic/gin"
	"github.com/invoicegen/backend/internal/infrastructure/logger"
	"github.com/invoicegen/backend/internal/interfaces/http/handler"
	"github.com/invoicegen/backend/internal/interfaces/http/middleware"
	"github.com/invoicegen/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// NewEngine builds the gin engine with middleware and every route
func NewEngine(app *App) (*gin.Engine, error) {
	cfg := app.Config

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}

	// RequestID and otelgin run before the logger so every line carries both IDs
	engine.Use(logger.Recovery(app.Logger), middleware.RequestID())
	if app.Tracer.IsEnabled() {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	engine.Use(
		logger.GinMiddleware(app.Logger, logger.WithSkipPaths("/health", "/api/v1/ping")),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: app.Metrics,
			Enabled:       cfg.Telemetry.Enabled,
		}),
	)
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling(middleware.DefaultProfilingConfig()))
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RenderRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RenderRateLimit, cfg.HTTP.RenderRateBurst)
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version)
	for name, check := range app.Checks {
		systemHandler.AddCheck(name, check)
	}

	r := router.NewRouter(engine)
	r.Register(router.NewInvoiceRoutes(handler.NewInvoiceHandler(app.Service), limiter)).
		Register(router.NewSystemRoutes(systemHandler)).
		Register(router.NewDomainGroup("ping", "").GET("/ping", systemHandler.Ping)).
		RegisterRoot(router.NewHealthRoutes(systemHandler))
	r.Setup()

	app.Logger.Info("Routes registered",
		zap.Int("count", len(r.Routes())),
		zap.String("base_path", r.BasePath()),
		zap.Bool("render_rate_limit", limiter != nil))

	return engine, nil
}
