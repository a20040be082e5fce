// Package bootstrap wires configuration into the invoice service and its
// infrastructure. The HTTP server and the CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	invoiceapp "github.com/invoicegen/backend/internal/application/invoice"
	"github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/invoicegen/backend/internal/infrastructure/assets"
	"github.com/invoicegen/backend/internal/infrastructure/config"
	"github.com/invoicegen/backend/internal/infrastructure/httpclient"
	"github.com/invoicegen/backend/internal/infrastructure/logger"
	"github.com/invoicegen/backend/internal/infrastructure/persistence"
	"github.com/invoicegen/backend/internal/infrastructure/printing"
	"github.com/invoicegen/backend/internal/infrastructure/storage"
	"github.com/invoicegen/backend/internal/infrastructure/telemetry"
	"github.com/invoicegen/backend/internal/interfaces/http/handler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the wired components
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Service  *invoiceapp.InvoiceService
	Archive  storage.DocumentArchive
	Metrics  *telemetry.MeterProvider
	Tracer   *telemetry.TracerProvider
	Checks   map[string]handler.HealthCheck
	renderer printing.InvoiceRenderer

	closers []func(context.Context) error
}

// Options changes how New wires the application
type Options struct {
	// LazyRenderer defers building the converter until the first render,
	// so commands that never render work without a converter installed
	LazyRenderer bool
	// Archive overrides the configured archive
	Archive storage.DocumentArchive
	// Renderer overrides the template renderer
	Renderer printing.InvoiceRenderer
}

// New builds the application from cfg. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{
		Config: cfg,
		Logger: log,
		Checks: make(map[string]handler.HealthCheck),
	}

	if err := app.build(ctx, opts); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.Config

	if err := a.newTelemetry(ctx); err != nil {
		return err
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.Metrics = mp
	a.closers = append(a.closers, mp.Shutdown)

	records, counter, err := a.newStore()
	if err != nil {
		return err
	}

	invoiceMetrics, err := telemetry.NewInvoiceMetrics(telemetry.InvoiceMetricsConfig{
		Meter:  mp.Meter("invoicegen/invoice"),
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create invoice metrics: %w", err)
	}

	switch {
	case opts.Renderer != nil:
		a.renderer = opts.Renderer
	case opts.LazyRenderer:
		a.renderer = &lazyRenderer{build: a.newRenderer}
	default:
		if a.renderer, err = a.newRenderer(); err != nil {
			return err
		}
	}

	a.Archive = opts.Archive
	if a.Archive == nil {
		if a.Archive, err = NewArchive(ctx, &cfg.Archive, a.Logger); err != nil {
			return err
		}
	}

	serviceOpts := []invoiceapp.Option{
		invoiceapp.WithLogger(a.Logger),
		invoiceapp.WithMetrics(invoiceMetrics),
	}
	if a.Archive != nil {
		serviceOpts = append(serviceOpts, invoiceapp.WithArchive(a.Archive))
	}

	a.Service = invoiceapp.NewInvoiceService(
		records,
		counter,
		a.renderer,
		invoice.NewNumbering(cfg.Invoice.NumberPrefix),
		serviceOpts...,
	)
	return nil
}

// newStore opens the configured record store and counter
func (a *App) newStore() (invoice.Repository, invoice.Counter, error) {
	cfg := a.Config.Storage

	switch cfg.Driver {
	case config.StorageDriverSQLite:
		gormLog := logger.NewGormLogger(a.Logger, logger.MapGormLogLevel(a.Config.Log.Level))
		db, err := persistence.NewSQLiteDatabase(cfg.SQLitePath, gormLog)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		a.Checks["database"] = func(context.Context) error { return db.Ping() }
		if err := a.instrumentDB(db.DB); err != nil {
			return nil, nil, err
		}
		a.Logger.Info("Using SQLite record store", zap.String("path", cfg.SQLitePath))
		return persistence.NewGormRecordStore(db.DB), persistence.NewGormCounter(db.DB), nil

	default:
		store := persistence.NewJSONRecordStore(cfg.RecordsPath, a.Logger)
		a.Checks["records"] = func(ctx context.Context) error {
			_, err := store.FindAll(ctx)
			return err
		}
		a.Logger.Info("Using JSON record store",
			zap.String("records", cfg.RecordsPath),
			zap.String("counter", cfg.CounterPath))
		return store, persistence.NewFileCounter(cfg.CounterPath), nil
	}
}

// newTelemetry starts tracing, log export and profiling. Each is a no-op when disabled.
func (a *App) newTelemetry(ctx context.Context) error {
	tc := a.Config.Telemetry

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		ServiceVersion:    a.Config.App.Version,
		Insecure:          tc.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log export: %w", err)
	}
	a.closers = append(a.closers, lp.Shutdown)
	a.Logger = telemetry.Bridge(a.Logger, telemetry.ZapBridgeConfig{
		ServiceName:    tc.ServiceName,
		LoggerProvider: lp,
		Level:          logger.ParseLevel(a.Config.Log.Level),
	})

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		ServiceVersion:    a.Config.App.Version,
		Insecure:          tc.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.Tracer = tp
	a.closers = append(a.closers, tp.Shutdown)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         tc.ProfilingEnabled,
		ServerAddress:   tc.ProfilerAddress,
		ApplicationName: tc.ServiceName,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to start profiler: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return profiler.Stop() })
	if profiler.IsEnabled() {
		return tp.EnableSpanProfiles()
	}
	return nil
}

// instrumentDB adds query metrics and tracing to the SQLite connection
func (a *App) instrumentDB(db *gorm.DB) error {
	tc := a.Config.Telemetry

	if a.Metrics.IsEnabled() {
		dbMetrics, err := telemetry.RegisterDBMetrics(db, a.Metrics.Meter("invoicegen/db"),
			telemetry.DBMetricsConfig{SlowQueryThreshold: tc.DBSlowQueryThresh}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to register database metrics: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			dbMetrics.Stop()
			return nil
		})
	}

	if a.Tracer.IsEnabled() && tc.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{
			LogFullSQL:      tc.DBLogFullSQL,
			SlowQueryThresh: tc.DBSlowQueryThresh,
		}, a.Logger); err != nil {
			return fmt.Errorf("failed to register database tracing: %w", err)
		}
	}
	return nil
}

// newRenderer builds the converter, the image fetcher and the template renderer
func (a *App) newRenderer() (printing.InvoiceRenderer, error) {
	cfg := a.Config

	converter, err := NewConverter(&cfg.Printing, a.Logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := converter.(io.Closer); ok {
		a.closers = append(a.closers, func(context.Context) error { return closer.Close() })
	}

	fetcher, err := NewImageFetcher(&cfg.Assets, a.Logger)
	if err != nil {
		return nil, err
	}

	return printing.NewDocxRenderer(&printing.DocxRendererConfig{
		TemplatePath: cfg.Invoice.TemplatePath,
		Converter:    converter,
		Images:       fetcher,
		StampURL:     cfg.Assets.StampURL,
		SignatureURL: cfg.Assets.SignatureURL,
		TempDir:      cfg.Printing.TempDir,
		Logger:       a.Logger,
	})
}

// Close releases resources in reverse order of acquisition
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewConverter creates the configured DOCX to PDF converter
func NewConverter(cfg *config.PrintingConfig, log *zap.Logger) (printing.DocumentConverter, error) {
	switch cfg.Converter {
	case config.ConverterSoffice:
		return printing.NewSofficeConverter(&printing.SofficeConfig{
			BinaryPath: cfg.BinaryPath,
			Timeout:    cfg.Timeout,
			Logger:     log,
		})
	case config.ConverterChromedp:
		return printing.NewChromedpConverter(&printing.ChromedpConfig{
			PandocPath: cfg.BinaryPath,
			Timeout:    cfg.Timeout,
			RemoteURL:  cfg.ChromeRemoteURL,
			NoSandbox:  cfg.ChromeNoSandbox,
			Logger:     log,
		})
	case config.ConverterPandoc:
		return printing.NewPandocConverter(&printing.PandocConfig{
			BinaryPath: cfg.BinaryPath,
			PDFEngine:  cfg.PDFEngine,
			Timeout:    cfg.Timeout,
			Logger:     log,
		})
	default:
		return nil, fmt.Errorf("unknown converter %q", cfg.Converter)
	}
}

// NewImageFetcher creates the fetcher for the paid stamp and signature
func NewImageFetcher(cfg *config.AssetsConfig, log *zap.Logger) (*assets.ImageFetcher, error) {
	proxy := &httpclient.ProxyConfig{
		HTTPProxy:   cfg.HTTPProxy,
		HTTPSProxy:  cfg.HTTPSProxy,
		SOCKS5Proxy: cfg.SOCKS5Proxy,
		NoProxy:     cfg.NoProxy,
	}
	client, err := httpclient.New(httpclient.Options{
		Timeout:     cfg.Timeout,
		ProxyConfig: proxy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image HTTP client: %w", err)
	}
	log.Debug("Image fetcher configured", zap.String("proxy", httpclient.ProxyInfo(proxy)))

	return assets.NewImageFetcher(client,
		assets.WithUserAgent(cfg.UserAgent),
		assets.WithLogger(log.Named("assets")),
	), nil
}

// NewArchive creates the configured document archive. The none driver returns nil.
func NewArchive(ctx context.Context, cfg *config.ArchiveConfig, log *zap.Logger) (storage.DocumentArchive, error) {
	switch cfg.Driver {
	case config.ArchiveDriverFilesystem:
		archive, err := storage.NewFileSystemArchive(cfg.BasePath, log)
		if err != nil {
			return nil, err
		}
		return archive, nil
	case config.ArchiveDriverS3:
		archive, err := storage.NewS3Archive(cfg,
			storage.WithLogger(log),
			storage.WithKeyPrefix(cfg.KeyPrefix),
		)
		if err != nil {
			return nil, err
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return archive, nil
	default:
		return nil, nil
	}
}

// lazyRenderer builds the real renderer on first use and keeps the outcome
type lazyRenderer struct {
	build    func() (printing.InvoiceRenderer, error)
	once     sync.Once
	renderer printing.InvoiceRenderer
	err      error
}

func (r *lazyRenderer) Render(ctx context.Context, record *invoice.Record) (*printing.RenderResult, error) {
	r.once.Do(func() {
		r.renderer, r.err = r.build()
	})
	if r.err != nil {
		return nil, r.err
	}
	return r.renderer.Render(ctx, record)
}
