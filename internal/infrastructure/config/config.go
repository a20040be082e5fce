package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Invoice   InvoiceConfig
	Storage   StorageConfig
	Printing  PrintingConfig
	Assets    AssetsConfig
	Archive   ArchiveConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Version string
	Env     string
	Port    string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
	// RenderRateLimit caps rendering requests per client per minute; a negative value disables it
	RenderRateLimit int
	RenderRateBurst int
}

// InvoiceConfig holds invoice numbering and template settings
type InvoiceConfig struct {
	NumberPrefix string // e.g. INV2025
	TemplatePath string // docx template with the items and financial tables
}

// Storage drivers
const (
	StorageDriverJSON   = "json"
	StorageDriverSQLite = "sqlite"
)

// StorageConfig holds record store and counter settings
type StorageConfig struct {
	Driver      string // json, sqlite
	RecordsPath string // json store file
	CounterPath string // counter file
	SQLitePath  string
}

// Converter names
const (
	ConverterPandoc   = "pandoc"
	ConverterSoffice  = "soffice"
	ConverterChromedp = "chromedp"
)

// PrintingConfig holds document conversion settings
type PrintingConfig struct {
	Converter       string // pandoc, soffice, chromedp
	BinaryPath      string // converter binary; pandoc for chromedp's html step
	PDFEngine       string // pandoc --pdf-engine
	Timeout         time.Duration
	TempDir         string
	ChromeRemoteURL string
	ChromeNoSandbox bool
}

// AssetsConfig holds paid overlay image sources and the HTTP client used to fetch them
type AssetsConfig struct {
	StampURL     string
	SignatureURL string
	Timeout      time.Duration
	UserAgent    string
	HTTPProxy    string
	HTTPSProxy   string
	SOCKS5Proxy  string
	NoProxy      string
}

// Archive drivers
const (
	ArchiveDriverNone       = "none"
	ArchiveDriverFilesystem = "filesystem"
	ArchiveDriverS3         = "s3"
)

// ArchiveConfig holds settings for keeping a copy of generated documents
type ArchiveConfig struct {
	Driver       string // none, filesystem, s3
	BasePath     string // filesystem
	Endpoint     string // s3
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	KeyPrefix    string // s3 object key prefix
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool   // Export metrics and traces
	CollectorEndpoint string // OTEL Collector endpoint (e.g., "localhost:4317")
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	ExportInterval    time.Duration
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	LogsEnabled       bool    // Bridge zap logs to the collector

	DBTraceEnabled    bool // Trace SQLite queries when the sqlite store is used
	DBLogFullSQL      bool // Include query variables in spans (development only)
	DBSlowQueryThresh time.Duration

	ProfilingEnabled bool
	ProfilerAddress  string // Pyroscope server address (e.g., "http://pyroscope:4040")
}

// Default remote image sources for the paid overlay
const (
	DefaultStampURL     = "https://drive.google.com/uc?export=download&id=1W9PL0DtP0TUk7IcGiMD_ZuLddtQ8gjNo"
	DefaultSignatureURL = "https://drive.google.com/uc?export=download&id=1b6Dcg4spQmvLUMd4neBtLNfdr5l7QtPJ"
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with INVOICE_ prefix (e.g., INVOICE_STORAGE_DRIVER)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path. An empty path
// searches the default locations.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/invoicegen")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("INVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Version: v.GetString("app.version"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			RenderRateLimit:  v.GetInt("http.render_rate_limit"),
			RenderRateBurst:  v.GetInt("http.render_rate_burst"),
		},
		Invoice: InvoiceConfig{
			NumberPrefix: v.GetString("invoice.number_prefix"),
			TemplatePath: v.GetString("invoice.template_path"),
		},
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			RecordsPath: v.GetString("storage.records_path"),
			CounterPath: v.GetString("storage.counter_path"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
		},
		Printing: PrintingConfig{
			Converter:       v.GetString("printing.converter"),
			BinaryPath:      v.GetString("printing.binary_path"),
			PDFEngine:       v.GetString("printing.pdf_engine"),
			Timeout:         v.GetDuration("printing.timeout"),
			TempDir:         v.GetString("printing.temp_dir"),
			ChromeRemoteURL: v.GetString("printing.chrome_remote_url"),
			ChromeNoSandbox: v.GetBool("printing.chrome_no_sandbox"),
		},
		Assets: AssetsConfig{
			StampURL:     v.GetString("assets.stamp_url"),
			SignatureURL: v.GetString("assets.signature_url"),
			Timeout:      v.GetDuration("assets.timeout"),
			UserAgent:    v.GetString("assets.user_agent"),
			HTTPProxy:    v.GetString("assets.http_proxy"),
			HTTPSProxy:   v.GetString("assets.https_proxy"),
			SOCKS5Proxy:  v.GetString("assets.socks5_proxy"),
			NoProxy:      v.GetString("assets.no_proxy"),
		},
		Archive: ArchiveConfig{
			Driver:       v.GetString("archive.driver"),
			BasePath:     v.GetString("archive.base_path"),
			Endpoint:     v.GetString("archive.endpoint"),
			Region:       v.GetString("archive.region"),
			Bucket:       v.GetString("archive.bucket"),
			AccessKey:    v.GetString("archive.access_key"),
			SecretKey:    v.GetString("archive.secret_key"),
			UseSSL:       v.GetBool("archive.use_ssl"),
			UsePathStyle: v.GetBool("archive.use_path_style"),
			KeyPrefix:    v.GetString("archive.key_prefix"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilerAddress:   v.GetString("telemetry.profiler_address"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "invoicegen"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Rendering a paid invoice fetches two images and runs a converter
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 120 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RenderRateLimit == 0 {
		cfg.HTTP.RenderRateLimit = 30
	}
	if cfg.HTTP.RenderRateBurst == 0 {
		cfg.HTTP.RenderRateBurst = 5
	}
	if cfg.Invoice.NumberPrefix == "" {
		cfg.Invoice.NumberPrefix = "INV2025"
	}
	if cfg.Invoice.TemplatePath == "" {
		cfg.Invoice.TemplatePath = "Invoice_Template_MarketixLab.docx"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageDriverJSON
	}
	if cfg.Storage.RecordsPath == "" {
		cfg.Storage.RecordsPath = "invoices.json"
	}
	if cfg.Storage.CounterPath == "" {
		cfg.Storage.CounterPath = "invoice_count.txt"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "invoices.db"
	}
	if cfg.Printing.Converter == "" {
		cfg.Printing.Converter = ConverterPandoc
	}
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 60 * time.Second
	}
	if cfg.Assets.StampURL == "" {
		cfg.Assets.StampURL = DefaultStampURL
	}
	if cfg.Assets.SignatureURL == "" {
		cfg.Assets.SignatureURL = DefaultSignatureURL
	}
	if cfg.Assets.Timeout == 0 {
		cfg.Assets.Timeout = 30 * time.Second
	}
	if cfg.Assets.UserAgent == "" {
		cfg.Assets.UserAgent = DefaultUserAgent
	}
	if cfg.Archive.Driver == "" {
		cfg.Archive.Driver = ArchiveDriverNone
	}
	if cfg.Archive.BasePath == "" {
		cfg.Archive.BasePath = "generated"
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "invoicegen"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.ProfilerAddress == "" {
		cfg.Telemetry.ProfilerAddress = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverJSON, StorageDriverSQLite:
	default:
		return fmt.Errorf("storage.driver must be one of json, sqlite, got %q", c.Storage.Driver)
	}

	switch c.Printing.Converter {
	case ConverterPandoc, ConverterSoffice, ConverterChromedp:
	default:
		return fmt.Errorf("printing.converter must be one of pandoc, soffice, chromedp, got %q", c.Printing.Converter)
	}
	if c.HTTP.RenderRateBurst < 0 {
		return fmt.Errorf("http.render_rate_burst cannot be negative")
	}
	if c.Printing.Timeout < 0 {
		return fmt.Errorf("printing.timeout cannot be negative")
	}

	switch c.Archive.Driver {
	case ArchiveDriverNone, ArchiveDriverFilesystem:
	case ArchiveDriverS3:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the s3 archive")
		}
		if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
			return fmt.Errorf("archive.access_key and archive.secret_key are required for the s3 archive")
		}
	default:
		return fmt.Errorf("archive.driver must be one of none, filesystem, s3, got %q", c.Archive.Driver)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Telemetry.Enabled && c.Telemetry.Insecure {
			return fmt.Errorf("telemetry.insecure must be false in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}
