package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/nucleon/receipts/internal/domain/shared/valueobject"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Session   SessionConfig
	Branding  BrandingConfig
	Ledger    LedgerConfig
	Numbering NumberingConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Port     string
	Timezone string // IANA name used for receipt dates and numbers
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodySize  int64
	// AllowOrigins lists origins allowed to call the API from a browser
	AllowOrigins []string
}

// SessionConfig holds the settings used to verify operator session tokens
type SessionConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// BrandingConfig selects the receipt branding. Profile names a built-in
// profile; any other field set here overrides it. When Profile is not a
// built-in name the fields describe a custom profile.
type BrandingConfig struct {
	Profile          string
	OrganizationName string
	AddressLines     []string
	FooterThanks     string
	FooterURL        string
	WatermarkText    string
	LogoPath         string
	Currency         string
	CurrencySymbol   string
	CurrencyFallback string
	FontFamily       string
	FontRegular      string
	FontBold         string
	FontItalic       string
}

// LedgerConfig holds transaction ledger settings
type LedgerConfig struct {
	Driver string // csv, sqlite, postgres
	Path   string // csv file or sqlite database file
	DSN    string // postgres connection string
}

// NumberingConfig selects the receipt number strategy
type NumberingConfig struct {
	Strategy string // sequence, minute
}

// StorageConfig selects and configures the document storage backend
type StorageConfig struct {
	Driver string // local, cloud, s3
	Local  LocalStorageConfig
	Cloud  CloudStorageConfig
	S3     S3StorageConfig
}

// LocalStorageConfig holds filesystem storage settings
type LocalStorageConfig struct {
	BasePath string
}

// CloudStorageConfig holds settings for the cloud file API and its
// refresh-token credential
type CloudStorageConfig struct {
	TokenURL     string
	APIURL       string
	ContentURL   string
	RootPath     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Timeout      time.Duration

	CacheTokens     bool
	TokenCache      string // memory, redis
	TokenSkew       time.Duration
	RefreshAttempts int
	RefreshBackoff  time.Duration
}

// S3StorageConfig holds S3-compatible object storage settings
type S3StorageConfig struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	Prefix            string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// TelemetryConfig holds OpenTelemetry tracing settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string // OTLP gRPC endpoint; spans are not exported when empty
	Insecure          bool
	SamplingRatio     float64
	DBTracing         bool
}

// Supported driver names
const (
	LedgerDriverCSV      = "csv"
	LedgerDriverSQLite   = "sqlite"
	LedgerDriverPostgres = "postgres"

	StorageDriverLocal = "local"
	StorageDriverCloud = "cloud"
	StorageDriverS3    = "s3"

	TokenCacheMemory = "memory"
	TokenCacheRedis  = "redis"
)

// Load loads configuration from a .env file, config.toml and environment
// variables. Priority (highest to lowest):
// 1. Environment variables with RECEIPTS_ prefix (e.g., RECEIPTS_STORAGE_DRIVER)
// 2. Variables from .env, which never override the real environment
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("RECEIPTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			Timezone: v.GetString("app.timezone"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
			MaxBodySize:  v.GetInt64("http.max_body_size"),
			AllowOrigins: v.GetStringSlice("http.allow_origins"),
		},
		Session: SessionConfig{
			Secret:     v.GetString("session.secret"),
			Issuer:     v.GetString("session.issuer"),
			Expiration: v.GetDuration("session.expiration"),
		},
		Branding: BrandingConfig{
			Profile:          v.GetString("branding.profile"),
			OrganizationName: v.GetString("branding.organization_name"),
			AddressLines:     v.GetStringSlice("branding.address_lines"),
			FooterThanks:     v.GetString("branding.footer_thanks"),
			FooterURL:        v.GetString("branding.footer_url"),
			WatermarkText:    v.GetString("branding.watermark_text"),
			LogoPath:         v.GetString("branding.logo_path"),
			Currency:         v.GetString("branding.currency"),
			CurrencySymbol:   v.GetString("branding.currency_symbol"),
			CurrencyFallback: v.GetString("branding.currency_fallback"),
			FontFamily:       v.GetString("branding.font_family"),
			FontRegular:      v.GetString("branding.font_regular"),
			FontBold:         v.GetString("branding.font_bold"),
			FontItalic:       v.GetString("branding.font_italic"),
		},
		Ledger: LedgerConfig{
			Driver: v.GetString("ledger.driver"),
			Path:   v.GetString("ledger.path"),
			DSN:    v.GetString("ledger.dsn"),
		},
		Numbering: NumberingConfig{
			Strategy: v.GetString("numbering.strategy"),
		},
		Storage: StorageConfig{
			Driver: v.GetString("storage.driver"),
			Local: LocalStorageConfig{
				BasePath: v.GetString("storage.local.base_path"),
			},
			Cloud: CloudStorageConfig{
				TokenURL:        v.GetString("storage.cloud.token_url"),
				APIURL:          v.GetString("storage.cloud.api_url"),
				ContentURL:      v.GetString("storage.cloud.content_url"),
				RootPath:        v.GetString("storage.cloud.root_path"),
				ClientID:        v.GetString("storage.cloud.client_id"),
				ClientSecret:    v.GetString("storage.cloud.client_secret"),
				RefreshToken:    v.GetString("storage.cloud.refresh_token"),
				Timeout:         v.GetDuration("storage.cloud.timeout"),
				CacheTokens:     v.GetBool("storage.cloud.cache_tokens"),
				TokenCache:      v.GetString("storage.cloud.token_cache"),
				TokenSkew:       v.GetDuration("storage.cloud.token_skew"),
				RefreshAttempts: v.GetInt("storage.cloud.refresh_attempts"),
				RefreshBackoff:  v.GetDuration("storage.cloud.refresh_backoff"),
			},
			S3: S3StorageConfig{
				Endpoint:          v.GetString("storage.s3.endpoint"),
				Region:            v.GetString("storage.s3.region"),
				Bucket:            v.GetString("storage.s3.bucket"),
				AccessKey:         v.GetString("storage.s3.access_key"),
				SecretKey:         v.GetString("storage.s3.secret_key"),
				Prefix:            v.GetString("storage.s3.prefix"),
				UseSSL:            v.GetBool("storage.s3.use_ssl"),
				UsePathStyle:      v.GetBool("storage.s3.use_path_style"),
				PresignExpiration: v.GetDuration("storage.s3.presign_expiration"),
			},
		},
		Redis: RedisConfig{
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			Insecure:          v.GetBool("telemetry.insecure"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "receipts"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "Asia/Kolkata"
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
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Session.Issuer == "" {
		cfg.Session.Issuer = "receipts"
	}
	if cfg.Session.Expiration == 0 {
		cfg.Session.Expiration = 12 * time.Hour
	}
	if cfg.Branding.Profile == "" {
		cfg.Branding.Profile = receipt.ProfileShantiniketan
	}
	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = LedgerDriverCSV
	}
	if cfg.Ledger.Path == "" {
		switch cfg.Ledger.Driver {
		case LedgerDriverSQLite:
			cfg.Ledger.Path = "receipts.db"
		default:
			cfg.Ledger.Path = "receipts.csv"
		}
	}
	if cfg.Numbering.Strategy == "" {
		cfg.Numbering.Strategy = "sequence"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageDriverLocal
	}
	if cfg.Storage.Local.BasePath == "" {
		cfg.Storage.Local.BasePath = "receipts"
	}
	if cfg.Storage.Cloud.TokenURL == "" {
		cfg.Storage.Cloud.TokenURL = "https://api.dropboxapi.com/oauth2/token"
	}
	if cfg.Storage.Cloud.APIURL == "" {
		cfg.Storage.Cloud.APIURL = "https://api.dropboxapi.com"
	}
	if cfg.Storage.Cloud.ContentURL == "" {
		cfg.Storage.Cloud.ContentURL = "https://content.dropboxapi.com"
	}
	if cfg.Storage.Cloud.RootPath == "" {
		cfg.Storage.Cloud.RootPath = "/receipts"
	}
	if cfg.Storage.Cloud.Timeout == 0 {
		cfg.Storage.Cloud.Timeout = 30 * time.Second
	}
	if cfg.Storage.Cloud.TokenCache == "" {
		cfg.Storage.Cloud.TokenCache = TokenCacheMemory
	}
	if cfg.Storage.Cloud.TokenSkew == 0 {
		cfg.Storage.Cloud.TokenSkew = time.Minute
	}
	if cfg.Storage.Cloud.RefreshAttempts == 0 {
		cfg.Storage.Cloud.RefreshAttempts = 3
	}
	if cfg.Storage.Cloud.RefreshBackoff == 0 {
		cfg.Storage.Cloud.RefreshBackoff = 200 * time.Millisecond
	}
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = "us-east-1"
	}
	if cfg.Storage.S3.Prefix == "" {
		cfg.Storage.S3.Prefix = "receipts"
	}
	if cfg.Storage.S3.PresignExpiration == 0 {
		cfg.Storage.S3.PresignExpiration = 7 * 24 * time.Hour
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "receipts:"
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q is not a valid time zone: %w", c.App.Timezone, err)
	}

	switch c.Ledger.Driver {
	case LedgerDriverCSV, LedgerDriverSQLite:
	case LedgerDriverPostgres:
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required when ledger.driver is postgres")
		}
	default:
		return fmt.Errorf("ledger.driver must be one of csv, sqlite, postgres, got %q", c.Ledger.Driver)
	}

	switch c.Numbering.Strategy {
	case "sequence", "minute":
	default:
		return fmt.Errorf("numbering.strategy must be sequence or minute, got %q", c.Numbering.Strategy)
	}

	switch c.Storage.Driver {
	case StorageDriverLocal:
	case StorageDriverCloud:
		cloud := c.Storage.Cloud
		if cloud.ClientID == "" || cloud.ClientSecret == "" {
			return fmt.Errorf("storage.cloud.client_id and storage.cloud.client_secret are required for cloud storage")
		}
		if cloud.RefreshToken == "" {
			return fmt.Errorf("storage.cloud.refresh_token is required for cloud storage")
		}
		if cloud.TokenCache != TokenCacheMemory && cloud.TokenCache != TokenCacheRedis {
			return fmt.Errorf("storage.cloud.token_cache must be memory or redis, got %q", cloud.TokenCache)
		}
		if cloud.RefreshAttempts < 1 {
			return fmt.Errorf("storage.cloud.refresh_attempts must be positive")
		}
	case StorageDriverS3:
		s3 := c.Storage.S3
		if s3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for s3 storage")
		}
		if s3.AccessKey == "" || s3.SecretKey == "" {
			return fmt.Errorf("storage.s3.access_key and storage.s3.secret_key are required for s3 storage")
		}
	default:
		return fmt.Errorf("storage.driver must be one of local, cloud, s3, got %q", c.Storage.Driver)
	}

	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %v", r)
	}

	if _, err := c.Branding.Resolve(); err != nil {
		return fmt.Errorf("branding: %w", err)
	}

	if c.App.Env == "production" {
		if c.Session.Secret == "" {
			return fmt.Errorf("session.secret is required in production")
		}
		if len(c.Session.Secret) < 32 {
			return fmt.Errorf("session.secret must be at least 32 characters in production")
		}
	}

	return nil
}

// Location returns the configured time zone. validate guarantees it loads.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Resolve builds the branding profile: the named built-in profile with
// any configured fields laid over it, or a fully custom profile.
func (b BrandingConfig) Resolve() (receipt.BrandingProfile, error) {
	profile, ok := receipt.BuiltinProfile(b.Profile)
	if !ok {
		profile = receipt.BrandingProfile{Name: b.Profile}
	}

	overlay := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	overlay(&profile.OrganizationName, b.OrganizationName)
	overlay(&profile.FooterThanks, b.FooterThanks)
	overlay(&profile.FooterURL, b.FooterURL)
	overlay(&profile.WatermarkText, b.WatermarkText)
	overlay(&profile.LogoPath, b.LogoPath)
	if b.Currency != "" {
		// the symbol follows the currency unless configured too
		profile.Currency = valueobject.Currency(b.Currency)
		profile.CurrencySymbol = ""
	}
	overlay(&profile.CurrencySymbol, b.CurrencySymbol)
	overlay(&profile.CurrencyFallback, b.CurrencyFallback)
	overlay(&profile.Font.Family, b.FontFamily)
	overlay(&profile.Font.Regular, b.FontRegular)
	overlay(&profile.Font.Bold, b.FontBold)
	overlay(&profile.Font.Italic, b.FontItalic)
	if len(b.AddressLines) > 0 {
		profile.AddressLines = append([]string(nil), b.AddressLines...)
	}

	profile = profile.WithDefaults()
	if err := profile.Validate(); err != nil {
		return receipt.BrandingProfile{}, err
	}
	return profile, nil
}

// Addr returns the Redis address as host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
