package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Tenant    TenantConfig
	Event     EventConfig
	Telemetry TelemetryConfig
	Storage   StorageConfig
	WhatsApp  WhatsAppConfig
	Kafka     KafkaConfig
	Delivery  DeliveryConfig
	Finance   FinanceConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs with production rules
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        string // silent, error, warn, info
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings. An empty host disables Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	Issuer                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	MaxRefreshCount        int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	RateLimit        int           // requests per window on login and webhook routes
	RateLimitWindow  time.Duration
}

// TenantConfig controls row isolation
type TenantConfig struct {
	Required  bool   // reject tenant-owned queries without a tenant in context
	GuardMode string // off, warn, block
	// PlatformKey guards tenant bootstrap routes; empty disables them
	PlatformKey string
}

// EventConfig holds outbox, idempotency and projection settings
type EventConfig struct {
	OutboxEnabled        bool
	OutboxBatchSize      int
	OutboxPollInterval   time.Duration
	OutboxMaxRetries     int
	OutboxRetention      time.Duration
	IdempotencyTTL       time.Duration
	IdempotencyBackend   string // memory, redis
	CatchUpInterval      time.Duration
	ReplayBatchSize      int
	OverdueCheckInterval time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
}

// StorageConfig holds S3 settings for media archiving. An empty bucket disables it.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Prefix          string
}

// Enabled reports whether media archiving is configured
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

// WhatsAppConfig holds Cloud API settings
type WhatsAppConfig struct {
	APIBaseURL   string
	APIVersion   string
	AccessToken  string
	AppSecret    string
	VerifyToken  string
	MaxRetries   int
	RetryTimeout time.Duration
}

// KafkaConfig configures the optional event relay. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	MaxRetries   int
}

// Enabled reports whether the relay is configured
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// DeliveryConfig holds the delivery fee formula
type DeliveryConfig struct {
	BaseFee       decimal.Decimal
	PerKm         decimal.Decimal
	PerStop       decimal.Decimal
	FreeAbove     decimal.Decimal // zero disables free delivery
	MaxDistanceKm float64
}

// FinanceConfig holds financial defaults
type FinanceConfig struct {
	DefaultCommissionRate decimal.Decimal
	SalesTaxRate          decimal.Decimal
	AccountDueDays        int
}

// Load loads configuration.
// Priority (highest to lowest):
// 1. Environment variables with PETSHOP_ prefix (e.g. PETSHOP_DATABASE_PASSWORD)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PETSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			Issuer:                 v.GetString("jwt.issuer"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
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
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			RateLimit:        v.GetInt("http.rate_limit"),
			RateLimitWindow:  v.GetDuration("http.rate_limit_window"),
		},
		Tenant: TenantConfig{
			Required:    v.GetBool("tenant.required"),
			GuardMode:   v.GetString("tenant.guard_mode"),
			PlatformKey: v.GetString("tenant.platform_key"),
		},
		Event: EventConfig{
			OutboxEnabled:        v.GetBool("event.outbox_enabled"),
			OutboxBatchSize:      v.GetInt("event.outbox_batch_size"),
			OutboxPollInterval:   v.GetDuration("event.outbox_poll_interval"),
			OutboxMaxRetries:     v.GetInt("event.outbox_max_retries"),
			OutboxRetention:      v.GetDuration("event.outbox_retention"),
			IdempotencyTTL:       v.GetDuration("event.idempotency_ttl"),
			IdempotencyBackend:   v.GetString("event.idempotency_backend"),
			CatchUpInterval:      v.GetDuration("event.catchup_interval"),
			ReplayBatchSize:      v.GetInt("event.replay_batch_size"),
			OverdueCheckInterval: v.GetDuration("event.overdue_check_interval"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
		Storage: StorageConfig{
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			Prefix:          v.GetString("storage.prefix"),
		},
		WhatsApp: WhatsAppConfig{
			APIBaseURL:   v.GetString("whatsapp.api_base_url"),
			APIVersion:   v.GetString("whatsapp.api_version"),
			AccessToken:  v.GetString("whatsapp.access_token"),
			AppSecret:    v.GetString("whatsapp.app_secret"),
			VerifyToken:  v.GetString("whatsapp.verify_token"),
			MaxRetries:   v.GetInt("whatsapp.max_retries"),
			RetryTimeout: v.GetDuration("whatsapp.retry_timeout"),
		},
		Kafka: KafkaConfig{
			Brokers:      v.GetStringSlice("kafka.brokers"),
			Topic:        v.GetString("kafka.topic"),
			WriteTimeout: v.GetDuration("kafka.write_timeout"),
			MaxRetries:   v.GetInt("kafka.max_retries"),
		},
		Delivery: DeliveryConfig{
			MaxDistanceKm: v.GetFloat64("delivery.max_distance_km"),
		},
		Finance: FinanceConfig{
			AccountDueDays: v.GetInt("finance.account_due_days"),
		},
	}

	// Boolean defaults that must be true unless explicitly disabled
	if !v.IsSet("tenant.required") {
		cfg.Tenant.Required = true
	}
	if !v.IsSet("event.outbox_enabled") {
		cfg.Event.OutboxEnabled = true
	}

	var err error
	decimals := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"delivery.base_fee", &cfg.Delivery.BaseFee},
		{"delivery.per_km", &cfg.Delivery.PerKm},
		{"delivery.per_stop", &cfg.Delivery.PerStop},
		{"delivery.free_above", &cfg.Delivery.FreeAbove},
		{"finance.default_commission_rate", &cfg.Finance.DefaultCommissionRate},
		{"finance.sales_tax_rate", &cfg.Finance.SalesTaxRate},
	}
	for _, d := range decimals {
		if *d.dst, err = decimalValue(v, d.key); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg, v)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decimalValue(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q: %w", key, raw, err)
	}
	return d, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.App.Name == "" {
		cfg.App.Name = "petshop-erp"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "petshop"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}

	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = defaultJWTSecret
	}
	if cfg.JWT.RefreshSecret == "" {
		cfg.JWT.RefreshSecret = cfg.JWT.Secret
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = cfg.App.Name
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 7 * 24 * time.Hour
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
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
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	// No default origins: cross-origin requests stay disallowed until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Platform-Key"}
	}
	if cfg.HTTP.RateLimit == 0 {
		cfg.HTTP.RateLimit = 60
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}

	if cfg.Tenant.GuardMode == "" {
		cfg.Tenant.GuardMode = "warn"
		if cfg.App.IsProduction() {
			cfg.Tenant.GuardMode = "block"
		}
	}

	if cfg.Event.OutboxBatchSize == 0 {
		cfg.Event.OutboxBatchSize = 100
	}
	if cfg.Event.OutboxPollInterval == 0 {
		cfg.Event.OutboxPollInterval = 2 * time.Second
	}
	if cfg.Event.OutboxMaxRetries == 0 {
		cfg.Event.OutboxMaxRetries = 5
	}
	if cfg.Event.OutboxRetention == 0 {
		cfg.Event.OutboxRetention = 7 * 24 * time.Hour
	}
	if cfg.Event.IdempotencyTTL == 0 {
		cfg.Event.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Event.IdempotencyBackend == "" {
		cfg.Event.IdempotencyBackend = "memory"
	}
	if cfg.Event.CatchUpInterval == 0 {
		cfg.Event.CatchUpInterval = 30 * time.Second
	}
	if cfg.Event.ReplayBatchSize == 0 {
		cfg.Event.ReplayBatchSize = 500
	}
	if cfg.Event.OverdueCheckInterval == 0 {
		cfg.Event.OverdueCheckInterval = time.Hour
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if !v.IsSet("telemetry.sampling_ratio") {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval <= 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "whatsapp-media"
	}

	if cfg.WhatsApp.APIBaseURL == "" {
		cfg.WhatsApp.APIBaseURL = "https://graph.facebook.com"
	}
	if cfg.WhatsApp.APIVersion == "" {
		cfg.WhatsApp.APIVersion = "v21.0"
	}
	if cfg.WhatsApp.MaxRetries == 0 {
		cfg.WhatsApp.MaxRetries = 4
	}
	if cfg.WhatsApp.RetryTimeout == 0 {
		cfg.WhatsApp.RetryTimeout = 30 * time.Second
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "petshop.domain-events"
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}

	if !v.IsSet("delivery.base_fee") {
		cfg.Delivery.BaseFee = decimal.NewFromInt(5)
	}
	if !v.IsSet("delivery.per_km") {
		cfg.Delivery.PerKm = decimal.RequireFromString("1.50")
	}
	if !v.IsSet("delivery.per_stop") {
		cfg.Delivery.PerStop = decimal.NewFromInt(2)
	}
	if cfg.Delivery.MaxDistanceKm == 0 {
		cfg.Delivery.MaxDistanceKm = 30
	}

	if !v.IsSet("finance.default_commission_rate") {
		cfg.Finance.DefaultCommissionRate = decimal.RequireFromString("0.05")
	}
	if cfg.Finance.AccountDueDays == 0 {
		cfg.Finance.AccountDueDays = 30
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Tenant.GuardMode {
	case "off", "warn", "block":
	default:
		return fmt.Errorf("tenant.guard_mode must be one of off, warn, block, got %q", c.Tenant.GuardMode)
	}
	switch c.Event.IdempotencyBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("event.idempotency_backend must be memory or redis, got %q", c.Event.IdempotencyBackend)
	}
	if c.Event.IdempotencyBackend == "redis" && c.Redis.Host == "" {
		return fmt.Errorf("event.idempotency_backend=redis requires redis.host")
	}

	one := decimal.NewFromInt(1)
	if c.Finance.DefaultCommissionRate.IsNegative() || c.Finance.DefaultCommissionRate.GreaterThan(one) {
		return fmt.Errorf("finance.default_commission_rate must be between 0 and 1")
	}
	if c.Finance.SalesTaxRate.IsNegative() || c.Finance.SalesTaxRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("finance.sales_tax_rate must be in [0, 1)")
	}
	if c.Delivery.BaseFee.IsNegative() || c.Delivery.PerKm.IsNegative() || c.Delivery.PerStop.IsNegative() {
		return fmt.Errorf("delivery fees cannot be negative")
	}
	if c.Delivery.MaxDistanceKm <= 0 {
		return fmt.Errorf("delivery.max_distance_km must be positive")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == defaultJWTSecret || len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be set to at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Tenant.GuardMode != "block" {
			return fmt.Errorf("tenant.guard_mode must be block in production")
		}
		if !c.Tenant.Required {
			return fmt.Errorf("tenant.required cannot be disabled in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
			}
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
