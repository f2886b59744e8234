package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/petshop/erp/internal/infrastructure/logger"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Database holds the database connection together with its tenant isolation layer
type Database struct {
	DB      *gorm.DB
	Tenant  *tenant.TenantDB
	Guard   *tenant.SQLGuard
	Raw     *tenant.GuardedDB
	tenancy *tenant.TenantCallback
}

// Options configures tenant isolation on a connection
type Options struct {
	Tenant    tenant.Config
	GuardMode tenant.GuardMode
	// DriverName is the sqlx driver name used for bind variables of the raw SQL path
	DriverName string
	Logger     *zap.Logger
}

// OptionsFromConfig derives isolation options from application config
func OptionsFromConfig(cfg *config.Config, log *zap.Logger) (Options, error) {
	mode, err := tenant.ParseGuardMode(cfg.Tenant.GuardMode)
	if err != nil {
		return Options{}, err
	}
	tc := tenant.DefaultConfig()
	tc.Required = cfg.Tenant.Required
	return Options{
		Tenant:     tc,
		GuardMode:  mode,
		DriverName: "postgres",
		Logger:     log,
	}, nil
}

// NewDatabase opens the PostgreSQL connection pool and installs tenant isolation
func NewDatabase(cfg *config.Config, log *zap.Logger) (*Database, error) {
	opts, err := OptionsFromConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	dbCfg := cfg.Database
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(dbCfg.LogLevel), dbCfg.SlowThreshold)

	db, err := gorm.Open(postgres.Open(dbCfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dbCfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return Setup(db, opts)
}

// Setup installs tenant callbacks, the model registry and the SQL guard on an open
// connection. Schema changes (AutoMigrate in tests) must run before Setup or under
// system scope, since DDL is not tenant-scoped.
func Setup(db *gorm.DB, opts Options) (*Database, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	registry := tenant.NewRegistry(opts.Tenant.TenantColumn)
	if err := registry.RegisterModels(db, models.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to register tenant models: %w", err)
	}

	tc := tenant.NewTenantCallback(opts.Tenant, registry)
	if err := tc.Register(db); err != nil {
		return nil, fmt.Errorf("failed to register tenant callbacks: %w", err)
	}

	guard := tenant.NewSQLGuard(opts.GuardMode, registry, log.Named("sql_guard"))
	if err := guard.Register(db); err != nil {
		return nil, fmt.Errorf("failed to register sql guard: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	driver := opts.DriverName
	if driver == "" {
		driver = db.Dialector.Name()
	}

	log.Info("Tenant isolation installed",
		zap.String("guard_mode", string(opts.GuardMode)),
		zap.Bool("tenant_required", opts.Tenant.Required),
		zap.Strings("tenant_tables", registry.OwnedTables()),
	)

	return &Database{
		DB:      db,
		Tenant:  tenant.NewTenantDB(db, opts.Tenant),
		Guard:   guard,
		Raw:     tenant.NewGuardedDB(sqlx.NewDb(sqlDB, driver), guard),
		tenancy: tc,
	}, nil
}

// Registry returns the tenant-owned table registry
func (d *Database) Registry() *tenant.Registry {
	return d.tenancy.Registry()
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection pool statistics and an error if unable to retrieve
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

// AutoMigrate creates every table from the models. Production schemas come from the
// SQL migrations; this is used by tests and local tooling.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	ctx = tenant.WithSystemScope(ctx, "auto-migrate")
	return db.WithContext(ctx).AutoMigrate(models.AllModels()...)
}
