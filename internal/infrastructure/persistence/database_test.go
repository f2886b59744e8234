package persistence

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// captureRecorder collects recorded events instead of writing them to the event store
type captureRecorder struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (r *captureRecorder) Record(_ context.Context, tx any, events ...shared.DomainEvent) error {
	if _, ok := tx.(*gorm.DB); !ok {
		return assert.AnError
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, events...)
	return nil
}

func (r *captureRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

// newTestDatabase opens an in-memory SQLite database with the full schema and tenant
// isolation in block mode
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(context.Background(), gdb))

	db, err := Setup(gdb, Options{
		Tenant:    tenant.DefaultConfig(),
		GuardMode: tenant.GuardBlock,
	})
	require.NoError(t, err)
	return db
}

func tenantCtx(id uuid.UUID) context.Context {
	return tenant.ContextWithTenant(context.Background(), id)
}

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestConnectionStats_Struct(t *testing.T) {
	t.Run("creates ConnectionStats with zero values", func(t *testing.T) {
		stats := ConnectionStats{}

		assert.Equal(t, 0, stats.MaxOpenConnections)
		assert.Equal(t, 0, stats.OpenConnections)
		assert.Equal(t, 0, stats.InUse)
		assert.Equal(t, 0, stats.Idle)
		assert.Equal(t, int64(0), stats.WaitCount)
		assert.Equal(t, time.Duration(0), stats.WaitDuration)
	})

	t.Run("InUse plus Idle equals OpenConnections", func(t *testing.T) {
		stats := ConnectionStats{
			OpenConnections: 10,
			InUse:           6,
			Idle:            4,
		}

		assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
	})
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.GreaterOrEqual(t, stats.WaitDuration, time.Duration(0))
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()

	err := db.Ping(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	err := db.Close()
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Tenant.GuardMode = "warn"
	cfg.Tenant.Required = true

	opts, err := OptionsFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, tenant.GuardWarn, opts.GuardMode)
	assert.True(t, opts.Tenant.Required)
	assert.Equal(t, "tenant_id", opts.Tenant.TenantColumn)
	assert.Equal(t, "postgres", opts.DriverName)

	cfg.Tenant.GuardMode = "loud"
	_, err = OptionsFromConfig(cfg, nil)
	assert.Error(t, err)
}

func TestSetup_RegistersTenantTables(t *testing.T) {
	db := newTestDatabase(t)

	owned := db.Registry().OwnedTables()
	assert.Contains(t, owned, "clients")
	assert.Contains(t, owned, "sales")
	assert.Contains(t, owned, "domain_events")
	assert.Contains(t, owned, "projection_processed_events")
	assert.NotContains(t, owned, "tenants")
	assert.NotContains(t, owned, "projection_checkpoints")
	assert.Equal(t, tenant.GuardBlock, db.Guard.Mode())
}

func TestSetup_TenantBNeverSeesTenantA(t *testing.T) {
	db := newTestDatabase(t)
	tenantA, tenantB := uuid.New(), uuid.New()

	for _, tc := range []struct {
		tenant uuid.UUID
		name   string
	}{{tenantA, "Rex owner"}, {tenantB, "Mia owner"}} {
		m := &models.ClientModel{Name: tc.name, Source: "store"}
		m.ID = uuid.New()
		m.Version = 1
		require.NoError(t, db.Tenant.WithContext(tenantCtx(tc.tenant)).Create(m).Error)
	}

	var seen []models.ClientModel
	require.NoError(t, db.Tenant.WithContext(tenantCtx(tenantB)).Find(&seen).Error)
	require.Len(t, seen, 1)
	assert.Equal(t, "Mia owner", seen[0].Name)

	var names []string
	err := db.Raw.Select(tenantCtx(tenantB), &names, "SELECT name FROM clients")
	assert.ErrorIs(t, err, tenant.ErrUnscopedQuery)

	err = db.Raw.Select(tenantCtx(tenantB), &names, db.Raw.Rebind("SELECT name FROM clients WHERE tenant_id = ?"), tenantB)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mia owner"}, names)
}

func TestSetup_MissingTenantFailsClosed(t *testing.T) {
	db := newTestDatabase(t)

	var rows []models.ProductModel
	err := db.Tenant.WithContext(context.Background()).Find(&rows).Error
	assert.ErrorIs(t, err, tenant.ErrTenantIDRequired)
}
