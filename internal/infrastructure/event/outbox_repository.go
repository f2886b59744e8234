package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSystemScopeRequired is returned by operations that span every tenant when
// the context was not opened with tenant.WithSystemScope
var ErrSystemScopeRequired = errors.New("event: operation spans all tenants and requires system scope")

// GormOutboxRepository implements OutboxRepository using GORM.
// Reads and updates are scoped to the context tenant; ClaimBatch and the cleanup
// span every tenant and need system scope.
type GormOutboxRepository struct {
	db *tenant.TenantDB
}

// NewGormOutboxRepository creates a new GORM-based outbox repository
func NewGormOutboxRepository(db *tenant.TenantDB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) session(ctx context.Context, tx any) *gorm.DB {
	if g, ok := tx.(*gorm.DB); ok && g != nil {
		return g.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Save persists outbox entries inside tx (a *gorm.DB), or in a new session when tx is nil
func (r *GormOutboxRepository) Save(ctx context.Context, tx any, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.OutboxEntryModelFromDomain(e)
	}
	return r.session(ctx, tx).Create(&rows).Error
}

// ClaimBatch locks up to limit deliverable entries with FOR UPDATE SKIP LOCKED and
// marks them PROCESSING, so concurrent processors never claim the same entry
func (r *GormOutboxRepository) ClaimBatch(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	if !tenant.IsSystemScope(ctx) {
		return nil, ErrSystemScopeRequired
	}

	var claimed []*shared.OutboxEntry
	err := r.db.Transaction(ctx, func(tx *gorm.DB) error {
		var rows []models.OutboxEntryModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? OR (status = ? AND next_retry_at <= ?)",
				shared.OutboxStatusPending, shared.OutboxStatusFailed, now).
			Order("position ASC, created_at ASC").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		if err := tx.Model(&models.OutboxEntryModel{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":     shared.OutboxStatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		claimed = make([]*shared.OutboxEntry, len(rows))
		for i := range rows {
			e := rows[i].ToDomain()
			e.Status = shared.OutboxStatusProcessing
			e.UpdatedAt = now
			claimed[i] = e
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox batch: %w", err)
	}
	return claimed, nil
}

// Update stores the delivery state of an entry
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	model := models.OutboxEntryModelFromDomain(entry)
	res := r.db.WithContext(ctx).Model(model).
		Select("status", "retry_count", "last_error", "next_retry_at", "processed_at", "updated_at").
		Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindDead pages through dead entries, most recently failed first
func (r *GormOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	query := r.db.WithContext(ctx).Model(&models.OutboxEntryModel{}).
		Where("status = ?", shared.OutboxStatusDead)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OutboxEntryModel
	if err := query.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

// FindByID retrieves a single outbox entry by ID
func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var row models.OutboxEntryModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// DeleteSentBefore removes delivered entries processed before the cutoff
func (r *GormOutboxRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	if !tenant.IsSystemScope(ctx) {
		return 0, ErrSystemScopeRequired
	}
	res := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&models.OutboxEntryModel{})
	return res.RowsAffected, res.Error
}

// CountByStatus returns the number of entries per status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	type statusCount struct {
		Status shared.OutboxStatus
		Count  int64
	}

	var results []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.OutboxEntryModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[shared.OutboxStatus]int64, len(results))
	for _, c := range results {
		counts[c.Status] = c.Count
	}
	return counts, nil
}

// Ensure GormOutboxRepository implements OutboxRepository
var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
