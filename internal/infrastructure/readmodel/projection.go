// Package readmodel folds domain events into denormalized read tables. Every
// projection is applied through a per-projection ledger of processed events, so
// live delivery, catch-up and full rebuilds can overlap without double counting.
package readmodel

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownProjection is returned for a projection name that is not registered
var ErrUnknownProjection = errors.New("readmodel: unknown projection")

// Projection maintains one family of read tables
type Projection interface {
	Name() string
	EventTypes() []string
	Handles(eventType string) bool
	// Apply folds event into the read tables using tx. ctx carries the event's tenant.
	Apply(ctx context.Context, tx *gorm.DB, event shared.DomainEvent) error
	// Reset deletes the projection's rows for one tenant, or for all tenants when
	// tenantID is nil
	Reset(ctx context.Context, tx *gorm.DB, tenantID *uuid.UUID) error
}

// eventSet implements EventTypes and Handles for a fixed list of event types
type eventSet []string

func (s eventSet) EventTypes() []string { return slices.Clone(s) }

func (s eventSet) Handles(eventType string) bool { return slices.Contains(s, eventType) }

// resetRows deletes model rows of one tenant or of the whole table
func resetRows(tx *gorm.DB, model any, tenantID *uuid.UUID) error {
	if tenantID != nil {
		return tx.Where("tenant_id = ?", *tenantID).Delete(model).Error
	}
	return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error
}

// upsertRow loads the row matching where into row, seeds it with init when missing,
// applies mutate and writes it back. The read is locked on drivers that support it.
func upsertRow[T any](tx *gorm.DB, row *T, init func(*T), mutate func(*T), where string, args ...any) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(where, args...).Take(row).Error
	switch {
	case err == nil:
		mutate(row)
		return tx.Save(row).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		init(row)
		mutate(row)
		return tx.Create(row).Error
	default:
		return err
	}
}
