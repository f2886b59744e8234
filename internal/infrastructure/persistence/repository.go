package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txKey struct{}

// GormTransactor implements shared.Transactor by carrying the *gorm.DB
// transaction in the context.
type GormTransactor struct {
	db *tenant.TenantDB
}

// NewGormTransactor creates a new GormTransactor
func NewGormTransactor(db *tenant.TenantDB) *GormTransactor {
	return &GormTransactor{db: db}
}

// WithinTransaction runs fn in a transaction bound to ctx's tenant. If ctx already
// carries a transaction, fn joins it.
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}
	return t.db.Transaction(ctx, func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// TxFromContext returns the transaction carried by ctx
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

var _ shared.Transactor = (*GormTransactor)(nil)

// baseRepository holds what every GORM repository needs
type baseRepository struct {
	db       *tenant.TenantDB
	recorder shared.EventRecorder
}

// conn returns the session for ctx: the carried transaction, or a new tenant-bound
// session.
func (r *baseRepository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// inTx runs fn in the carried transaction or a new one
func (r *baseRepository) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(tx.WithContext(ctx))
	}
	return r.db.Transaction(ctx, fn)
}

// saveAggregate inserts a new aggregate or updates a persisted one under optimistic
// locking, runs children in the same transaction and records the pending domain
// events.
func (r *baseRepository) saveAggregate(ctx context.Context, model any, agg *shared.BaseAggregateRoot, children func(tx *gorm.DB) error) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		if agg.IsNew() {
			if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
				return translateError(err)
			}
		} else {
			res := tx.Model(model).
				Omit(clause.Associations).
				Where("version = ?", agg.LoadedVersion()).
				Select("*").
				Updates(model)
			if res.Error != nil {
				return translateError(res.Error)
			}
			if res.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}
		}

		if children != nil {
			if err := children(tx); err != nil {
				return err
			}
		}

		if events := agg.GetDomainEvents(); len(events) > 0 && r.recorder != nil {
			if err := r.recorder.Record(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to record domain events: %w", err)
			}
		}

		agg.MarkPersisted()
		agg.ClearDomainEvents()
		return nil
	})
}

// first loads a single row into dest, mapping a miss to shared.ErrNotFound
func first(db *gorm.DB, dest any) error {
	if err := db.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}
	return nil
}

// exists reports whether the query matches any row
func exists(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func translateError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	case errors.Is(err, tenant.ErrTenantMismatch):
		return shared.ErrTenantMismatch
	}
	return err
}

// paginate counts the filtered rows, then applies ordering and paging.
// allowed whitelists the sortable columns.
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) (*gorm.DB, int64, error) {
	filter = filter.Normalize()

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	dir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(field + " " + dir).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
	return query, total, nil
}

// applyDateRange restricts column to [From, To)
func applyDateRange(query *gorm.DB, column string, filter shared.Filter) *gorm.DB {
	if filter.From != nil {
		query = query.Where(column+" >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where(column+" < ?", *filter.To)
	}
	return query
}

// likePattern builds a contains pattern for the accent-folded search key
func likePattern(search string) string {
	s := strings.NewReplacer("%", "", "_", "").Replace(valueobject.SearchKey(search))
	return "%" + s + "%"
}
