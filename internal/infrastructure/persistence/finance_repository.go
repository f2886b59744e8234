package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

func applyTitleFilter(query *gorm.DB, filter finance.TitleFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date < ? AND status IN ?", *filter.DueBefore,
			[]finance.TitleStatus{finance.TitleStatusOpen, finance.TitleStatusPartial})
	}
	return applyDateRange(query, "due_date", filter.Filter)
}

// GormReceivableRepository implements ReceivableRepository using GORM
type GormReceivableRepository struct {
	baseRepository
}

// NewGormReceivableRepository creates a new GormReceivableRepository
func NewGormReceivableRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormReceivableRepository {
	return &GormReceivableRepository{baseRepository{db: db, recorder: recorder}}
}

// FindByID finds a receivable by its ID
func (r *GormReceivableRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Receivable, error) {
	var model models.ReceivableModel
	if err := first(r.conn(ctx).Where("id = ?", id), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySale finds the receivable opened for a sale
func (r *GormReceivableRepository) FindBySale(ctx context.Context, saleID uuid.UUID) (*finance.Receivable, error) {
	var model models.ReceivableModel
	if err := first(r.conn(ctx).Where("sale_id = ?", saleID), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsBySale checks if a sale already has a receivable
func (r *GormReceivableRepository) ExistsBySale(ctx context.Context, saleID uuid.UUID) (bool, error) {
	return exists(r.conn(ctx).Model(&models.ReceivableModel{}).Where("sale_id = ?", saleID))
}

// FindAll lists receivables
func (r *GormReceivableRepository) FindAll(ctx context.Context, filter finance.TitleFilter) ([]finance.Receivable, int64, error) {
	query := applyTitleFilter(r.conn(ctx).Model(&models.ReceivableModel{}), filter)
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}

	query, total, err := paginate(query, filter.Filter, TitleSortFields, "due_date")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.ReceivableModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	list := make([]finance.Receivable, len(rows))
	for i := range rows {
		list[i] = *rows[i].ToDomain()
	}
	return list, total, nil
}

// Save creates or updates a receivable
func (r *GormReceivableRepository) Save(ctx context.Context, rec *finance.Receivable) error {
	return r.saveAggregate(ctx, models.ReceivableModelFromDomain(rec), &rec.BaseAggregateRoot, nil)
}

var _ finance.ReceivableRepository = (*GormReceivableRepository)(nil)

// GormPayableRepository implements PayableRepository using GORM
type GormPayableRepository struct {
	baseRepository
}

// NewGormPayableRepository creates a new GormPayableRepository
func NewGormPayableRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormPayableRepository {
	return &GormPayableRepository{baseRepository{db: db, recorder: recorder}}
}

// FindByID finds a payable by its ID
func (r *GormPayableRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Payable, error) {
	var model models.PayableModel
	if err := first(r.conn(ctx).Where("id = ?", id), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists payables
func (r *GormPayableRepository) FindAll(ctx context.Context, filter finance.TitleFilter) ([]finance.Payable, int64, error) {
	query := applyTitleFilter(r.conn(ctx).Model(&models.PayableModel{}), filter)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(supplier) LIKE ?", likePattern(filter.Search))
	}

	query, total, err := paginate(query, filter.Filter, TitleSortFields, "due_date")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.PayableModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	list := make([]finance.Payable, len(rows))
	for i := range rows {
		list[i] = *rows[i].ToDomain()
	}
	return list, total, nil
}

// Save creates or updates a payable and appends its new payments
func (r *GormPayableRepository) Save(ctx context.Context, p *finance.Payable) error {
	payments := models.PayablePaymentModels(p)
	err := r.saveAggregate(ctx, models.PayableModelFromDomain(p), &p.BaseAggregateRoot, func(tx *gorm.DB) error {
		if len(payments) == 0 {
			return nil
		}
		return tx.Create(&payments).Error
	})
	if err != nil {
		return err
	}
	p.Payments = nil
	return nil
}

var _ finance.PayableRepository = (*GormPayableRepository)(nil)

// GormCommissionRepository implements CommissionRepository using GORM
type GormCommissionRepository struct {
	baseRepository
}

// NewGormCommissionRepository creates a new GormCommissionRepository
func NewGormCommissionRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormCommissionRepository {
	return &GormCommissionRepository{baseRepository{db: db, recorder: recorder}}
}

// FindBySale finds the commission accrued on a sale
func (r *GormCommissionRepository) FindBySale(ctx context.Context, saleID uuid.UUID) (*finance.Commission, error) {
	var model models.CommissionModel
	if err := first(r.conn(ctx).Where("sale_id = ?", saleID), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsBySale checks if a sale already has a commission
func (r *GormCommissionRepository) ExistsBySale(ctx context.Context, saleID uuid.UUID) (bool, error) {
	return exists(r.conn(ctx).Model(&models.CommissionModel{}).Where("sale_id = ?", saleID))
}

// FindAll lists commissions by seller, status and accrual period
func (r *GormCommissionRepository) FindAll(ctx context.Context, filter finance.CommissionFilter) ([]finance.Commission, int64, error) {
	query := r.conn(ctx).Model(&models.CommissionModel{})
	query = applyDateRange(query, "accrued_at", filter.Filter)
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query, total, err := paginate(query, filter.Filter, CommissionSortFields, "accrued_at")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.CommissionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	list := make([]finance.Commission, len(rows))
	for i := range rows {
		list[i] = *rows[i].ToDomain()
	}
	return list, total, nil
}

// FindPending returns the seller's pending commissions accrued in [from, to)
func (r *GormCommissionRepository) FindPending(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]finance.Commission, error) {
	var rows []models.CommissionModel
	err := r.conn(ctx).
		Where("seller_id = ? AND status = ? AND accrued_at >= ? AND accrued_at < ?",
			sellerID, finance.CommissionStatusPending, from, to).
		Order("accrued_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	list := make([]finance.Commission, len(rows))
	for i := range rows {
		list[i] = *rows[i].ToDomain()
	}
	return list, nil
}

// Save creates or updates a commission
func (r *GormCommissionRepository) Save(ctx context.Context, c *finance.Commission) error {
	return r.saveAggregate(ctx, models.CommissionModelFromDomain(c), &c.BaseAggregateRoot, nil)
}

var _ finance.CommissionRepository = (*GormCommissionRepository)(nil)
