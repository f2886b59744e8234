package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	baseRepository
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormSaleRepository {
	return &GormSaleRepository{baseRepository{db: db, recorder: recorder}}
}

// FindByID finds a sale with its items
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var model models.SaleModel
	if err := first(r.conn(ctx).Preload("Items").Where("id = ?", id), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists sales by completion date range, seller, client and status
func (r *GormSaleRepository) FindAll(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, int64, error) {
	query := r.conn(ctx).Model(&models.SaleModel{})
	query = applyDateRange(query, "completed_at", filter.Filter)
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		query = query.Where("number LIKE ?", "%"+filter.Search+"%")
	}

	query, total, err := paginate(query, filter.Filter, SaleSortFields, "completed_at")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.SaleModel
	if err := query.Preload("Items").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	list := make([]sales.Sale, len(rows))
	for i := range rows {
		list[i] = *rows[i].ToDomain()
	}
	return list, total, nil
}

// Save creates or updates a sale. Items are immutable and written on insert only.
func (r *GormSaleRepository) Save(ctx context.Context, s *sales.Sale) error {
	model := models.SaleModelFromDomain(s)
	isNew := s.IsNew()
	return r.saveAggregate(ctx, model, &s.BaseAggregateRoot, func(tx *gorm.DB) error {
		if !isNew || len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
}

var _ sales.SaleRepository = (*GormSaleRepository)(nil)
