package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	baseRepository
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormProductRepository {
	return &GormProductRepository{baseRepository{db: db, recorder: recorder}}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := first(r.conn(ctx).Where("id = ?", id), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple products by their IDs. Missing ids are silently skipped.
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// FindBySKU finds a product by SKU within the context tenant
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := first(r.conn(ctx).Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsBySKU checks if a SKU is taken within the context tenant
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return exists(r.conn(ctx).Model(&models.ProductModel{}).
		Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))))
}

// FindAll lists products. Filters: kind, category, active (bool), low_stock (bool).
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	query := r.conn(ctx).Model(&models.ProductModel{})
	if filter.Search != "" {
		query = query.Where("(search_key LIKE ? OR sku LIKE ?)",
			likePattern(filter.Search), "%"+strings.ToUpper(strings.TrimSpace(filter.Search))+"%")
	}
	if kind, ok := filter.Filters["kind"].(string); ok && kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if category, ok := filter.Filters["category"].(string); ok && category != "" {
		query = query.Where("category = ?", category)
	}
	if active, ok := filter.Filters["active"].(bool); ok {
		query = query.Where("active = ?", active)
	}
	if low, ok := filter.Filters["low_stock"].(bool); ok && low {
		query = query.Where("kind = ? AND stock <= min_stock", catalog.ProductKindProduct)
	}

	query, total, err := paginate(query, filter, ProductSortFields, "name")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.ProductModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, total, nil
}

// Save creates or updates a product under optimistic locking
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	return r.saveAggregate(ctx, models.ProductModelFromDomain(p), &p.BaseAggregateRoot, nil)
}

// SaveWithLock takes a row lock before the version check, so concurrent stock
// movements on the same product queue instead of failing late.
func (r *GormProductRepository) SaveWithLock(ctx context.Context, p *catalog.Product) error {
	if p.IsNew() {
		return r.Save(ctx, p)
	}
	return r.inTx(ctx, func(tx *gorm.DB) error {
		var current models.ProductModel
		err := first(tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "version").
			Where("id = ?", p.ID), &current)
		if err != nil {
			return err
		}
		if current.Version != p.LoadedVersion() {
			return shared.ErrConcurrencyConflict
		}
		return r.saveAggregate(context.WithValue(ctx, txKey{}, tx), models.ProductModelFromDomain(p), &p.BaseAggregateRoot, nil)
	})
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// GormStockMovementRepository implements StockMovementRepository using GORM
type GormStockMovementRepository struct {
	baseRepository
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *tenant.TenantDB) *GormStockMovementRepository {
	return &GormStockMovementRepository{baseRepository{db: db}}
}

// Create appends movements. tx may be a *gorm.DB; nil uses the context transaction.
func (r *GormStockMovementRepository) Create(ctx context.Context, tx any, movements ...*inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok || db == nil {
		db = r.conn(ctx)
	}
	rows := make([]*models.StockMovementModel, len(movements))
	for i, m := range movements {
		rows[i] = models.StockMovementModelFromDomain(m)
	}
	return db.Create(&rows).Error
}

// FindByProduct returns the ledger of a product, newest first by default
func (r *GormStockMovementRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]inventory.StockMovement, int64, error) {
	query := r.conn(ctx).Model(&models.StockMovementModel{}).Where("product_id = ?", productID)
	if t, ok := filter.Filters["type"].(string); ok && t != "" {
		query = query.Where("type = ?", t)
	}
	query = applyDateRange(query, "created_at", filter)

	query, total, err := paginate(query, filter, StockMovementSortFields, "created_at")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.StockMovementModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	movements := make([]inventory.StockMovement, len(rows))
	for i := range rows {
		movements[i] = *rows[i].ToDomain()
	}
	return movements, total, nil
}

// ExistsBySource reports whether a movement of the given type was already recorded for
// source and product. Event handlers use it to stay idempotent.
func (r *GormStockMovementRepository) ExistsBySource(ctx context.Context, sourceID, productID uuid.UUID, movementType inventory.MovementType) (bool, error) {
	return exists(r.conn(ctx).Model(&models.StockMovementModel{}).
		Where("source_id = ? AND product_id = ? AND type = ?", sourceID, productID, movementType))
}

var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
