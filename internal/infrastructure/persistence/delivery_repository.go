package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/delivery"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRouteRepository implements RouteRepository using GORM
type GormRouteRepository struct {
	baseRepository
}

// NewGormRouteRepository creates a new GormRouteRepository
func NewGormRouteRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormRouteRepository {
	return &GormRouteRepository{baseRepository{db: db, recorder: recorder}}
}

func preloadStops(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// FindByID finds a route with its stops in visiting order
func (r *GormRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.Route, error) {
	var model models.RouteModel
	if err := first(r.conn(ctx).Preload("Stops", preloadStops).Where("id = ?", id), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists routes by driver, day and status
func (r *GormRouteRepository) FindAll(ctx context.Context, filter delivery.RouteFilter) ([]delivery.Route, int64, error) {
	query := r.conn(ctx).Model(&models.RouteModel{})
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.Date != nil {
		query = query.Where("date = ?", *filter.Date)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = applyDateRange(query, "date", filter.Filter)

	query, total, err := paginate(query, filter.Filter, RouteSortFields, "date")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.RouteModel
	if err := query.Preload("Stops", preloadStops).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	list := make([]delivery.Route, len(rows))
	for i := range rows {
		list[i] = *rows[i].ToDomain()
	}
	return list, total, nil
}

// Save creates or updates a route and upserts its stops
func (r *GormRouteRepository) Save(ctx context.Context, route *delivery.Route) error {
	model := models.RouteModelFromDomain(route)
	return r.saveAggregate(ctx, model, &route.BaseAggregateRoot, func(tx *gorm.DB) error {
		if len(model.Stops) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&model.Stops).Error
	})
}

var _ delivery.RouteRepository = (*GormRouteRepository)(nil)
