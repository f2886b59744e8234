package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	baseRepository
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormClientRepository {
	return &GormClientRepository{baseRepository{db: db, recorder: recorder}}
}

// FindByID finds a client by its ID, with pets
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Client, error) {
	var model models.ClientModel
	query := r.conn(ctx).Preload("Pets", func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC")
	}).Where("id = ?", id)
	if err := first(query, &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPhone finds a client by normalized phone
func (r *GormClientRepository) FindByPhone(ctx context.Context, phone valueobject.Phone) (*partner.Client, error) {
	if phone == "" {
		return nil, shared.NewDomainError("INVALID_PHONE", "Phone cannot be empty")
	}
	var model models.ClientModel
	query := r.conn(ctx).Preload("Pets").Where("phone = ?", phone.String()).Order("created_at ASC")
	if err := first(query, &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists clients; Search matches the accent-folded name or the phone digits
func (r *GormClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Client, int64, error) {
	query := r.conn(ctx).Model(&models.ClientModel{})
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("(search_key LIKE ? OR phone LIKE ?)", p, p)
	}
	if source, ok := filter.Filters["source"].(string); ok && source != "" {
		query = query.Where("source = ?", source)
	}

	query, total, err := paginate(query, filter, ClientSortFields, "name")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.ClientModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	clients := make([]partner.Client, len(rows))
	for i := range rows {
		clients[i] = *rows[i].ToDomain()
	}
	return clients, total, nil
}

// Save creates or updates a client and upserts its pets
func (r *GormClientRepository) Save(ctx context.Context, c *partner.Client) error {
	return r.saveAggregate(ctx, models.ClientModelFromDomain(c), &c.BaseAggregateRoot, func(tx *gorm.DB) error {
		if len(c.Pets) == 0 {
			return nil
		}
		pets := make([]*models.PetModel, len(c.Pets))
		for i := range c.Pets {
			pets[i] = models.PetModelFromDomain(&c.Pets[i])
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&pets).Error
	})
}

// Delete removes a client and its pets
func (r *GormClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&models.PetModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.ClientModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ListPets returns the pets of a client ordered by name
func (r *GormClientRepository) ListPets(ctx context.Context, clientID uuid.UUID) ([]partner.Pet, error) {
	var rows []models.PetModel
	if err := r.conn(ctx).Where("client_id = ?", clientID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	pets := make([]partner.Pet, len(rows))
	for i := range rows {
		pets[i] = *rows[i].ToDomain()
	}
	return pets, nil
}

var _ partner.ClientRepository = (*GormClientRepository)(nil)
