package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/crm"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormConversationRepository implements ConversationRepository using GORM
type GormConversationRepository struct {
	baseRepository
}

// NewGormConversationRepository creates a new GormConversationRepository
func NewGormConversationRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormConversationRepository {
	return &GormConversationRepository{baseRepository{db: db, recorder: recorder}}
}

// FindByID finds a conversation by its ID
func (r *GormConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Conversation, error) {
	var model models.ConversationModel
	if err := first(r.conn(ctx).Where("id = ?", id), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByClient finds the conversation of a client
func (r *GormConversationRepository) FindByClient(ctx context.Context, clientID uuid.UUID) (*crm.Conversation, error) {
	var model models.ConversationModel
	if err := first(r.conn(ctx).Where("client_id = ?", clientID), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists conversations, most recent activity first by default.
// Filters: unread (bool).
func (r *GormConversationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]crm.Conversation, int64, error) {
	query := r.conn(ctx).Model(&models.ConversationModel{})
	if unread, ok := filter.Filters["unread"].(bool); ok && unread {
		query = query.Where("unread > 0")
	}
	if filter.Search != "" {
		query = query.Where("phone LIKE ?", "%"+filter.Search+"%")
	}

	query, total, err := paginate(query, filter, ConversationSortFields, "last_message_at")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.ConversationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	list := make([]crm.Conversation, len(rows))
	for i := range rows {
		list[i] = *rows[i].ToDomain()
	}
	return list, total, nil
}

// ListMessages pages through a conversation, newest first
func (r *GormConversationRepository) ListMessages(ctx context.Context, convID uuid.UUID, filter shared.Filter) ([]crm.Message, int64, error) {
	filter = filter.Normalize()
	query := r.conn(ctx).Model(&models.MessageModel{}).Where("conversation_id = ?", convID)
	query = applyDateRange(query, "sent_at", filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.MessageModel
	if err := query.Order("sent_at " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	list := make([]crm.Message, len(rows))
	for i := range rows {
		list[i] = *rows[i].ToDomain()
	}
	return list, total, nil
}

// MessageExists reports whether a WhatsApp message id was already stored
func (r *GormConversationRepository) MessageExists(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	return exists(r.conn(ctx).Model(&models.MessageModel{}).Where("external_id = ?", externalID))
}

// Save creates or updates a conversation and inserts the messages appended since load
func (r *GormConversationRepository) Save(ctx context.Context, conv *crm.Conversation) error {
	model := models.ConversationModelFromDomain(conv)
	err := r.saveAggregate(ctx, model, &conv.BaseAggregateRoot, func(tx *gorm.DB) error {
		pending := conv.PendingMessages()
		if len(pending) == 0 {
			return nil
		}
		rows := make([]*models.MessageModel, len(pending))
		for i, m := range pending {
			m.ConvID = conv.ID
			rows[i] = models.MessageModelFromDomain(m)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return translateError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	conv.ClearPending()
	return nil
}

// UpdateMessage stores the delivery outcome of a message
func (r *GormConversationRepository) UpdateMessage(ctx context.Context, msg *crm.Message) error {
	model := models.MessageModelFromDomain(msg)
	res := r.conn(ctx).Model(model).Select("external_id", "status", "error").Updates(model)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ crm.ConversationRepository = (*GormConversationRepository)(nil)
