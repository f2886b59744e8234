package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
)

// ClientRepository persists clients of the context tenant
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	FindByPhone(ctx context.Context, phone valueobject.Phone) (*Client, error)
	// FindAll matches filter.Search against the folded name and the phone digits
	FindAll(ctx context.Context, filter shared.Filter) ([]Client, int64, error)
	Save(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListPets(ctx context.Context, clientID uuid.UUID) ([]Pet, error)
}
