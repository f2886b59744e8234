package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
)

// RouteFilter narrows route listings
type RouteFilter struct {
	shared.Filter
	DriverID *uuid.UUID
	Date     *time.Time
	Status   RouteStatus
}

// RouteRepository persists routes of the context tenant
type RouteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Route, error)
	FindAll(ctx context.Context, filter RouteFilter) ([]Route, int64, error)
	Save(ctx context.Context, route *Route) error
}
