package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventTypeRoutePlanned  = "RoutePlanned"
	EventTypeStopCompleted = "StopCompleted"
)

// RoutePlannedEvent is published when a delivery run is planned
type RoutePlannedEvent struct {
	shared.BaseDomainEvent
	DriverID   uuid.UUID       `json:"driver_id"`
	Date       time.Time       `json:"date"`
	Stops      int             `json:"stops"`
	DistanceKm decimal.Decimal `json:"distance_km"`
	Fee        decimal.Decimal `json:"fee"`
}

// StopCompletedEvent is published when the driver reports a drop-off
type StopCompletedEvent struct {
	shared.BaseDomainEvent
	StopID         uuid.UUID  `json:"stop_id"`
	ClientID       uuid.UUID  `json:"client_id"`
	SaleID         *uuid.UUID `json:"sale_id,omitempty"`
	Delivered      bool       `json:"delivered"`
	RouteCompleted bool       `json:"route_completed"`
}
