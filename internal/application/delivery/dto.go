package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/delivery"
	"github.com/shopspring/decimal"
)

// PointRequest is a latitude/longitude pair
type PointRequest struct {
	Latitude  float64 `json:"latitude" binding:"latitude"`
	Longitude float64 `json:"longitude" binding:"longitude"`
}

// QuoteRequest prices a single delivery. The destination is either a client
// with a geocoded address or explicit coordinates; the origin defaults to the shop.
type QuoteRequest struct {
	Origin      *PointRequest   `json:"origin"`
	ClientID    *uuid.UUID      `json:"client_id"`
	Destination *PointRequest   `json:"destination"`
	OrderTotal  decimal.Decimal `json:"order_total"`
}

// RouteStopRequest is one drop-off of a new route
type RouteStopRequest struct {
	ClientID uuid.UUID  `json:"client_id" binding:"required"`
	SaleID   *uuid.UUID `json:"sale_id"`
}

// CreateRouteRequest plans a delivery run
type CreateRouteRequest struct {
	DriverID   uuid.UUID          `json:"driver_id" binding:"required"`
	Date       time.Time          `json:"date" binding:"required"`
	Stops      []RouteStopRequest `json:"stops" binding:"required,min=1,max=50,dive"`
	OrderTotal decimal.Decimal    `json:"order_total"`
}

// CompleteStopRequest reports the outcome of a drop-off
type CompleteStopRequest struct {
	Delivered bool   `json:"delivered"`
	Note      string `json:"note" binding:"max=500"`
}

// ListRoutesRequest narrows route listings
type ListRoutesRequest struct {
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	DriverID *uuid.UUID `form:"driver_id"`
	Date     *time.Time `form:"date" time_format:"2006-01-02"`
	Status   string     `form:"status" binding:"omitempty,oneof=planned in_progress completed"`
}

// QuoteResponse is a priced delivery
type QuoteResponse struct {
	DistanceKm decimal.Decimal `json:"distance_km"`
	Fee        decimal.Decimal `json:"fee"`
	Waived     bool            `json:"waived"`
}

// StopResponse is the API view of a stop
type StopResponse struct {
	ID          uuid.UUID       `json:"id"`
	Sequence    int             `json:"sequence"`
	ClientID    uuid.UUID       `json:"client_id"`
	SaleID      *uuid.UUID      `json:"sale_id,omitempty"`
	Address     string          `json:"address"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	LegKm       decimal.Decimal `json:"leg_km"`
	Status      string          `json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// RouteResponse is the API view of a route
type RouteResponse struct {
	ID         uuid.UUID       `json:"id"`
	DriverID   uuid.UUID       `json:"driver_id"`
	Date       time.Time       `json:"date"`
	DistanceKm decimal.Decimal `json:"distance_km"`
	Fee        decimal.Decimal `json:"fee"`
	Status     string          `json:"status"`
	Stops      []StopResponse  `json:"stops"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ToRouteResponse converts a domain route
func ToRouteResponse(r *delivery.Route) RouteResponse {
	stops := make([]StopResponse, len(r.Stops))
	for i, s := range r.Stops {
		stops[i] = StopResponse{
			ID:          s.ID,
			Sequence:    s.Sequence,
			ClientID:    s.ClientID,
			SaleID:      s.SaleID,
			Address:     s.Address,
			Latitude:    s.Location.Lat,
			Longitude:   s.Location.Lng,
			LegKm:       s.LegKm,
			Status:      string(s.Status),
			CompletedAt: s.CompletedAt,
			Note:        s.Note,
		}
	}
	return RouteResponse{
		ID:         r.ID,
		DriverID:   r.DriverID,
		Date:       r.Date,
		DistanceKm: r.DistanceKm,
		Fee:        r.Fee.Amount(),
		Status:     string(r.Status),
		Stops:      stops,
		CreatedAt:  r.CreatedAt,
	}
}
