package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const AggregateTypeRoute = "DeliveryRoute"

// RouteStatus is the lifecycle of a delivery route
type RouteStatus string

const (
	RouteStatusPlanned    RouteStatus = "planned"
	RouteStatusInProgress RouteStatus = "in_progress"
	RouteStatusCompleted  RouteStatus = "completed"
)

// StopStatus is the lifecycle of a single drop-off
type StopStatus string

const (
	StopStatusPending   StopStatus = "pending"
	StopStatusDelivered StopStatus = "delivered"
	StopStatusFailed    StopStatus = "failed"
)

// StopInput is a requested drop-off
type StopInput struct {
	ClientID uuid.UUID
	SaleID   *uuid.UUID
	Address  string
	Location valueobject.Coordinates
}

// Stop is a drop-off on a route, in visiting order
type Stop struct {
	ID          uuid.UUID
	Sequence    int
	ClientID    uuid.UUID
	SaleID      *uuid.UUID
	Address     string
	Location    valueobject.Coordinates
	LegKm       decimal.Decimal
	Status      StopStatus
	CompletedAt *time.Time
	Note        string
}

// Route is a driver's delivery run for a day
type Route struct {
	shared.TenantAggregateRoot
	DriverID   uuid.UUID
	Date       time.Time
	Origin     valueobject.Coordinates
	Stops      []Stop
	DistanceKm decimal.Decimal
	Fee        valueobject.Money
	Status     RouteStatus
}

// PlanRoute orders the stops by nearest neighbour from the shop and prices the run
func PlanRoute(tenantID, driverID uuid.UUID, date time.Time, origin valueobject.Coordinates, stops []StopInput, pricing Pricing, orderTotal valueobject.Money) (*Route, error) {
	if len(stops) == 0 {
		return nil, shared.NewDomainError("INVALID_STOPS", "A route needs at least one stop")
	}
	for _, s := range stops {
		if s.Location.IsZero() {
			return nil, shared.NewDomainError("MISSING_LOCATION", "Every stop needs coordinates")
		}
	}

	order, legs, total := nearestNeighbour(origin, stops)
	quote, err := pricing.Quote(total, len(stops), orderTotal)
	if err != nil {
		return nil, err
	}

	r := &Route{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DriverID:            driverID,
		Date:                date,
		Origin:              origin,
		DistanceKm:          quote.DistanceKm,
		Fee:                 quote.Fee,
		Status:              RouteStatusPlanned,
		Stops:               make([]Stop, len(order)),
	}
	for i, idx := range order {
		in := stops[idx]
		r.Stops[i] = Stop{
			ID:       uuid.New(),
			Sequence: i + 1,
			ClientID: in.ClientID,
			SaleID:   in.SaleID,
			Address:  in.Address,
			Location: in.Location,
			LegKm:    decimal.NewFromFloat(legs[i]).Round(2),
			Status:   StopStatusPending,
		}
	}

	r.AddDomainEvent(&RoutePlannedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRoutePlanned, AggregateTypeRoute, r.ID, tenantID),
		DriverID:        driverID,
		Date:            date,
		Stops:           len(r.Stops),
		DistanceKm:      r.DistanceKm,
		Fee:             r.Fee.Amount(),
	})
	return r, nil
}

// nearestNeighbour returns the visiting order, each leg length and the total distance
func nearestNeighbour(origin valueobject.Coordinates, stops []StopInput) ([]int, []float64, float64) {
	visited := make([]bool, len(stops))
	order := make([]int, 0, len(stops))
	legs := make([]float64, 0, len(stops))
	total := 0.0
	current := origin

	for range stops {
		best, bestDist := -1, 0.0
		for i, s := range stops {
			if visited[i] {
				continue
			}
			d := current.DistanceKm(s.Location)
			if best == -1 || d < bestDist {
				best, bestDist = i, d
			}
		}
		visited[best] = true
		order = append(order, best)
		legs = append(legs, bestDist)
		total += bestDist
		current = stops[best].Location
	}
	return order, legs, total
}

// CompleteStop records the outcome of a drop-off
func (r *Route) CompleteStop(stopID uuid.UUID, delivered bool, note string, at time.Time) error {
	if r.Status == RouteStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", "Route is already completed")
	}
	idx := -1
	for i := range r.Stops {
		if r.Stops[i].ID == stopID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.NewDomainError("NOT_FOUND", "Stop not found on route")
	}
	stop := &r.Stops[idx]
	if stop.Status != StopStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Stop was already completed")
	}

	stop.Status = StopStatusFailed
	if delivered {
		stop.Status = StopStatusDelivered
	}
	stop.CompletedAt = &at
	stop.Note = note
	r.Status = RouteStatusInProgress
	if r.pendingStops() == 0 {
		r.Status = RouteStatusCompleted
	}
	r.IncrementVersion()

	r.AddDomainEvent(&StopCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStopCompleted, AggregateTypeRoute, r.ID, r.TenantID),
		StopID:          stop.ID,
		ClientID:        stop.ClientID,
		SaleID:          stop.SaleID,
		Delivered:       delivered,
		RouteCompleted:  r.Status == RouteStatusCompleted,
	})
	return nil
}

func (r *Route) pendingStops() int {
	n := 0
	for _, s := range r.Stops {
		if s.Status == StopStatusPending {
			n++
		}
	}
	return n
}
