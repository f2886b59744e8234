package delivery

import (
	"math"

	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Pricing is the delivery fee formula of a shop:
//
//	fee = base + per_km·distance + per_stop·(stops−1)
//
// waived when the order total reaches FreeAbove. Distance is capped by MaxDistanceKm.
type Pricing struct {
	BaseFee       valueobject.Money
	PerKm         valueobject.Money
	PerExtraStop  valueobject.Money
	FreeAbove     valueobject.Money // zero disables free delivery
	MaxDistanceKm float64           // zero disables the limit
}

// Quote is a computed delivery fee
type Quote struct {
	DistanceKm decimal.Decimal   `json:"distance_km"`
	Fee        valueobject.Money `json:"fee"`
	Waived     bool              `json:"waived"`
}

// Quote prices a delivery of the given distance and stop count for an order total
func (p Pricing) Quote(distanceKm float64, stops int, orderTotal valueobject.Money) (Quote, error) {
	if distanceKm < 0 || math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return Quote{}, shared.NewDomainError("INVALID_DISTANCE", "Distance must be a non-negative number")
	}
	if stops < 1 {
		return Quote{}, shared.NewDomainError("INVALID_STOPS", "A delivery needs at least one stop")
	}
	if p.MaxDistanceKm > 0 && distanceKm > p.MaxDistanceKm {
		return Quote{}, shared.NewDomainError("OUT_OF_RANGE", "Destination is outside the delivery area")
	}

	dist := decimal.NewFromFloat(distanceKm).Round(2)
	q := Quote{DistanceKm: dist}
	if p.FreeAbove.IsPositive() && orderTotal.GreaterThanOrEqual(p.FreeAbove) {
		q.Fee = valueobject.ZeroMoney()
		q.Waived = true
		return q, nil
	}

	fee := p.BaseFee.
		Add(p.PerKm.Mul(dist)).
		Add(p.PerExtraStop.MulInt(int64(stops - 1)))
	q.Fee = fee.Round()
	return q, nil
}
