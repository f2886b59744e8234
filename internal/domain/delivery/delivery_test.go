package delivery

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brl(cents int64) valueobject.Money { return valueobject.NewMoneyFromCents(cents) }

var testPricing = Pricing{
	BaseFee:       brl(500),
	PerKm:         brl(150),
	PerExtraStop:  brl(200),
	FreeAbove:     brl(20000),
	MaxDistanceKm: 15,
}

func TestPricing_Quote(t *testing.T) {
	q, err := testPricing.Quote(4.333, 1, brl(5000))
	require.NoError(t, err)
	// 5.00 + 1.50 × 4.33 = 11.495 → 11.50
	assert.Equal(t, "4.33", q.DistanceKm.String())
	assert.Equal(t, "11.50", q.Fee.String())
	assert.False(t, q.Waived)

	q, err = testPricing.Quote(4, 3, brl(5000))
	require.NoError(t, err)
	assert.Equal(t, "15.00", q.Fee.String())

	q, err = testPricing.Quote(4, 1, brl(20000))
	require.NoError(t, err)
	assert.True(t, q.Waived)
	assert.True(t, q.Fee.IsZero())

	_, err = testPricing.Quote(16, 1, brl(0))
	assert.Error(t, err)
	_, err = testPricing.Quote(-1, 1, brl(0))
	assert.Error(t, err)
	_, err = testPricing.Quote(1, 0, brl(0))
	assert.Error(t, err)
}

func TestPlanRoute_NearestNeighbour(t *testing.T) {
	origin := valueobject.Coordinates{Lat: -23.5505, Lng: -46.6333}
	far := StopInput{ClientID: uuid.New(), Location: valueobject.Coordinates{Lat: -23.6000, Lng: -46.6333}}
	near := StopInput{ClientID: uuid.New(), Location: valueobject.Coordinates{Lat: -23.5600, Lng: -46.6333}}
	mid := StopInput{ClientID: uuid.New(), Location: valueobject.Coordinates{Lat: -23.5800, Lng: -46.6333}}

	r, err := PlanRoute(uuid.New(), uuid.New(), time.Now(), origin, []StopInput{far, near, mid}, testPricing, brl(0))
	require.NoError(t, err)

	require.Len(t, r.Stops, 3)
	assert.Equal(t, near.ClientID, r.Stops[0].ClientID)
	assert.Equal(t, mid.ClientID, r.Stops[1].ClientID)
	assert.Equal(t, far.ClientID, r.Stops[2].ClientID)
	assert.Equal(t, 3, r.Stops[2].Sequence)
	// straight line south, so the total is origin→far ≈ 5.5 km
	assert.InDelta(t, 5.5, r.DistanceKm.InexactFloat64(), 0.1)
	assert.Equal(t, RouteStatusPlanned, r.Status)
	assert.Len(t, r.GetDomainEvents(), 1)
}

func TestPlanRoute_Validation(t *testing.T) {
	origin := valueobject.Coordinates{Lat: -23.5505, Lng: -46.6333}

	_, err := PlanRoute(uuid.New(), uuid.New(), time.Now(), origin, nil, testPricing, brl(0))
	assert.Error(t, err)

	_, err = PlanRoute(uuid.New(), uuid.New(), time.Now(), origin, []StopInput{{ClientID: uuid.New()}}, testPricing, brl(0))
	assert.Error(t, err)
}

func TestRoute_CompleteStop(t *testing.T) {
	origin := valueobject.Coordinates{Lat: -23.5505, Lng: -46.6333}
	stops := []StopInput{
		{ClientID: uuid.New(), Location: valueobject.Coordinates{Lat: -23.5600, Lng: -46.6333}},
		{ClientID: uuid.New(), Location: valueobject.Coordinates{Lat: -23.5700, Lng: -46.6333}},
	}
	r, err := PlanRoute(uuid.New(), uuid.New(), time.Now(), origin, stops, testPricing, brl(0))
	require.NoError(t, err)
	r.ClearDomainEvents()

	require.NoError(t, r.CompleteStop(r.Stops[0].ID, true, "", time.Now()))
	assert.Equal(t, RouteStatusInProgress, r.Status)
	assert.Error(t, r.CompleteStop(r.Stops[0].ID, true, "", time.Now()))
	assert.Error(t, r.CompleteStop(uuid.New(), true, "", time.Now()))

	require.NoError(t, r.CompleteStop(r.Stops[1].ID, false, "client absent", time.Now()))
	assert.Equal(t, RouteStatusCompleted, r.Status)
	assert.Equal(t, StopStatusFailed, r.Stops[1].Status)
	assert.Len(t, r.GetDomainEvents(), 2)
}
