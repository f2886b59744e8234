package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStockedProduct(t *testing.T, stock, min int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(uuid.New(), "AREIA-4KG", "Areia sanitária", catalog.ProductKindProduct,
		valueobject.NewMoneyFromCents(2990), valueobject.NewMoneyFromCents(1500))
	require.NoError(t, err)
	p.Stock = decimal.NewFromInt(stock)
	p.MinStock = decimal.NewFromInt(min)
	return p
}

func TestApplyMovement_In(t *testing.T) {
	p := newStockedProduct(t, 2, 0)

	m, err := ApplyMovement(p, MovementRequest{Type: MovementIn, Quantity: decimal.NewFromInt(10), Reason: "NF 123"})
	require.NoError(t, err)

	assert.Equal(t, "12", p.Stock.String())
	assert.Equal(t, "10", m.Quantity.String())
	assert.Equal(t, "12", m.BalanceAfter.String())
	require.Len(t, p.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeStockAdjusted, p.GetDomainEvents()[0].EventType())
}

func TestApplyMovement_OutRejectsNegative(t *testing.T) {
	p := newStockedProduct(t, 2, 0)

	_, err := ApplyMovement(p, MovementRequest{Type: MovementOut, Quantity: decimal.NewFromInt(3)})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, "2", p.Stock.String())
	assert.Empty(t, p.GetDomainEvents())
}

func TestApplyMovement_SaleMayGoNegative(t *testing.T) {
	p := newStockedProduct(t, 1, 0)

	_, err := ApplyMovement(p, MovementRequest{Type: MovementSale, Quantity: decimal.NewFromInt(2)})
	require.NoError(t, err)
	assert.Equal(t, "-1", p.Stock.String())
}

func TestApplyMovement_Adjustment(t *testing.T) {
	p := newStockedProduct(t, 10, 0)

	m, err := ApplyMovement(p, MovementRequest{Type: MovementAdjustment, Quantity: decimal.NewFromInt(7), Reason: "inventory count"})
	require.NoError(t, err)
	assert.Equal(t, "-3", m.Quantity.String())
	assert.Equal(t, "7", p.Stock.String())
}

func TestApplyMovement_LowStockCrossing(t *testing.T) {
	p := newStockedProduct(t, 6, 5)

	_, err := ApplyMovement(p, MovementRequest{Type: MovementSale, Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)
	events := p.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeStockLow, events[1].EventType())

	p.ClearDomainEvents()
	_, err = ApplyMovement(p, MovementRequest{Type: MovementSale, Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Len(t, p.GetDomainEvents(), 1, "already low, no second alert")
}

func TestApplyMovement_Service(t *testing.T) {
	p := newStockedProduct(t, 0, 0)
	p.Kind = catalog.ProductKindService

	_, err := ApplyMovement(p, MovementRequest{Type: MovementIn, Quantity: decimal.NewFromInt(1)})
	assert.Error(t, err)
}
