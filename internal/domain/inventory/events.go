package inventory

import (
	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventTypeStockAdjusted = "StockAdjusted"
	EventTypeStockLow      = "StockLow"
)

// StockAdjustedEvent is published for every stock movement
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID       `json:"product_id"`
	SKU          string          `json:"sku"`
	MovementType MovementType    `json:"movement_type"`
	Delta        decimal.Decimal `json:"delta"`
	OnHand       decimal.Decimal `json:"on_hand"`
	MinStock     decimal.Decimal `json:"min_stock"`
	Reason       string          `json:"reason,omitempty"`

	// ProductVersion is the product version after the movement. It orders the
	// stock snapshots of one product.
	ProductVersion int `json:"product_version"`
}

// StockLowEvent is published when stock crosses down to the reorder threshold
type StockLowEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	OnHand    decimal.Decimal `json:"on_hand"`
	MinStock  decimal.Decimal `json:"min_stock"`

	// ProductVersion is the version of the StockAdjusted snapshot this event follows
	ProductVersion int `json:"product_version"`
}
