package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// AdjustStockRequest books a manual stock movement. For ADJUSTMENT, Quantity is
// the counted on-hand stock.
type AdjustStockRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Type      string          `json:"type" binding:"required,oneof=IN OUT ADJUSTMENT"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Reason    string          `json:"reason" binding:"required,min=1,max=500"`
}

// MovementResponse is the API view of a stock movement
type MovementResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       string          `json:"reason,omitempty"`
	SourceID     *uuid.UUID      `json:"source_id,omitempty"`
	CreatedBy    *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// AdjustStockResponse returns the movement and the resulting stock
type AdjustStockResponse struct {
	Movement MovementResponse `json:"movement"`
	OnHand   decimal.Decimal  `json:"on_hand"`
	LowStock bool             `json:"low_stock"`
}

// ToMovementResponse converts a domain movement
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:           m.ID,
		ProductID:    m.ProductID,
		Type:         string(m.Type),
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reason:       m.Reason,
		SourceID:     m.SourceID,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
	}
}
