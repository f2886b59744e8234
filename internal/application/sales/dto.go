package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// CheckoutItemRequest is one line scanned at the counter
type CheckoutItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	Discount  *decimal.Decimal `json:"discount"`
}

// CheckoutRequest closes a sale
type CheckoutRequest struct {
	ClientID      *uuid.UUID            `json:"client_id"`
	PaymentMethod string                `json:"payment_method" binding:"required,oneof=cash pix debit credit account"`
	Discount      *decimal.Decimal      `json:"discount"`
	Notes         string                `json:"notes" binding:"max=1000"`
	Items         []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CancelSaleRequest voids a sale
type CancelSaleRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ListSalesRequest narrows sale listings
type ListSalesRequest struct {
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	SellerID *uuid.UUID `form:"seller_id"`
	ClientID *uuid.UUID `form:"client_id"`
	Status   string     `form:"status" binding:"omitempty,oneof=completed cancelled"`
}

// SaleItemResponse is the API view of a sale line
type SaleItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

// SaleResponse is the API view of a sale
type SaleResponse struct {
	ID            uuid.UUID          `json:"id"`
	Number        string             `json:"number"`
	ClientID      *uuid.UUID         `json:"client_id,omitempty"`
	SellerID      uuid.UUID          `json:"seller_id"`
	PaymentMethod string             `json:"payment_method"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Discount      decimal.Decimal    `json:"discount"`
	Total         decimal.Decimal    `json:"total"`
	CostTotal     decimal.Decimal    `json:"cost_total"`
	Status        string             `json:"status"`
	Notes         string             `json:"notes,omitempty"`
	Items         []SaleItemResponse `json:"items"`
	CompletedAt   time.Time          `json:"completed_at"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason  string             `json:"cancel_reason,omitempty"`
}

// ToSaleResponse converts a domain sale
func ToSaleResponse(s *sales.Sale) SaleResponse {
	items := make([]SaleItemResponse, len(s.Items))
	for i, it := range s.Items {
		items[i] = SaleItemResponse{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Amount(),
			Discount:  it.Discount.Amount(),
			Total:     it.Total.Amount(),
		}
	}
	return SaleResponse{
		ID:            s.ID,
		Number:        s.Number,
		ClientID:      s.ClientID,
		SellerID:      s.SellerID,
		PaymentMethod: string(s.PaymentMethod),
		Subtotal:      s.Subtotal.Amount(),
		Discount:      s.Discount.Amount(),
		Total:         s.Total.Amount(),
		CostTotal:     s.CostTotal.Amount(),
		Status:        string(s.Status),
		Notes:         s.Notes,
		Items:         items,
		CompletedAt:   s.CompletedAt,
		CancelledAt:   s.CancelledAt,
		CancelReason:  s.CancelReason,
	}
}
