package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// CreateReceivableRequest charges a client manually
type CreateReceivableRequest struct {
	ClientID    uuid.UUID       `json:"client_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	DueDate     time.Time       `json:"due_date" binding:"required"`
	Description string          `json:"description" binding:"max=500"`
}

// SettleRequest applies a (possibly partial) payment to a title
type SettleRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	PaidAt *time.Time      `json:"paid_at"`
}

// CreatePayableRequest records a bill to pay
type CreatePayableRequest struct {
	Supplier    string          `json:"supplier" binding:"required,min=1,max=200"`
	Category    string          `json:"category" binding:"required,oneof=supplier rent payroll utilities marketing taxes other"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	DueDate     time.Time       `json:"due_date" binding:"required"`
	Description string          `json:"description" binding:"max=500"`
	Document    string          `json:"document" binding:"max=100"`
}

// ListTitlesRequest narrows receivable and payable listings
type ListTitlesRequest struct {
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir"`
	Status   string     `form:"status" binding:"omitempty,oneof=open partial paid cancelled"`
	Overdue  bool       `form:"overdue"`
	ClientID *uuid.UUID `form:"client_id"`
	Category string     `form:"category"`
}

// ListCommissionsRequest narrows commission listings
type ListCommissionsRequest struct {
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	SellerID *uuid.UUID `form:"seller_id"`
	Status   string     `form:"status" binding:"omitempty,oneof=pending paid cancelled"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
}

// PayCommissionsRequest settles a seller's pending commissions accrued in [from, to)
type PayCommissionsRequest struct {
	SellerID uuid.UUID `json:"seller_id" binding:"required"`
	From     time.Time `json:"from" binding:"required"`
	To       time.Time `json:"to" binding:"required"`
}

// ReceivableResponse is the API view of a receivable
type ReceivableResponse struct {
	ID          uuid.UUID       `json:"id"`
	ClientID    uuid.UUID       `json:"client_id"`
	SaleID      *uuid.UUID      `json:"sale_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DueDate     time.Time       `json:"due_date"`
	Status      string          `json:"status"`
	Overdue     bool            `json:"overdue"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToReceivableResponse converts a domain receivable
func ToReceivableResponse(r *finance.Receivable, now time.Time) ReceivableResponse {
	return ReceivableResponse{
		ID:          r.ID,
		ClientID:    r.ClientID,
		SaleID:      r.SaleID,
		Description: r.Description,
		Amount:      r.Amount.Amount(),
		PaidAmount:  r.PaidAmount.Amount(),
		Outstanding: r.Outstanding().Amount(),
		DueDate:     r.DueDate,
		Status:      string(r.Status),
		Overdue:     r.IsOverdue(now),
		PaidAt:      r.PaidAt,
		CreatedAt:   r.CreatedAt,
	}
}

// PayableResponse is the API view of a payable
type PayableResponse struct {
	ID          uuid.UUID       `json:"id"`
	Supplier    string          `json:"supplier"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Document    string          `json:"document,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DueDate     time.Time       `json:"due_date"`
	Status      string          `json:"status"`
	Overdue     bool            `json:"overdue"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
}

// ToPayableResponse converts a domain payable
func ToPayableResponse(p *finance.Payable, now time.Time) PayableResponse {
	return PayableResponse{
		ID:          p.ID,
		Supplier:    p.Supplier,
		Category:    string(p.Category),
		Description: p.Description,
		Document:    p.Document,
		Amount:      p.Amount.Amount(),
		PaidAmount:  p.PaidAmount.Amount(),
		Outstanding: p.Outstanding().Amount(),
		DueDate:     p.DueDate,
		Status:      string(p.Status),
		Overdue:     p.IsOverdue(now),
		PaidAt:      p.PaidAt,
	}
}

// CommissionResponse is the API view of a commission
type CommissionResponse struct {
	ID        uuid.UUID       `json:"id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	SaleID    uuid.UUID       `json:"sale_id"`
	SaleTotal decimal.Decimal `json:"sale_total"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	AccruedAt time.Time       `json:"accrued_at"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
}

// ToCommissionResponse converts a domain commission
func ToCommissionResponse(c *finance.Commission) CommissionResponse {
	return CommissionResponse{
		ID:        c.ID,
		SellerID:  c.SellerID,
		SaleID:    c.SaleID,
		SaleTotal: c.SaleTotal.Amount(),
		Rate:      c.Rate,
		Amount:    c.Amount.Amount(),
		Status:    string(c.Status),
		AccruedAt: c.AccruedAt,
		PaidAt:    c.PaidAt,
	}
}

// PayoutResponse summarizes a commission payout
type PayoutResponse struct {
	SellerID uuid.UUID       `json:"seller_id"`
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	PaidAt   time.Time       `json:"paid_at"`
}
