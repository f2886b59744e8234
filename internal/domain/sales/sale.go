package sales

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const AggregateTypeSale = "Sale"

// SaleStatus is the lifecycle state of a sale
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// PaymentMethod is how the client paid at the counter
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentPix     PaymentMethod = "pix"
	PaymentDebit   PaymentMethod = "debit"
	PaymentCredit  PaymentMethod = "credit"
	PaymentAccount PaymentMethod = "account" // charged to the client's tab, settled later
)

// IsValid reports whether m is a known payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentPix, PaymentDebit, PaymentCredit, PaymentAccount:
		return true
	}
	return false
}

// SaleItem is one line of a sale. Prices are captured at checkout time.
type SaleItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	SKU       string
	Name      string
	Quantity  decimal.Decimal
	UnitPrice valueobject.Money
	UnitCost  valueobject.Money
	Discount  valueobject.Money
	Total     valueobject.Money
}

// Cost returns quantity times unit cost
func (i SaleItem) Cost() valueobject.Money {
	return i.UnitCost.Mul(i.Quantity).Round()
}

// ItemInput is a line requested at checkout
type ItemInput struct {
	ProductID uuid.UUID
	SKU       string
	Name      string
	Quantity  decimal.Decimal
	UnitPrice valueobject.Money
	UnitCost  valueobject.Money
	Discount  valueobject.Money
}

// Sale is a completed point-of-sale transaction
type Sale struct {
	shared.TenantAggregateRoot
	Number        string
	ClientID      *uuid.UUID
	SellerID      uuid.UUID
	Items         []SaleItem
	PaymentMethod PaymentMethod
	Subtotal      valueobject.Money
	Discount      valueobject.Money
	Total         valueobject.Money
	CostTotal     valueobject.Money
	Status        SaleStatus
	Notes         string
	CompletedAt   time.Time
	CancelledAt   *time.Time
	CancelReason  string
}

// NewSale prices the lines and completes the sale.
// line total = qty·unit price − line discount; total = Σ line totals − order discount.
func NewSale(tenantID, sellerID uuid.UUID, clientID *uuid.UUID, method PaymentMethod, orderDiscount valueobject.Money, items []ItemInput) (*Sale, error) {
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_SALE", "A sale needs at least one item")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method: "+string(method))
	}
	if method == PaymentAccount && clientID == nil {
		return nil, shared.NewDomainError("CLIENT_REQUIRED", "Sales on account require a client")
	}
	if orderDiscount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}

	s := &Sale{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ClientID:            clientID,
		SellerID:            sellerID,
		PaymentMethod:       method,
		Status:              SaleStatusCompleted,
		Items:               make([]SaleItem, 0, len(items)),
	}
	s.Number = NewSaleNumber(s.CreatedAt, s.ID)

	subtotal := valueobject.ZeroMoney()
	cost := valueobject.ZeroMoney()
	for _, in := range items {
		item, err := newSaleItem(in)
		if err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(item.Total)
		cost = cost.Add(item.Cost())
		s.Items = append(s.Items, item)
	}

	orderDiscount = orderDiscount.Round()
	if orderDiscount.GreaterThan(subtotal) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed the subtotal")
	}

	s.Subtotal = subtotal
	s.Discount = orderDiscount
	s.Total = subtotal.Sub(orderDiscount)
	s.CostTotal = cost
	s.CompletedAt = s.CreatedAt

	s.AddDomainEvent(&SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCompleted, AggregateTypeSale, s.ID, tenantID),
		SaleSnapshot:    s.snapshot(),
	})
	return s, nil
}

func newSaleItem(in ItemInput) (SaleItem, error) {
	if !in.Quantity.IsPositive() {
		return SaleItem{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive for "+in.SKU)
	}
	if in.UnitPrice.IsNegative() || in.UnitCost.IsNegative() || in.Discount.IsNegative() {
		return SaleItem{}, shared.NewDomainError("INVALID_PRICE", "Prices and discounts cannot be negative for "+in.SKU)
	}
	gross := in.UnitPrice.Mul(in.Quantity).Round()
	discount := in.Discount.Round()
	if discount.GreaterThan(gross) {
		return SaleItem{}, shared.NewDomainError("INVALID_DISCOUNT", "Line discount exceeds line value for "+in.SKU)
	}
	return SaleItem{
		ID:        uuid.New(),
		ProductID: in.ProductID,
		SKU:       in.SKU,
		Name:      in.Name,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
		UnitCost:  in.UnitCost,
		Discount:  discount,
		Total:     gross.Sub(discount),
	}, nil
}

// Cancel voids a completed sale
func (s *Sale) Cancel(reason string, by uuid.UUID) error {
	if s.Status == SaleStatusCancelled {
		return shared.NewDomainError("ALREADY_CANCELLED", "Sale is already cancelled")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("REASON_REQUIRED", "A cancellation reason is required")
	}

	now := time.Now().UTC()
	s.Status = SaleStatusCancelled
	s.CancelledAt = &now
	s.CancelReason = reason
	s.IncrementVersion()

	s.AddDomainEvent(&SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCancelled, AggregateTypeSale, s.ID, s.TenantID),
		SaleSnapshot:    s.snapshot(),
		Reason:          reason,
		CancelledBy:     by,
	})
	return nil
}

// IsCancelled reports whether the sale was voided
func (s *Sale) IsCancelled() bool {
	return s.Status == SaleStatusCancelled
}

func (s *Sale) snapshot() SaleSnapshot {
	lines := make([]SaleLine, len(s.Items))
	for i, it := range s.Items {
		lines[i] = SaleLine{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Amount(),
			Total:     it.Total.Amount(),
			Cost:      it.Cost().Amount(),
		}
	}
	return SaleSnapshot{
		SaleID:        s.ID,
		Number:        s.Number,
		ClientID:      s.ClientID,
		SellerID:      s.SellerID,
		PaymentMethod: s.PaymentMethod,
		Subtotal:      s.Subtotal.Amount(),
		Discount:      s.Discount.Amount(),
		Total:         s.Total.Amount(),
		CostTotal:     s.CostTotal.Amount(),
		CompletedAt:   s.CompletedAt,
		Lines:         lines,
	}
}

// NewSaleNumber builds a human-friendly receipt number such as V20250301-1A2B3C
func NewSaleNumber(at time.Time, id uuid.UUID) string {
	return "V" + at.UTC().Format("20060102") + "-" + strings.ToUpper(id.String()[:6])
}
