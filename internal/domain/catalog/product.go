package catalog

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const AggregateTypeProduct = "Product"

// ProductKind distinguishes stocked goods from services such as grooming
type ProductKind string

const (
	ProductKindProduct ProductKind = "product"
	ProductKindService ProductKind = "service"
)

var skuPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,49}$`)

// Product is a sellable item or service
type Product struct {
	shared.TenantAggregateRoot
	SKU       string
	Name      string
	Kind      ProductKind
	Category  string
	Price     valueobject.Money
	Cost      valueobject.Money
	Stock     decimal.Decimal
	MinStock  decimal.Decimal
	Active    bool
	SearchKey string
}

// IsValidSKU reports whether sku is acceptable once upper-cased and trimmed
func IsValidSKU(sku string) bool {
	return skuPattern.MatchString(strings.ToUpper(strings.TrimSpace(sku)))
}

// NewProduct validates and creates an active product with zero stock
func NewProduct(tenantID uuid.UUID, sku, name string, kind ProductKind, price, cost valueobject.Money) (*Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if !skuPattern.MatchString(sku) {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU must be 1-50 uppercase letters, digits, dot, dash or underscore")
	}
	if kind != ProductKindProduct && kind != ProductKindService {
		return nil, shared.NewDomainError("INVALID_KIND", "Unknown product kind: "+string(kind))
	}

	p := &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 sku,
		Kind:                kind,
		Active:              true,
		Stock:               decimal.Zero,
		MinStock:            decimal.Zero,
	}
	if err := p.Rename(name); err != nil {
		return nil, err
	}
	if err := p.SetPricing(price, cost); err != nil {
		return nil, err
	}
	p.Version = 1
	return p, nil
}

// Rename changes the product name
func (p *Product) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name must be 1-200 characters")
	}
	p.Name = name
	p.SearchKey = valueobject.SearchKey(name + " " + p.SKU)
	p.IncrementVersion()
	return nil
}

// SetPricing sets the sale price and unit cost
func (p *Product) SetPricing(price, cost valueobject.Money) error {
	if price.IsNegative() || cost.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price and cost cannot be negative")
	}
	p.Price = price.Round()
	p.Cost = cost.Round()
	p.IncrementVersion()
	return nil
}

// SetMinStock sets the reorder threshold
func (p *Product) SetMinStock(min decimal.Decimal) error {
	if min.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Minimum stock cannot be negative")
	}
	p.MinStock = min
	p.IncrementVersion()
	return nil
}

// IsStocked reports whether stock is tracked for the product
func (p *Product) IsStocked() bool {
	return p.Kind == ProductKindProduct
}

// HasStock reports whether qty can be taken from stock
func (p *Product) HasStock(qty decimal.Decimal) bool {
	return !p.IsStocked() || p.Stock.GreaterThanOrEqual(qty)
}

// IsLowStock reports whether stock is at or below the reorder threshold
func (p *Product) IsLowStock() bool {
	return p.IsStocked() && p.MinStock.IsPositive() && p.Stock.LessThanOrEqual(p.MinStock)
}

// Deactivate hides the product from the POS
func (p *Product) Deactivate() {
	p.Active = false
	p.IncrementVersion()
}
