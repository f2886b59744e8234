package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleService runs the point of sale. Stock, receivables and commissions follow
// from the recorded SaleCompleted and SaleCancelled events.
type SaleService struct {
	saleRepo    sales.SaleRepository
	productRepo catalog.ProductRepository
	clientRepo  partner.ClientRepository
	logger      *zap.Logger
}

// NewSaleService creates a new SaleService
func NewSaleService(
	saleRepo sales.SaleRepository,
	productRepo catalog.ProductRepository,
	clientRepo partner.ClientRepository,
	logger *zap.Logger,
) *SaleService {
	return &SaleService{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		clientRepo:  clientRepo,
		logger:      logger,
	}
}

// Checkout prices the items at the current catalog prices, checks stock of
// stocked products and completes the sale
func (s *SaleService) Checkout(ctx context.Context, tenantID, sellerID uuid.UUID, req CheckoutRequest) (*SaleResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("EMPTY_SALE", "A sale needs at least one item")
	}

	if req.ClientID != nil {
		client, err := s.clientRepo.FindByID(ctx, *req.ClientID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.WrapDomainError("CLIENT_NOT_FOUND", "Client not found", err)
		}
		if err != nil {
			return nil, err
		}
		if !client.BelongsTo(tenantID) {
			return nil, shared.NewDomainError("CLIENT_NOT_FOUND", "Client not found")
		}
	}

	products, err := s.loadProducts(ctx, tenantID, req.Items)
	if err != nil {
		return nil, err
	}

	requested := make(map[uuid.UUID]decimal.Decimal, len(req.Items))
	inputs := make([]sales.ItemInput, len(req.Items))
	for i, item := range req.Items {
		p := products[item.ProductID]
		requested[p.ID] = requested[p.ID].Add(item.Quantity)

		discount := valueobject.ZeroMoney()
		if item.Discount != nil {
			discount = valueobject.NewMoney(*item.Discount)
		}
		inputs[i] = sales.ItemInput{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			UnitCost:  p.Cost,
			Discount:  discount,
		}
	}
	for id, qty := range requested {
		if p := products[id]; !p.HasStock(qty) {
			return nil, shared.WrapDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Insufficient stock for %s: %s available, %s requested", p.SKU, p.Stock, qty),
				shared.ErrInsufficientStock)
		}
	}

	orderDiscount := valueobject.ZeroMoney()
	if req.Discount != nil {
		orderDiscount = valueobject.NewMoney(*req.Discount)
	}
	sale, err := sales.NewSale(tenantID, sellerID, req.ClientID, sales.PaymentMethod(req.PaymentMethod), orderDiscount, inputs)
	if err != nil {
		return nil, err
	}
	sale.Notes = req.Notes

	if err := s.saleRepo.Save(ctx, sale); err != nil {
		return nil, err
	}

	s.logger.Info("sale completed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("sale_id", sale.ID.String()),
		zap.String("number", sale.Number),
		zap.String("total", sale.Total.String()),
		zap.String("payment_method", req.PaymentMethod),
	)
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// Cancel voids a sale
func (s *SaleService) Cancel(ctx context.Context, tenantID, userID, id uuid.UUID, req CancelSaleRequest) (*SaleResponse, error) {
	sale, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := sale.Cancel(req.Reason, userID); err != nil {
		return nil, err
	}
	if err := s.saleRepo.Save(ctx, sale); err != nil {
		return nil, err
	}

	s.logger.Info("sale cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("sale_id", sale.ID.String()),
		zap.String("cancelled_by", userID.String()),
	)
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// GetByID returns a sale
func (s *SaleService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*SaleResponse, error) {
	sale, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// List returns a page of sales
func (s *SaleService) List(ctx context.Context, req ListSalesRequest) (*shared.Paginated[SaleResponse], error) {
	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		From:     req.From,
		To:       req.To,
	}.Normalize()
	if filter.OrderBy == "" {
		filter.OrderBy = "completed_at"
	}

	found, total, err := s.saleRepo.FindAll(ctx, sales.SaleFilter{
		Filter:   filter,
		SellerID: req.SellerID,
		ClientID: req.ClientID,
		Status:   sales.SaleStatus(req.Status),
	})
	if err != nil {
		return nil, err
	}
	items := make([]SaleResponse, len(found))
	for i := range found {
		items[i] = ToSaleResponse(&found[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *SaleService) load(ctx context.Context, tenantID, id uuid.UUID) (*sales.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sale.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}
	return sale, nil
}

// loadProducts fetches the products of the items and rejects unknown or inactive ones
func (s *SaleService) loadProducts(ctx context.Context, tenantID uuid.UUID, items []CheckoutItemRequest) (map[uuid.UUID]*catalog.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	found, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	products := make(map[uuid.UUID]*catalog.Product, len(found))
	for i := range found {
		if found[i].BelongsTo(tenantID) {
			products[found[i].ID] = &found[i]
		}
	}
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found: "+id.String())
		}
		if !p.Active {
			return nil, shared.NewDomainError("PRODUCT_INACTIVE", "Product is not for sale: "+p.SKU)
		}
	}
	return products, nil
}
