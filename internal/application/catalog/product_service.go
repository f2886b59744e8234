package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// ProductService handles the product catalog
type ProductService struct {
	productRepo  catalog.ProductRepository
	movementRepo inventory.StockMovementRepository
	transactor   shared.Transactor
	logger       *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	movementRepo inventory.StockMovementRepository,
	transactor shared.Transactor,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		transactor:   transactor,
		logger:       logger,
	}
}

// Create registers a product. A positive initial stock is booked as an IN movement.
func (s *ProductService) Create(ctx context.Context, tenantID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	exists, err := s.productRepo.ExistsBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("SKU_TAKEN", "A product with this SKU already exists")
	}

	product, movement, err := buildProduct(tenantID, req)
	if err != nil {
		return nil, err
	}

	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Save(txCtx, product); err != nil {
			return err
		}
		if movement != nil {
			return s.movementRepo.Create(txCtx, nil, movement)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("SKU_TAKEN", "A product with this SKU already exists")
		}
		return nil, err
	}

	s.logger.Info("product created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)
	resp := ToProductResponse(product)
	return &resp, nil
}

// buildProduct validates req into a product and its optional opening IN movement
func buildProduct(tenantID uuid.UUID, req CreateProductRequest) (*catalog.Product, *inventory.StockMovement, error) {
	product, err := catalog.NewProduct(tenantID, req.SKU, req.Name, catalog.ProductKind(req.Kind),
		valueobject.NewMoney(req.Price), valueobject.NewMoney(req.Cost))
	if err != nil {
		return nil, nil, err
	}
	product.Category = strings.TrimSpace(req.Category)
	if req.MinStock != nil {
		if err := product.SetMinStock(*req.MinStock); err != nil {
			return nil, nil, err
		}
	}

	var movement *inventory.StockMovement
	if req.InitialStock != nil && req.InitialStock.IsPositive() {
		movement, err = inventory.ApplyMovement(product, inventory.MovementRequest{
			Type:     inventory.MovementIn,
			Quantity: *req.InitialStock,
			Reason:   "initial stock",
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return product, movement, nil
}

// Update changes the provided fields of a product. Stock is changed only through movements.
func (s *ProductService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := product.Rename(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil || req.Cost != nil {
		price, cost := product.Price, product.Cost
		if req.Price != nil {
			price = valueobject.NewMoney(*req.Price)
		}
		if req.Cost != nil {
			cost = valueobject.NewMoney(*req.Cost)
		}
		if err := product.SetPricing(price, cost); err != nil {
			return nil, err
		}
	}
	if req.MinStock != nil {
		if err := product.SetMinStock(*req.MinStock); err != nil {
			return nil, err
		}
	}
	if req.Active != nil && !*req.Active && product.Active {
		product.Deactivate()
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetByID returns a product
func (s *ProductService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetBySKU returns a product by its SKU, as scanned at the counter
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List returns a page of products
func (s *ProductService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[ProductResponse], error) {
	filter = filter.Normalize()
	products, total, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]ProductResponse, len(products))
	for i := range products {
		items[i] = ToProductResponse(&products[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *ProductService) load(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}
	return product, nil
}
