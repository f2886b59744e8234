package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/petshop/erp/internal/application/catalog"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/interfaces/http/dto"
	"github.com/petshop/erp/internal/interfaces/http/middleware"
)

// ProductService is the slice of catalogapp.ProductService the handler uses
type ProductService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*catalogapp.ProductResponse, error)
	GetBySKU(ctx context.Context, sku string) (*catalogapp.ProductResponse, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[catalogapp.ProductResponse], error)
	Import(ctx context.Context, tenantID uuid.UUID, r io.Reader, opts catalogapp.ImportOptions) (*catalogapp.ImportResult, error)
}

// ProductHandler handles the product and service catalog
type ProductHandler struct {
	BaseHandler
	productService ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

type listProductsQuery struct {
	dto.ListRequest
	Kind     string `form:"kind" binding:"omitempty,oneof=product service"`
	Category string `form:"category" binding:"max=100"`
	Active   *bool  `form:"active"`
	LowStock bool   `form:"low_stock"`
}

// Create handles POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req catalogapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.productService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Update handles PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.productService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Get handles GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// GetBySKU handles GET /products/sku/:sku
func (h *ProductHandler) GetBySKU(c *gin.Context) {
	product, err := h.productService.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
	var q listProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := q.Filter()
	if q.Kind != "" {
		filter.Filters["kind"] = q.Kind
	}
	if q.Category != "" {
		filter.Filters["category"] = q.Category
	}
	if q.Active != nil {
		filter.Filters["active"] = *q.Active
	}
	if q.LowStock {
		filter.Filters["low_stock"] = true
	}
	page, err := h.productService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Import handles POST /products/import. The CSV comes as the multipart field
// "file" or as the raw body; ?delimiter=%3B or ?delimiter=tab switch the separator.
func (h *ProductHandler) Import(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var body io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			h.BadRequest(c, "Cannot read uploaded file")
			return
		}
		defer f.Close()
		body = f
	}

	var opts catalogapp.ImportOptions
	switch c.Query("delimiter") {
	case "", ",":
	case ";":
		opts.Delimiter = ';'
	case "tab":
		opts.Delimiter = '\t'
	default:
		h.BadRequest(c, "delimiter must be ',', ';' or 'tab'")
		return
	}

	result, err := h.productService.Import(c.Request.Context(), tenantID, body, opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Rejected() {
		c.JSON(http.StatusUnprocessableEntity, dto.Response{
			Success: false,
			Data:    result,
			Error: &dto.ErrorInfo{
				Code:      "IMPORT_REJECTED",
				Message:   "The file has invalid rows; nothing was imported",
				RequestID: middleware.GetRequestID(c),
			},
		})
		return
	}
	h.Created(c, result)
}
