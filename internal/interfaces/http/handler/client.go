package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	partnerapp "github.com/petshop/erp/internal/application/partner"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/interfaces/http/dto"
)

// ClientService is the slice of partnerapp.ClientService the handler uses
type ClientService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req partnerapp.CreateClientRequest) (*partnerapp.ClientResponse, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req partnerapp.UpdateClientRequest) (*partnerapp.ClientResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*partnerapp.ClientResponse, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[partnerapp.ClientResponse], error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	AddPet(ctx context.Context, tenantID, clientID uuid.UUID, req partnerapp.AddPetRequest) (*partnerapp.PetResponse, error)
	ListPets(ctx context.Context, tenantID, clientID uuid.UUID) ([]partnerapp.PetResponse, error)
}

// ClientHandler handles clients and their pets
type ClientHandler struct {
	BaseHandler
	clientService ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

type listClientsQuery struct {
	dto.ListRequest
	Source string `form:"source" binding:"omitempty,oneof=store whatsapp"`
}

// Create handles POST /clients
func (h *ClientHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req partnerapp.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	client, err := h.clientService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, client)
}

// Update handles PUT /clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req partnerapp.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	client, err := h.clientService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// Get handles GET /clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// List handles GET /clients
func (h *ClientHandler) List(c *gin.Context) {
	var q listClientsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := q.Filter()
	if q.Source != "" {
		filter.Filters["source"] = q.Source
	}
	page, err := h.clientService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Delete handles DELETE /clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.clientService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddPet handles POST /clients/:id/pets
func (h *ClientHandler) AddPet(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req partnerapp.AddPetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	pet, err := h.clientService.AddPet(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, pet)
}

// ListPets handles GET /clients/:id/pets
func (h *ClientHandler) ListPets(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	pets, err := h.clientService.ListPets(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pets)
}
