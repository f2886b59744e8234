package partner

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// ClientService handles clients and their pets
type ClientService struct {
	clientRepo partner.ClientRepository
	logger     *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo partner.ClientRepository, logger *zap.Logger) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		logger:     logger,
	}
}

// Create registers a client at the store
func (s *ClientService) Create(ctx context.Context, tenantID uuid.UUID, req CreateClientRequest) (*ClientResponse, error) {
	client, err := partner.NewClient(tenantID, req.Name, req.Phone, partner.ClientSourceStore)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePhoneFree(ctx, client.Phone, uuid.Nil); err != nil {
		return nil, err
	}
	if err := client.SetEmail(req.Email); err != nil {
		return nil, err
	}
	client.Document = strings.TrimSpace(req.Document)
	client.Notes = req.Notes
	if req.Address != nil {
		addr, err := toAddress(req.Address)
		if err != nil {
			return nil, err
		}
		client.SetAddress(addr)
	}
	client.MarkUpdated()

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, err
	}
	s.logger.Info("client created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("client_id", client.ID.String()),
	)
	resp := ToClientResponse(client)
	return &resp, nil
}

// Update changes the provided fields of a client
func (s *ClientService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateClientRequest) (*ClientResponse, error) {
	client, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := client.Rename(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Phone != nil {
		if err := client.SetPhone(*req.Phone); err != nil {
			return nil, err
		}
		if err := s.ensurePhoneFree(ctx, client.Phone, client.ID); err != nil {
			return nil, err
		}
	}
	if req.Email != nil {
		if err := client.SetEmail(*req.Email); err != nil {
			return nil, err
		}
	}
	if req.Document != nil {
		client.Document = strings.TrimSpace(*req.Document)
	}
	if req.Notes != nil {
		client.Notes = *req.Notes
	}
	if req.Address != nil {
		addr, err := toAddress(req.Address)
		if err != nil {
			return nil, err
		}
		client.SetAddress(addr)
	}

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, err
	}
	resp := ToClientResponse(client)
	return &resp, nil
}

// GetByID returns a client with its pets
func (s *ClientService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*ClientResponse, error) {
	client, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToClientResponse(client)
	return &resp, nil
}

// List returns a page of clients matching filter.Search
func (s *ClientService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[ClientResponse], error) {
	filter = filter.Normalize()
	clients, total, err := s.clientRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]ClientResponse, len(clients))
	for i := range clients {
		items[i] = ToClientResponse(&clients[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Delete removes a client and its pets
func (s *ClientService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.load(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("client deleted", zap.String("client_id", id.String()))
	return nil
}

// FindOrCreateByPhone returns the client owning phone, registering a WhatsApp
// client named name when there is none. created reports whether one was registered.
func (s *ClientService) FindOrCreateByPhone(ctx context.Context, tenantID uuid.UUID, phone, name string) (client *partner.Client, created bool, err error) {
	normalized, err := valueobject.NewPhone(phone)
	if err != nil {
		return nil, false, shared.WrapDomainError("INVALID_PHONE", "Invalid phone number", err)
	}

	client, err = s.clientRepo.FindByPhone(ctx, normalized)
	if err == nil {
		return client, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	if strings.TrimSpace(name) == "" {
		name = normalized.Display()
	}
	client, err = partner.NewClient(tenantID, name, normalized.String(), partner.ClientSourceWhatsApp)
	if err != nil {
		return nil, false, err
	}
	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, false, err
	}
	s.logger.Info("client registered from whatsapp",
		zap.String("tenant_id", tenantID.String()),
		zap.String("client_id", client.ID.String()),
	)
	return client, true, nil
}

// AddPet registers a pet under a client
func (s *ClientService) AddPet(ctx context.Context, tenantID, clientID uuid.UUID, req AddPetRequest) (*PetResponse, error) {
	client, err := s.load(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	pet, err := client.AddPet(req.Name, partner.Species(req.Species), req.Breed)
	if err != nil {
		return nil, err
	}

	// AddPet appends a copy; the optional fields are set on the stored one
	stored := &client.Pets[len(client.Pets)-1]
	stored.BirthDate = req.BirthDate
	if req.WeightKg != nil {
		if req.WeightKg.IsNegative() {
			return nil, shared.NewDomainError("INVALID_WEIGHT", "Weight cannot be negative")
		}
		stored.WeightKg = *req.WeightKg
	}
	stored.Notes = req.Notes

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, err
	}
	s.logger.Info("pet added",
		zap.String("client_id", client.ID.String()),
		zap.String("pet_id", pet.ID.String()),
	)
	resp := ToPetResponse(stored)
	return &resp, nil
}

// ListPets returns the pets of a client
func (s *ClientService) ListPets(ctx context.Context, tenantID, clientID uuid.UUID) ([]PetResponse, error) {
	if _, err := s.load(ctx, tenantID, clientID); err != nil {
		return nil, err
	}
	pets, err := s.clientRepo.ListPets(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]PetResponse, len(pets))
	for i := range pets {
		out[i] = ToPetResponse(&pets[i])
	}
	return out, nil
}

func (s *ClientService) load(ctx context.Context, tenantID, id uuid.UUID) (*partner.Client, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !client.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}
	return client, nil
}

// ensurePhoneFree rejects a phone already used by a client other than self
func (s *ClientService) ensurePhoneFree(ctx context.Context, phone valueobject.Phone, self uuid.UUID) error {
	if phone == "" {
		return nil
	}
	existing, err := s.clientRepo.FindByPhone(ctx, phone)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		return shared.NewDomainError("PHONE_TAKEN", "Another client already uses this phone")
	}
	return nil
}

func toAddress(req *AddressRequest) (partner.Address, error) {
	addr := partner.Address{
		Street:       strings.TrimSpace(req.Street),
		Number:       strings.TrimSpace(req.Number),
		Complement:   strings.TrimSpace(req.Complement),
		Neighborhood: strings.TrimSpace(req.Neighborhood),
		City:         strings.TrimSpace(req.City),
		State:        strings.ToUpper(strings.TrimSpace(req.State)),
		ZipCode:      strings.TrimSpace(req.ZipCode),
	}
	if req.Latitude != nil && req.Longitude != nil {
		loc, err := valueobject.NewCoordinates(*req.Latitude, *req.Longitude)
		if err != nil {
			return partner.Address{}, shared.WrapDomainError("INVALID_LOCATION", "Address location is invalid", err)
		}
		addr.Location = loc
	}
	return addr, nil
}
