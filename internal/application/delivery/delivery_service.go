package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/delivery"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
)

// DeliveryService quotes deliveries and plans driver routes
type DeliveryService struct {
	routeRepo  delivery.RouteRepository
	clientRepo partner.ClientRepository
	userRepo   identity.UserRepository
	tenantRepo identity.TenantRepository
	pricing    delivery.Pricing
	logger     *zap.Logger
	now        func() time.Time
}

// NewDeliveryService creates a new DeliveryService
func NewDeliveryService(
	routeRepo delivery.RouteRepository,
	clientRepo partner.ClientRepository,
	userRepo identity.UserRepository,
	tenantRepo identity.TenantRepository,
	pricing delivery.Pricing,
	logger *zap.Logger,
) *DeliveryService {
	return &DeliveryService{
		routeRepo:  routeRepo,
		clientRepo: clientRepo,
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		pricing:    pricing,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Quote prices a single delivery
func (s *DeliveryService) Quote(ctx context.Context, tenantID uuid.UUID, req QuoteRequest) (*QuoteResponse, error) {
	var origin valueobject.Coordinates
	var err error
	if req.Origin != nil {
		origin, err = toCoordinates(*req.Origin)
	} else {
		origin, err = s.shopOrigin(ctx, tenantID)
	}
	if err != nil {
		return nil, err
	}

	var dest valueobject.Coordinates
	switch {
	case req.Destination != nil:
		if dest, err = toCoordinates(*req.Destination); err != nil {
			return nil, err
		}
	case req.ClientID != nil:
		client, err := s.loadClient(ctx, tenantID, *req.ClientID)
		if err != nil {
			return nil, err
		}
		dest = client.Address.Location
	default:
		return nil, shared.NewDomainError("DESTINATION_REQUIRED", "A client or destination is required")
	}

	q, err := s.pricing.Quote(origin.DistanceKm(dest), 1, valueobject.NewMoney(req.OrderTotal))
	if err != nil {
		return nil, err
	}
	return &QuoteResponse{DistanceKm: q.DistanceKm, Fee: q.Fee.Amount(), Waived: q.Waived}, nil
}

// CreateRoute plans a driver's run from the shop through the clients' addresses
func (s *DeliveryService) CreateRoute(ctx context.Context, tenantID uuid.UUID, req CreateRouteRequest) (*RouteResponse, error) {
	driver, err := s.userRepo.FindByID(ctx, req.DriverID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if driver == nil || !driver.BelongsTo(tenantID) || !driver.Active {
		return nil, shared.NewDomainError("DRIVER_NOT_FOUND", "Driver not found")
	}

	origin, err := s.shopOrigin(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stops := make([]delivery.StopInput, len(req.Stops))
	for i, in := range req.Stops {
		client, err := s.loadClient(ctx, tenantID, in.ClientID)
		if err != nil {
			return nil, err
		}
		stops[i] = delivery.StopInput{
			ClientID: client.ID,
			SaleID:   in.SaleID,
			Address:  formatAddress(client.Address),
			Location: client.Address.Location,
		}
	}

	date := req.Date.UTC().Truncate(24 * time.Hour)
	route, err := delivery.PlanRoute(tenantID, driver.ID, date, origin, stops, s.pricing, valueobject.NewMoney(req.OrderTotal))
	if err != nil {
		return nil, err
	}
	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info("route planned",
		zap.String("tenant_id", tenantID.String()),
		zap.String("route_id", route.ID.String()),
		zap.String("driver_id", driver.ID.String()),
		zap.Int("stops", len(route.Stops)),
		zap.String("distance_km", route.DistanceKm.String()),
		zap.String("fee", route.Fee.String()),
	)
	resp := ToRouteResponse(route)
	return &resp, nil
}

// CompleteStop records a drop-off outcome
func (s *DeliveryService) CompleteStop(ctx context.Context, tenantID, routeID, stopID uuid.UUID, req CompleteStopRequest) (*RouteResponse, error) {
	route, err := s.load(ctx, tenantID, routeID)
	if err != nil {
		return nil, err
	}
	if err := route.CompleteStop(stopID, req.Delivered, strings.TrimSpace(req.Note), s.now()); err != nil {
		return nil, err
	}
	if err := s.routeRepo.Save(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info("stop completed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("route_id", route.ID.String()),
		zap.String("stop_id", stopID.String()),
		zap.Bool("delivered", req.Delivered),
		zap.String("route_status", string(route.Status)),
	)
	resp := ToRouteResponse(route)
	return &resp, nil
}

// GetByID returns a route
func (s *DeliveryService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*RouteResponse, error) {
	route, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToRouteResponse(route)
	return &resp, nil
}

// List returns a page of routes
func (s *DeliveryService) List(ctx context.Context, req ListRoutesRequest) (*shared.Paginated[RouteResponse], error) {
	base := shared.Filter{Page: req.Page, PageSize: req.PageSize}.Normalize()
	found, total, err := s.routeRepo.FindAll(ctx, delivery.RouteFilter{
		Filter:   base,
		DriverID: req.DriverID,
		Date:     req.Date,
		Status:   delivery.RouteStatus(req.Status),
	})
	if err != nil {
		return nil, err
	}
	items := make([]RouteResponse, len(found))
	for i := range found {
		items[i] = ToRouteResponse(&found[i])
	}
	page := shared.NewPaginated(items, total, base.Page, base.PageSize)
	return &page, nil
}

func (s *DeliveryService) load(ctx context.Context, tenantID, id uuid.UUID) (*delivery.Route, error) {
	route, err := s.routeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !route.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}
	return route, nil
}

func (s *DeliveryService) loadClient(ctx context.Context, tenantID, id uuid.UUID) (*partner.Client, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.WrapDomainError("CLIENT_NOT_FOUND", "Client not found", err)
	}
	if err != nil {
		return nil, err
	}
	if !client.BelongsTo(tenantID) {
		return nil, shared.NewDomainError("CLIENT_NOT_FOUND", "Client not found")
	}
	if !client.HasDeliveryLocation() {
		return nil, shared.NewDomainError("MISSING_LOCATION",
			fmt.Sprintf("Client %s has no geocoded address", client.Name))
	}
	return client, nil
}

// shopOrigin reads the shop location from the tenants table
func (s *DeliveryService) shopOrigin(ctx context.Context, tenantID uuid.UUID) (valueobject.Coordinates, error) {
	t, err := s.tenantRepo.FindByID(tenant.WithSystemScope(ctx, "delivery origin"), tenantID)
	if err != nil {
		return valueobject.Coordinates{}, err
	}
	if t.ShopLocation.IsZero() {
		return valueobject.Coordinates{}, shared.NewDomainError("MISSING_ORIGIN", "The shop location is not configured")
	}
	return t.ShopLocation, nil
}

func toCoordinates(p PointRequest) (valueobject.Coordinates, error) {
	c, err := valueobject.NewCoordinates(p.Latitude, p.Longitude)
	if err != nil {
		return c, shared.WrapDomainError("INVALID_LOCATION", "Invalid coordinates", err)
	}
	return c, nil
}

func formatAddress(a partner.Address) string {
	parts := make([]string, 0, 4)
	street := strings.TrimSpace(strings.Join([]string{a.Street, a.Number}, ", "))
	if strings.Trim(street, ", ") != "" {
		parts = append(parts, strings.Trim(street, ", "))
	}
	for _, p := range []string{a.Complement, a.Neighborhood, a.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}
