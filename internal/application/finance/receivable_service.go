package finance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// ReceivableService manages accounts receivable
type ReceivableService struct {
	receivableRepo finance.ReceivableRepository
	clientRepo     partner.ClientRepository
	logger         *zap.Logger
	now            func() time.Time
}

// NewReceivableService creates a new ReceivableService
func NewReceivableService(
	receivableRepo finance.ReceivableRepository,
	clientRepo partner.ClientRepository,
	logger *zap.Logger,
) *ReceivableService {
	return &ReceivableService{
		receivableRepo: receivableRepo,
		clientRepo:     clientRepo,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Create charges a client outside of a sale
func (s *ReceivableService) Create(ctx context.Context, tenantID uuid.UUID, req CreateReceivableRequest) (*ReceivableResponse, error) {
	client, err := s.clientRepo.FindByID(ctx, req.ClientID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.WrapDomainError("CLIENT_NOT_FOUND", "Client not found", err)
	}
	if err != nil {
		return nil, err
	}
	if !client.BelongsTo(tenantID) {
		return nil, shared.NewDomainError("CLIENT_NOT_FOUND", "Client not found")
	}

	r, err := finance.NewReceivable(tenantID, client.ID, nil, valueobject.NewMoney(req.Amount), req.DueDate, req.Description)
	if err != nil {
		return nil, err
	}
	if err := s.receivableRepo.Save(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("receivable created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("receivable_id", r.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.String("amount", r.Amount.String()),
	)
	resp := ToReceivableResponse(r, s.now())
	return &resp, nil
}

// Receive records a receipt against the receivable
func (s *ReceivableService) Receive(ctx context.Context, tenantID, id uuid.UUID, req SettleRequest) (*ReceivableResponse, error) {
	r, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	at := s.now()
	if req.PaidAt != nil {
		at = req.PaidAt.UTC()
	}
	if err := r.Receive(valueobject.NewMoney(req.Amount), at); err != nil {
		return nil, err
	}
	if err := s.receivableRepo.Save(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("receivable settled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("receivable_id", r.ID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("status", string(r.Status)),
	)
	resp := ToReceivableResponse(r, s.now())
	return &resp, nil
}

// Cancel voids an open receivable
func (s *ReceivableService) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*ReceivableResponse, error) {
	r, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := r.Cancel(); err != nil {
		return nil, err
	}
	if err := s.receivableRepo.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToReceivableResponse(r, s.now())
	return &resp, nil
}

// GetByID returns a receivable
func (s *ReceivableService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*ReceivableResponse, error) {
	r, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToReceivableResponse(r, s.now())
	return &resp, nil
}

// List returns a page of receivables; Overdue narrows to unpaid titles past due
func (s *ReceivableService) List(ctx context.Context, req ListTitlesRequest) (*shared.Paginated[ReceivableResponse], error) {
	filter := titleFilter(req, s.now())
	filter.ClientID = req.ClientID

	found, total, err := s.receivableRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	items := make([]ReceivableResponse, len(found))
	for i := range found {
		items[i] = ToReceivableResponse(&found[i], now)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *ReceivableService) load(ctx context.Context, tenantID, id uuid.UUID) (*finance.Receivable, error) {
	r, err := s.receivableRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

func titleFilter(req ListTitlesRequest, now time.Time) finance.TitleFilter {
	base := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}.Normalize()
	if base.OrderBy == "" {
		base.OrderBy = "due_date"
		base.OrderDir = "asc"
	}
	filter := finance.TitleFilter{
		Filter: base,
		Status: finance.TitleStatus(req.Status),
	}
	if req.Overdue {
		filter.DueBefore = &now
	}
	return filter
}
