package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// PayableService manages accounts payable. Paid payables are the operating
// expenses of the income statement.
type PayableService struct {
	payableRepo finance.PayableRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewPayableService creates a new PayableService
func NewPayableService(payableRepo finance.PayableRepository, logger *zap.Logger) *PayableService {
	return &PayableService{
		payableRepo: payableRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create records a bill
func (s *PayableService) Create(ctx context.Context, tenantID uuid.UUID, req CreatePayableRequest) (*PayableResponse, error) {
	p, err := finance.NewPayable(tenantID, req.Supplier, finance.ExpenseCategory(req.Category),
		valueobject.NewMoney(req.Amount), req.DueDate, req.Description)
	if err != nil {
		return nil, err
	}
	p.Document = req.Document

	if err := s.payableRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("payable created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("payable_id", p.ID.String()),
		zap.String("category", req.Category),
		zap.String("amount", p.Amount.String()),
	)
	resp := ToPayableResponse(p, s.now())
	return &resp, nil
}

// Pay records a payment against the payable
func (s *PayableService) Pay(ctx context.Context, tenantID, id uuid.UUID, req SettleRequest) (*PayableResponse, error) {
	p, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	at := s.now()
	if req.PaidAt != nil {
		at = req.PaidAt.UTC()
	}
	if err := p.Pay(valueobject.NewMoney(req.Amount), at); err != nil {
		return nil, err
	}
	if err := s.payableRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("payable paid",
		zap.String("tenant_id", tenantID.String()),
		zap.String("payable_id", p.ID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("status", string(p.Status)),
	)
	resp := ToPayableResponse(p, s.now())
	return &resp, nil
}

// Cancel voids an open payable
func (s *PayableService) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*PayableResponse, error) {
	p, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := p.Cancel(); err != nil {
		return nil, err
	}
	if err := s.payableRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	resp := ToPayableResponse(p, s.now())
	return &resp, nil
}

// List returns a page of payables
func (s *PayableService) List(ctx context.Context, req ListTitlesRequest) (*shared.Paginated[PayableResponse], error) {
	filter := titleFilter(req, s.now())
	filter.Category = finance.ExpenseCategory(req.Category)

	found, total, err := s.payableRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	items := make([]PayableResponse, len(found))
	for i := range found {
		items[i] = ToPayableResponse(&found[i], now)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *PayableService) load(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payable, error) {
	p, err := s.payableRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}
	return p, nil
}
