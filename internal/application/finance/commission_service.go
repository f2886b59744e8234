package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CommissionService lists and pays out seller commissions
type CommissionService struct {
	commissionRepo finance.CommissionRepository
	transactor     shared.Transactor
	logger         *zap.Logger
	now            func() time.Time
}

// NewCommissionService creates a new CommissionService
func NewCommissionService(
	commissionRepo finance.CommissionRepository,
	transactor shared.Transactor,
	logger *zap.Logger,
) *CommissionService {
	return &CommissionService{
		commissionRepo: commissionRepo,
		transactor:     transactor,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// List returns a page of commissions
func (s *CommissionService) List(ctx context.Context, req ListCommissionsRequest) (*shared.Paginated[CommissionResponse], error) {
	base := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		From:     req.From,
		To:       req.To,
	}.Normalize()

	found, total, err := s.commissionRepo.FindAll(ctx, finance.CommissionFilter{
		Filter:   base,
		SellerID: req.SellerID,
		Status:   finance.CommissionStatus(req.Status),
	})
	if err != nil {
		return nil, err
	}
	items := make([]CommissionResponse, len(found))
	for i := range found {
		items[i] = ToCommissionResponse(&found[i])
	}
	page := shared.NewPaginated(items, total, base.Page, base.PageSize)
	return &page, nil
}

// PayCommissions marks every pending commission of the seller accrued in
// [from, to) as paid, in one transaction
func (s *CommissionService) PayCommissions(ctx context.Context, tenantID uuid.UUID, req PayCommissionsRequest) (*PayoutResponse, error) {
	if !req.To.After(req.From) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end must be after its start")
	}

	paidAt := s.now()
	out := &PayoutResponse{
		SellerID: req.SellerID,
		From:     req.From,
		To:       req.To,
		Total:    decimal.Zero,
		PaidAt:   paidAt,
	}

	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		pending, err := s.commissionRepo.FindPending(txCtx, req.SellerID, req.From, req.To)
		if err != nil {
			return err
		}
		for i := range pending {
			c := &pending[i]
			if !c.BelongsTo(tenantID) {
				continue
			}
			if err := c.MarkPaid(paidAt); err != nil {
				return err
			}
			if err := s.commissionRepo.Save(txCtx, c); err != nil {
				return err
			}
			out.Count++
			out.Total = out.Total.Add(c.Amount.Amount())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("commissions paid",
		zap.String("tenant_id", tenantID.String()),
		zap.String("seller_id", req.SellerID.String()),
		zap.Int("count", out.Count),
		zap.String("total", out.Total.StringFixed(2)),
	)
	return out, nil
}
