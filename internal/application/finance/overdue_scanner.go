package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OverdueSummary is the overdue position of one tenant
type OverdueSummary struct {
	TenantID          uuid.UUID       `json:"tenant_id"`
	ReceivablesCount  int64           `json:"receivables_count"`
	ReceivablesAmount decimal.Decimal `json:"receivables_amount"`
	PayablesCount     int64           `json:"payables_count"`
	PayablesAmount    decimal.Decimal `json:"payables_amount"`
}

// OverdueScanner reports unpaid titles past their due date, tenant by tenant.
// Overdue is derived from the due date, so nothing is written.
type OverdueScanner struct {
	tenantRepo     identity.TenantRepository
	receivableRepo finance.ReceivableRepository
	payableRepo    finance.PayableRepository
	logger         *zap.Logger
	now            func() time.Time
}

// NewOverdueScanner creates a new OverdueScanner
func NewOverdueScanner(
	tenantRepo identity.TenantRepository,
	receivableRepo finance.ReceivableRepository,
	payableRepo finance.PayableRepository,
	logger *zap.Logger,
) *OverdueScanner {
	return &OverdueScanner{
		tenantRepo:     tenantRepo,
		receivableRepo: receivableRepo,
		payableRepo:    payableRepo,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Scan walks every active tenant and returns those with overdue titles
func (s *OverdueScanner) Scan(ctx context.Context) ([]OverdueSummary, error) {
	tenants, err := s.tenantRepo.FindAll(tenant.WithSystemScope(ctx, "overdue scan"))
	if err != nil {
		return nil, err
	}

	var out []OverdueSummary
	for i := range tenants {
		t := &tenants[i]
		if !t.IsActive() {
			continue
		}
		summary, err := s.scanTenant(tenant.ContextWithTenant(ctx, t.ID), t.ID)
		if err != nil {
			s.logger.Error("overdue scan failed",
				zap.String("tenant_id", t.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if summary.ReceivablesCount == 0 && summary.PayablesCount == 0 {
			continue
		}
		s.logger.Info("overdue titles",
			zap.String("tenant_id", t.ID.String()),
			zap.Int64("receivables", summary.ReceivablesCount),
			zap.String("receivables_amount", summary.ReceivablesAmount.StringFixed(2)),
			zap.Int64("payables", summary.PayablesCount),
			zap.String("payables_amount", summary.PayablesAmount.StringFixed(2)),
		)
		out = append(out, summary)
	}
	return out, nil
}

const overduePageSize = 200

func (s *OverdueScanner) scanTenant(ctx context.Context, tenantID uuid.UUID) (OverdueSummary, error) {
	now := s.now()
	summary := OverdueSummary{
		TenantID:          tenantID,
		ReceivablesAmount: decimal.Zero,
		PayablesAmount:    decimal.Zero,
	}

	for page := 1; ; page++ {
		filter := overdueFilter(page, now)
		found, total, err := s.receivableRepo.FindAll(ctx, filter)
		if err != nil {
			return summary, err
		}
		summary.ReceivablesCount = total
		for i := range found {
			summary.ReceivablesAmount = summary.ReceivablesAmount.Add(found[i].Outstanding().Amount())
		}
		if int64(page*overduePageSize) >= total || len(found) == 0 {
			break
		}
	}

	for page := 1; ; page++ {
		filter := overdueFilter(page, now)
		found, total, err := s.payableRepo.FindAll(ctx, filter)
		if err != nil {
			return summary, err
		}
		summary.PayablesCount = total
		for i := range found {
			summary.PayablesAmount = summary.PayablesAmount.Add(found[i].Outstanding().Amount())
		}
		if int64(page*overduePageSize) >= total || len(found) == 0 {
			break
		}
	}
	return summary, nil
}

func overdueFilter(page int, now time.Time) finance.TitleFilter {
	return finance.TitleFilter{
		Filter: shared.Filter{
			Page:     page,
			PageSize: overduePageSize,
			OrderBy:  "due_date",
			OrderDir: "asc",
		},
		DueBefore: &now,
	}
}
