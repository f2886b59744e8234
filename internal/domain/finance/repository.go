package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
)

// TitleFilter narrows payable and receivable listings
type TitleFilter struct {
	shared.Filter
	Status    TitleStatus
	DueBefore *time.Time
	ClientID  *uuid.UUID
	Category  ExpenseCategory
}

// ReceivableRepository persists receivables of the context tenant
type ReceivableRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Receivable, error)
	FindBySale(ctx context.Context, saleID uuid.UUID) (*Receivable, error)
	ExistsBySale(ctx context.Context, saleID uuid.UUID) (bool, error)
	FindAll(ctx context.Context, filter TitleFilter) ([]Receivable, int64, error)
	Save(ctx context.Context, r *Receivable) error
}

// PayableRepository persists payables of the context tenant
type PayableRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payable, error)
	FindAll(ctx context.Context, filter TitleFilter) ([]Payable, int64, error)
	Save(ctx context.Context, p *Payable) error
}

// CommissionFilter narrows commission listings
type CommissionFilter struct {
	shared.Filter
	SellerID *uuid.UUID
	Status   CommissionStatus
}

// CommissionRepository persists commissions of the context tenant
type CommissionRepository interface {
	FindBySale(ctx context.Context, saleID uuid.UUID) (*Commission, error)
	ExistsBySale(ctx context.Context, saleID uuid.UUID) (bool, error)
	FindAll(ctx context.Context, filter CommissionFilter) ([]Commission, int64, error)
	// FindPending returns pending commissions of a seller accrued in [from, to)
	FindPending(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]Commission, error)
	Save(ctx context.Context, c *Commission) error
}

// ReportReader reads period aggregates for the income statement
type ReportReader interface {
	PeriodTotals(ctx context.Context, from, to time.Time) (*DREInput, error)
}
