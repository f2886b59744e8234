package scheduler

import (
	"context"
	"time"

	financeapp "github.com/petshop/erp/internal/application/finance"
	"github.com/petshop/erp/internal/infrastructure/readmodel"
	"go.uber.org/zap"
)

// Job names
const (
	JobProjectionCatchUp = "projection_catchup"
	JobOverdueScan       = "overdue_scan"
)

// CatchUpper applies stored events the projections have not seen yet
type CatchUpper interface {
	CatchUp(ctx context.Context) ([]readmodel.CatchUpResult, error)
}

// OverdueScanner reports overdue titles across tenants
type OverdueScanner interface {
	Scan(ctx context.Context) ([]financeapp.OverdueSummary, error)
}

// CatchUpJob keeps projections at the head of the event store, covering events
// whose live delivery failed
func CatchUpJob(replayer CatchUpper, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:       JobProjectionCatchUp,
		Interval:   interval,
		RunOnStart: true,
		Task: func(ctx context.Context) error {
			results, err := replayer.CatchUp(ctx)
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Applied == 0 {
					continue
				}
				logger.Info("projection caught up",
					zap.String("projection", r.Projection),
					zap.Int64("from", r.From),
					zap.Int64("to", r.To),
					zap.Int("applied", r.Applied),
				)
			}
			return nil
		},
	}
}

// OverdueJob logs the overdue receivables and payables of every shop
func OverdueJob(scanner OverdueScanner, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     JobOverdueScan,
		Interval: interval,
		Timeout:  5 * time.Minute,
		Task: func(ctx context.Context) error {
			summaries, err := scanner.Scan(ctx)
			if err != nil {
				return err
			}
			logger.Info("overdue scan finished", zap.Int("tenants_with_overdue", len(summaries)))
			return nil
		},
	}
}
