// Package projection exposes read-model maintenance to shop administrators.
package projection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/readmodel"
	"github.com/petshop/erp/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AllProjections selects every registered projection
const AllProjections = "all"

// Replayer is the read-model replay engine
type Replayer interface {
	Rebuild(ctx context.Context, name string, tenantID *uuid.UUID) (*readmodel.RebuildResult, error)
	RebuildAll(ctx context.Context, tenantID *uuid.UUID) ([]*readmodel.RebuildResult, error)
	CatchUp(ctx context.Context) ([]readmodel.CatchUpResult, error)
	Status(ctx context.Context) ([]readmodel.ProjectionStatus, error)
}

// RebuildRequest names the projection to rebuild
type RebuildRequest struct {
	Projection string `json:"projection" binding:"required"`
}

// RebuildResponse summarizes one rebuilt projection
type RebuildResponse struct {
	Projection string `json:"projection"`
	Events     int    `json:"events"`
	Applied    int    `json:"applied"`
	DurationMs int64  `json:"duration_ms"`
}

// ProjectionService rebuilds the context tenant's projections
type ProjectionService struct {
	replayer        Replayer
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewProjectionService creates a new ProjectionService
func NewProjectionService(replayer Replayer, logger *zap.Logger) *ProjectionService {
	return &ProjectionService{replayer: replayer, logger: logger}
}

// SetBusinessMetrics enables replay duration metrics
func (s *ProjectionService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Rebuild resets one projection (or all) for tenantID and replays its events
func (s *ProjectionService) Rebuild(ctx context.Context, tenantID uuid.UUID, req RebuildRequest) ([]RebuildResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "projection.rebuild",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrProjection, req.Projection),
	)
	defer span.End()

	var (
		results []*readmodel.RebuildResult
		err     error
	)
	if req.Projection == AllProjections {
		results, err = s.replayer.RebuildAll(ctx, &tenantID)
	} else {
		var res *readmodel.RebuildResult
		res, err = s.replayer.Rebuild(ctx, req.Projection, &tenantID)
		if res != nil {
			results = append(results, res)
		}
	}
	if errors.Is(err, readmodel.ErrUnknownProjection) {
		return nil, shared.WrapDomainError("UNKNOWN_PROJECTION", "Unknown projection "+req.Projection, err)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out := make([]RebuildResponse, len(results))
	for i, r := range results {
		out[i] = RebuildResponse{
			Projection: r.Projection,
			Events:     r.Events,
			Applied:    r.Applied,
			DurationMs: r.Duration.Round(time.Millisecond).Milliseconds(),
		}
		if s.businessMetrics != nil {
			s.businessMetrics.RecordReplay(ctx, r.Projection, r.Duration)
		}
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(out))
	s.logger.Info("projections rebuilt on request",
		zap.String("tenant_id", tenantID.String()),
		zap.String("projection", req.Projection),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// Status reports checkpoint lag for every projection
func (s *ProjectionService) Status(ctx context.Context) ([]readmodel.ProjectionStatus, error) {
	return s.replayer.Status(ctx)
}
