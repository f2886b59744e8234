package readmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/event"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultReplayBatchSize = 500

// RebuildResult summarizes a rebuild
type RebuildResult struct {
	Projection string
	TenantID   *uuid.UUID
	Events     int
	Applied    int
	Position   int64
	Duration   time.Duration
}

// CatchUpResult summarizes the catch-up of one projection
type CatchUpResult struct {
	Projection string
	From       int64
	To         int64
	Applied    int
}

// ProjectionStatus compares a projection's checkpoint with the event-store head
type ProjectionStatus struct {
	Projection string     `json:"projection"`
	Position   int64      `json:"position"`
	Head       int64      `json:"head"`
	Lag        int64      `json:"lag"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Replayer folds the stored event log into projections. Rebuilds and catch-ups are
// serialized within the process.
type Replayer struct {
	db         *tenant.TenantDB
	store      shared.EventStore
	engine     *Engine
	serializer *event.EventSerializer
	batchSize  int
	logger     *zap.Logger

	mu sync.Mutex
}

// NewReplayer creates a Replayer
func NewReplayer(
	db *tenant.TenantDB,
	store shared.EventStore,
	engine *Engine,
	serializer *event.EventSerializer,
	batchSize int,
	logger *zap.Logger,
) *Replayer {
	if batchSize <= 0 {
		batchSize = defaultReplayBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		db:         db,
		store:      store,
		engine:     engine,
		serializer: serializer,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// eventContext scopes ctx to the tenant that owns an event
func eventContext(ctx context.Context, tenantID uuid.UUID) context.Context {
	return tenant.ContextWithTenant(tenant.LeaveSystemScope(ctx), tenantID)
}

// Rebuild resets projection name and folds every stored event into it again.
// A nil tenantID rebuilds all tenants and needs system scope; otherwise only that
// tenant's rows and ledger entries are reset. The checkpoint only moves on a full
// rebuild.
func (r *Replayer) Rebuild(ctx context.Context, name string, tenantID *uuid.UUID) (*RebuildResult, error) {
	p, err := r.engine.Projection(name)
	if err != nil {
		return nil, err
	}
	if err := checkScope(ctx, tenantID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := &RebuildResult{Projection: name, TenantID: tenantID}

	if err := r.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := p.Reset(ctx, tx, tenantID); err != nil {
			return fmt.Errorf("failed to reset read rows: %w", err)
		}
		ledger := tx.Where("projection = ?", name)
		if tenantID != nil {
			ledger = ledger.Where("tenant_id = ?", *tenantID)
		}
		if err := ledger.Delete(&models.ProcessedEventModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear ledger: %w", err)
		}
		if tenantID == nil {
			return saveCheckpoint(tx, name, 0)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var after int64
	for {
		batch, err := r.store.LoadAfter(ctx, tenantID, after, r.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to load events after %d: %w", after, err)
		}
		for _, stored := range batch {
			result.Events++
			if p.Handles(stored.EventType) {
				applied, err := r.applyStored(ctx, p, stored)
				if err != nil {
					return result, err
				}
				if applied {
					result.Applied++
				}
			}
			after = stored.Position
			result.Position = after
		}
		if len(batch) < r.batchSize {
			break
		}
	}

	if tenantID == nil {
		if err := saveCheckpoint(r.db.Shared(ctx), name, after); err != nil {
			return result, fmt.Errorf("failed to save checkpoint: %w", err)
		}
	}

	result.Duration = time.Since(start)
	fields := []zap.Field{
		zap.String("projection", name),
		zap.Int("events", result.Events),
		zap.Int("applied", result.Applied),
		zap.Int64("position", result.Position),
		zap.Duration("duration", result.Duration),
	}
	if tenantID != nil {
		fields = append(fields, zap.String("tenant_id", tenantID.String()))
	}
	r.logger.Info("projection rebuilt", fields...)
	return result, nil
}

// RebuildAll rebuilds every projection for tenantID (nil for all tenants)
func (r *Replayer) RebuildAll(ctx context.Context, tenantID *uuid.UUID) ([]*RebuildResult, error) {
	results := make([]*RebuildResult, 0, len(r.engine.projections))
	for _, p := range r.engine.projections {
		res, err := r.Rebuild(ctx, p.Name(), tenantID)
		if err != nil {
			return results, fmt.Errorf("%s: %w", p.Name(), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// CatchUp applies events after each projection's checkpoint and advances it. A
// projection that fails stops at its last good position; the others still run.
func (r *Replayer) CatchUp(ctx context.Context) ([]CatchUpResult, error) {
	if !tenant.IsSystemScope(ctx) {
		ctx = tenant.WithSystemScope(ctx, "projection catch-up")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		results []CatchUpResult
		errs    []error
	)
	for _, p := range r.engine.projections {
		res, err := r.catchUp(ctx, p)
		results = append(results, res)
		if err != nil {
			r.logger.Error("projection catch-up failed",
				zap.String("projection", p.Name()),
				zap.Int64("position", res.To),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if res.Applied > 0 {
			r.logger.Info("projection caught up",
				zap.String("projection", p.Name()),
				zap.Int64("from", res.From),
				zap.Int64("to", res.To),
				zap.Int("applied", res.Applied),
			)
		}
	}
	return results, errors.Join(errs...)
}

func (r *Replayer) catchUp(ctx context.Context, p Projection) (CatchUpResult, error) {
	cp, err := r.checkpoint(ctx, p.Name())
	if err != nil {
		return CatchUpResult{Projection: p.Name()}, err
	}
	res := CatchUpResult{Projection: p.Name(), From: cp.Position, To: cp.Position}

	for {
		batch, err := r.store.LoadAfter(ctx, nil, res.To, r.batchSize)
		if err != nil {
			return res, err
		}
		if len(batch) == 0 {
			return res, nil
		}

		var applyErr error
		position := res.To
		for _, stored := range batch {
			if p.Handles(stored.EventType) {
				applied, err := r.applyStored(ctx, p, stored)
				if err != nil {
					applyErr = err
					break
				}
				if applied {
					res.Applied++
				}
			}
			position = stored.Position
		}

		if position > res.To {
			if err := saveCheckpoint(r.db.Shared(ctx), p.Name(), position); err != nil {
				return res, fmt.Errorf("failed to save checkpoint: %w", err)
			}
			res.To = position
		}
		if applyErr != nil {
			return res, applyErr
		}
		if len(batch) < r.batchSize {
			return res, nil
		}
	}
}

// Status reports the checkpoint and lag of every projection
func (r *Replayer) Status(ctx context.Context) ([]ProjectionStatus, error) {
	if !tenant.IsSystemScope(ctx) {
		ctx = tenant.WithSystemScope(ctx, "projection status")
	}
	head, err := r.store.LastPosition(ctx, nil)
	if err != nil {
		return nil, err
	}

	statuses := make([]ProjectionStatus, 0, len(r.engine.projections))
	for _, p := range r.engine.projections {
		cp, err := r.checkpoint(ctx, p.Name())
		if err != nil {
			return nil, err
		}
		s := ProjectionStatus{
			Projection: p.Name(),
			Position:   cp.Position,
			Head:       head,
			Lag:        max(head-cp.Position, 0),
		}
		if !cp.UpdatedAt.IsZero() {
			at := cp.UpdatedAt
			s.UpdatedAt = &at
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

func (r *Replayer) applyStored(ctx context.Context, p Projection, stored shared.StoredEvent) (bool, error) {
	ev, err := r.serializer.DeserializeStored(stored)
	if err != nil {
		return false, fmt.Errorf("failed to decode event at position %d: %w", stored.Position, err)
	}
	applied, err := r.engine.Apply(eventContext(ctx, stored.TenantID), p, ev, stored.Position)
	if err != nil {
		return false, fmt.Errorf("failed to apply event at position %d: %w", stored.Position, err)
	}
	return applied, nil
}

func (r *Replayer) checkpoint(ctx context.Context, name string) (models.CheckpointModel, error) {
	var cp models.CheckpointModel
	err := r.db.Shared(ctx).Where("projection = ?", name).Take(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CheckpointModel{Projection: name}, nil
	}
	return cp, err
}

func saveCheckpoint(db *gorm.DB, name string, position int64) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "projection"}},
		DoUpdates: clause.AssignmentColumns([]string{"position", "updated_at"}),
	}).Create(&models.CheckpointModel{
		Projection: name,
		Position:   position,
		UpdatedAt:  time.Now().UTC(),
	}).Error
}

// checkScope enforces that all-tenant operations run in system scope and that a
// tenant operation outside system scope targets the context tenant
func checkScope(ctx context.Context, tenantID *uuid.UUID) error {
	if tenant.IsSystemScope(ctx) {
		return nil
	}
	if tenantID == nil {
		return event.ErrSystemScopeRequired
	}
	current, ok, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return tenant.ErrTenantIDRequired
	}
	if current != *tenantID {
		return shared.ErrTenantMismatch
	}
	return nil
}
