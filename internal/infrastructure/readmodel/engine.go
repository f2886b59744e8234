package readmodel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine applies events to the registered projections. It is subscribed to the
// event bus for live updates and used by the Replayer for catch-up and rebuilds.
type Engine struct {
	db          *tenant.TenantDB
	store       shared.EventStore
	projections []Projection
	logger      *zap.Logger
}

// NewEngine creates an Engine. store is used to look up the log position of live
// events and may be nil.
func NewEngine(db *tenant.TenantDB, store shared.EventStore, logger *zap.Logger, projections ...Projection) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:          db,
		store:       store,
		projections: projections,
		logger:      logger,
	}
}

// Projections returns the registered projections
func (e *Engine) Projections() []Projection {
	return append([]Projection(nil), e.projections...)
}

// Projection returns the projection registered under name
func (e *Engine) Projection(name string) (Projection, error) {
	for _, p := range e.projections {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProjection, name)
}

// Name implements event.NamedHandler
func (e *Engine) Name() string { return "readmodel" }

// EventTypes returns every event type some projection handles
func (e *Engine) EventTypes() []string {
	seen := make(map[string]struct{})
	for _, p := range e.projections {
		for _, t := range p.EventTypes() {
			seen[t] = struct{}{}
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Handle applies a live event to every projection that handles it. ctx carries the
// event's tenant. A failing projection does not stop the others; the joined error
// makes the outbox redeliver and the ledger skips what was already applied.
func (e *Engine) Handle(ctx context.Context, event shared.DomainEvent) error {
	position := e.position(ctx, event)

	var errs []error
	for _, p := range e.projections {
		if !p.Handles(event.EventType()) {
			continue
		}
		if _, err := e.Apply(ctx, p, event, position); err != nil {
			e.logger.Error("projection failed",
				zap.String("projection", p.Name()),
				zap.String("event_id", event.EventID().String()),
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Apply folds event into p exactly once. The ledger row and the read-table changes
// commit together; false means p had already applied the event.
func (e *Engine) Apply(ctx context.Context, p Projection, event shared.DomainEvent, position int64) (bool, error) {
	applied := false
	err := e.db.Transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ProcessedEventModel{
			Projection:  p.Name(),
			EventID:     event.EventID(),
			TenantID:    event.TenantID(),
			Position:    position,
			ProcessedAt: time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := p.Apply(ctx, tx, event); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (e *Engine) position(ctx context.Context, event shared.DomainEvent) int64 {
	if e.store == nil {
		return 0
	}
	stored, err := e.store.FindByEventID(ctx, event.EventID())
	if err != nil {
		e.logger.Debug("event position unavailable",
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
		return 0
	}
	return stored.Position
}

var _ shared.EventHandler = (*Engine)(nil)
