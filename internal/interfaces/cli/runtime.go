package cli

import (
	"context"

	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/petshop/erp/internal/infrastructure/event"
	"github.com/petshop/erp/internal/infrastructure/logger"
	"github.com/petshop/erp/internal/infrastructure/persistence"
	"github.com/petshop/erp/internal/infrastructure/readmodel"
)

// OpenRuntime connects to the configured database and builds the replayer
func OpenRuntime(_ context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(&logger.Config{
		Level:      opts.LogLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return nil, err
	}

	db, err := persistence.NewDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	store := event.NewGormEventStore(db.Tenant, serializer)
	engine := readmodel.NewEngine(db.Tenant, store, log, readmodel.DefaultProjections()...)

	return &Runtime{
		Replayer: readmodel.NewReplayer(db.Tenant, store, engine, serializer, cfg.Event.ReplayBatchSize, log),
		Guard:    db.Guard,
		Close: func() error {
			logger.Sync(log)
			return db.Close()
		},
	}, nil
}
