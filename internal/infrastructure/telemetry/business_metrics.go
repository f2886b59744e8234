package telemetry

import (
	"context"
	"time"

	"github.com/petshop/erp/internal/domain/crm"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metric attribute keys
var (
	AttrTenantID      = attribute.Key("tenant_id")
	AttrPaymentMethod = attribute.Key("payment_method")
	AttrMessageKind   = attribute.Key("message_kind")
	AttrProjection    = attribute.Key("projection")
)

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// BusinessMetrics turns domain events into shop counters. It subscribes to
// the event bus like any other handler, so counts follow the outbox.
type BusinessMetrics struct {
	logger *zap.Logger

	salesCompleted   *Counter
	salesCancelled   *Counter
	revenue          *FloatCounter
	ticket           *Histogram
	messagesReceived *Counter
	lowStock         *Counter
	replayDuration   *Histogram
}

// NewBusinessMetrics creates the business instruments on meter.
func NewBusinessMetrics(meter metric.Meter, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}
	var err error
	if bm.salesCompleted, err = NewCounter(meter, "erp_sales_completed_total", "Sales closed at the POS", "{sale}"); err != nil {
		return nil, err
	}
	if bm.salesCancelled, err = NewCounter(meter, "erp_sales_cancelled_total", "Sales voided after completion", "{sale}"); err != nil {
		return nil, err
	}
	if bm.revenue, err = NewFloatCounter(meter, "erp_sales_revenue", "Net revenue of completed sales", "BRL"); err != nil {
		return nil, err
	}
	if bm.ticket, err = NewHistogram(meter, HistogramOpts{
		Name:        "erp_sale_ticket",
		Description: "Distribution of sale totals",
		Unit:        "BRL",
		Boundaries:  []float64{10, 25, 50, 100, 200, 500, 1000, 2500},
	}); err != nil {
		return nil, err
	}
	if bm.messagesReceived, err = NewCounter(meter, "erp_whatsapp_messages_received_total", "Inbound WhatsApp messages", "{message}"); err != nil {
		return nil, err
	}
	if bm.lowStock, err = NewCounter(meter, "erp_inventory_low_stock_total", "Products crossing down to their reorder level", "{event}"); err != nil {
		return nil, err
	}
	if bm.replayDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "erp_projection_replay_duration",
		Description: "Time spent rebuilding a projection",
		Unit:        "s",
	}); err != nil {
		return nil, err
	}
	return bm, nil
}

// Name implements event.NamedHandler
func (bm *BusinessMetrics) Name() string { return "business_metrics" }

// EventTypes implements shared.EventHandler
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		sales.EventTypeSaleCompleted,
		sales.EventTypeSaleCancelled,
		crm.EventTypeMessageReceived,
		inventory.EventTypeStockLow,
	}
}

// Handle implements shared.EventHandler
func (bm *BusinessMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	tenant := AttrTenantID.String(event.TenantID().String())
	switch e := event.(type) {
	case *sales.SaleCompletedEvent:
		total, _ := e.Total.Float64()
		method := AttrPaymentMethod.String(string(e.PaymentMethod))
		bm.salesCompleted.Inc(ctx, tenant, method)
		bm.revenue.Add(ctx, total, tenant, method)
		bm.ticket.Record(ctx, total, tenant)
	case *sales.SaleCancelledEvent:
		bm.salesCancelled.Inc(ctx, tenant)
	case *crm.MessageReceivedEvent:
		bm.messagesReceived.Inc(ctx, tenant, AttrMessageKind.String(string(e.Kind)))
	case *inventory.StockLowEvent:
		bm.lowStock.Inc(ctx, tenant)
	default:
		bm.logger.Debug("business metrics ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}

// RecordReplay records the duration of a projection rebuild
func (bm *BusinessMetrics) RecordReplay(ctx context.Context, projection string, d time.Duration) {
	bm.replayDuration.RecordDuration(ctx, d, AttrProjection.String(projection))
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)
