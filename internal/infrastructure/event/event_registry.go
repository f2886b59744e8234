package event

import (
	"github.com/petshop/erp/internal/domain/crm"
	"github.com/petshop/erp/internal/domain/delivery"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/sales"
)

// RegisterAllEvents registers all domain event types with the serializer.
// The outbox processor and the projection replayer decode stored payloads through it.
func RegisterAllEvents(serializer *EventSerializer) {
	// Identity
	serializer.Register(identity.EventTypeTenantCreated, &identity.TenantCreatedEvent{})
	serializer.Register(identity.EventTypeUserCreated, &identity.UserCreatedEvent{})

	// Clients and pets
	serializer.Register(partner.EventTypeClientRegistered, &partner.ClientRegisteredEvent{})
	serializer.Register(partner.EventTypeClientUpdated, &partner.ClientUpdatedEvent{})
	serializer.Register(partner.EventTypePetAdded, &partner.PetAddedEvent{})

	// Inventory
	serializer.Register(inventory.EventTypeStockAdjusted, &inventory.StockAdjustedEvent{})
	serializer.Register(inventory.EventTypeStockLow, &inventory.StockLowEvent{})

	// Sales
	serializer.Register(sales.EventTypeSaleCompleted, &sales.SaleCompletedEvent{})
	serializer.Register(sales.EventTypeSaleCancelled, &sales.SaleCancelledEvent{})

	// Finance
	serializer.Register(finance.EventTypeReceivableCreated, &finance.ReceivableCreatedEvent{})
	serializer.Register(finance.EventTypeReceivablePaid, &finance.ReceivablePaidEvent{})
	serializer.Register(finance.EventTypePayablePaid, &finance.PayablePaidEvent{})
	serializer.Register(finance.EventTypeCommissionAccrued, &finance.CommissionAccruedEvent{})
	serializer.Register(finance.EventTypeCommissionCancelled, &finance.CommissionCancelledEvent{})

	// Delivery
	serializer.Register(delivery.EventTypeRoutePlanned, &delivery.RoutePlannedEvent{})
	serializer.Register(delivery.EventTypeStopCompleted, &delivery.StopCompletedEvent{})

	// WhatsApp CRM
	serializer.Register(crm.EventTypeMessageReceived, &crm.MessageReceivedEvent{})
}
