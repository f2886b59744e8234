// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free from
// ORM concerns.
//
// Every model carrying a tenant_id column is tenant-owned: the tenant callbacks add
// the tenant predicate to its queries and stamp the tenant on its inserts. TenantModels
// lists them for the tenant registry; SharedModels lists the global tables.
//
// Structure:
//   - base.go: shared columns and aggregate mapping helpers
//   - identity.go: tenants and users
//   - partner.go: clients and pets
//   - catalog.go: products and stock movements
//   - sales.go: sales and sale items
//   - finance.go: receivables, payables and commissions
//   - delivery.go: routes and stops
//   - crm.go: conversations and messages
//   - event.go: event store and outbox
//   - readmodel.go: projection read tables, ledger and checkpoints
package models
