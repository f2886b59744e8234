package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesDailyModel aggregates sales per tenant and calendar day (UTC, YYYY-MM-DD)
type SalesDailyModel struct {
	TenantID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Day            string          `gorm:"type:varchar(10);primaryKey"`
	SalesCount     int             `gorm:"not null;default:0"`
	CancelledCount int             `gorm:"not null;default:0"`
	Gross          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Discounts      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Net            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Cost           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (SalesDailyModel) TableName() string {
	return "rm_sales_daily"
}

// ClientSummaryModel aggregates purchases per client
type ClientSummaryModel struct {
	TenantID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ClientID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name           string          `gorm:"type:varchar(200)"`
	PurchaseCount  int             `gorm:"not null;default:0"`
	TotalSpent     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LastPurchaseAt *time.Time
	// client version the name was taken from
	ClientVersion  int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ClientSummaryModel) TableName() string {
	return "rm_client_summary"
}

// ProductSalesModel aggregates sold quantity and revenue per product
type ProductSalesModel struct {
	TenantID  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SKU       string          `gorm:"type:varchar(50)"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	Revenue   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Cost      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (ProductSalesModel) TableName() string {
	return "rm_product_sales"
}

// SellerCommissionModel aggregates commissions per seller and month (YYYY-MM)
type SellerCommissionModel struct {
	TenantID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SellerID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Month           string          `gorm:"type:varchar(7);primaryKey"`
	SalesCount      int             `gorm:"not null;default:0"`
	SalesTotal      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CommissionTotal decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (SellerCommissionModel) TableName() string {
	return "rm_seller_commissions"
}

// StockLevelModel is the latest known stock of a product
type StockLevelModel struct {
	TenantID  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SKU       string          `gorm:"type:varchar(50)"`
	Name      string          `gorm:"type:varchar(200)"`
	OnHand    decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	MinStock  decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	LowStock  bool            `gorm:"not null;index"`

	// product version of the snapshot held in the row
	ProductVersion int       `gorm:"not null;default:0"`
	// time of the last stock event, not of the row write
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false;not null"`
}

// TableName returns the table name for GORM
func (StockLevelModel) TableName() string {
	return "rm_stock_levels"
}

// ProcessedEventModel is the per-projection ledger of applied events
type ProcessedEventModel struct {
	Projection  string    `gorm:"type:varchar(64);primaryKey"`
	EventID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Position    int64     `gorm:"not null"`
	ProcessedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProcessedEventModel) TableName() string {
	return "projection_processed_events"
}

// CheckpointModel is the last event-store position a projection has caught up to
type CheckpointModel struct {
	Projection string    `gorm:"type:varchar(64);primaryKey"`
	Position   int64     `gorm:"not null;default:0"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CheckpointModel) TableName() string {
	return "projection_checkpoints"
}

// TenantModels returns every model that carries a tenant_id column
func TenantModels() []any {
	return []any{
		&UserModel{},
		&ClientModel{},
		&PetModel{},
		&ProductModel{},
		&StockMovementModel{},
		&SaleModel{},
		&SaleItemModel{},
		&ReceivableModel{},
		&PayableModel{},
		&PayablePaymentModel{},
		&CommissionModel{},
		&RouteModel{},
		&RouteStopModel{},
		&ConversationModel{},
		&MessageModel{},
		&DomainEventModel{},
		&OutboxEntryModel{},
		&SalesDailyModel{},
		&ClientSummaryModel{},
		&ProductSalesModel{},
		&SellerCommissionModel{},
		&StockLevelModel{},
		&ProcessedEventModel{},
	}
}

// SharedModels returns the global tables
func SharedModels() []any {
	return []any{
		&TenantModel{},
		&CheckpointModel{},
	}
}

// AllModels returns every persistence model in dependency order
func AllModels() []any {
	return append(SharedModels(), TenantModels()...)
}
