package stock

import (
	"fmt"
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Category classifies a raw material SKU
type Category string

const (
	CategoryMalt      Category = "MALT"
	CategoryHops      Category = "HOPS"
	CategoryYeast     Category = "YEAST"
	CategoryAdjunct   Category = "ADJUNCT"
	CategoryGas       Category = "GAS"
	CategoryPackaging Category = "PACKAGING"
	CategoryOther     Category = "OTHER"
)

// IsValid returns true if the category is one of the known values
func (c Category) IsValid() bool {
	switch c {
	case CategoryMalt, CategoryHops, CategoryYeast, CategoryAdjunct,
		CategoryGas, CategoryPackaging, CategoryOther:
		return true
	}
	return false
}

// String returns the string representation
func (c Category) String() string {
	return string(c)
}

// StockBatch represents a single receipt of one SKU from a supplier.
// FIFO rotation is driven by ReceivedAt; the unit cost is fixed at receipt
// and never changes. Exhausted batches are kept for cost lineage, never deleted.
type StockBatch struct {
	shared.BaseAggregateRoot
	SKU               string          `gorm:"type:varchar(50);not null;index:idx_batch_fifo,priority:1"`
	BatchNumber       string          `gorm:"type:varchar(100)"`
	Category          Category        `gorm:"type:varchar(20);not null"`
	QuantityReceived  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityRemaining decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitMeasure       string          `gorm:"type:varchar(10);not null"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalCost         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedAt        time.Time       `gorm:"not null;index:idx_batch_fifo,priority:2"`
	ExpirationDate    *time.Time
	SupplierRef       string `gorm:"type:varchar(100)"`
	PurchaseOrder     string `gorm:"type:varchar(100)"`
	Location          string `gorm:"type:varchar(100)"`
	IsAvailable       bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (StockBatch) TableName() string {
	return "stock_batches"
}

// NewStockBatch creates a batch for a fresh receipt of raw material
func NewStockBatch(
	sku string,
	category Category,
	quantity decimal.Decimal,
	unitMeasure string,
	unitCost decimal.Decimal,
	supplierRef string,
) (*StockBatch, error) {
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "SKU is required")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown stock category %q", category))
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Received quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unit cost cannot be negative")
	}

	b := &StockBatch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Category:          category,
		QuantityReceived:  quantity,
		QuantityRemaining: quantity,
		UnitMeasure:       unitMeasure,
		UnitCost:          unitCost,
		TotalCost:         quantity.Mul(unitCost),
		ReceivedAt:        time.Now(),
		SupplierRef:       supplierRef,
		IsAvailable:       true,
	}
	b.AddDomainEvent(NewBatchReceivedEvent(b))
	return b, nil
}

// Deduct removes quantity from the batch. The caller must never request more
// than QuantityRemaining; the allocator is responsible for splitting requests
// across batches.
func (b *StockBatch) Deduct(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_INPUT", "Deduction quantity must be positive")
	}
	if quantity.GreaterThan(b.QuantityRemaining) {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Batch %s holds %s, cannot deduct %s",
				b.ID, b.QuantityRemaining.String(), quantity.String()))
	}
	b.QuantityRemaining = b.QuantityRemaining.Sub(quantity)
	b.UpdatedAt = time.Now()
	return nil
}

// Hold places the batch under quality hold, removing it from allocation
func (b *StockBatch) Hold() {
	b.IsAvailable = false
	b.UpdatedAt = time.Now()
}

// ReleaseHold makes the batch allocatable again
func (b *StockBatch) ReleaseHold() {
	b.IsAvailable = true
	b.UpdatedAt = time.Now()
}

// IsExhausted returns true when nothing remains in the batch
func (b *StockBatch) IsExhausted() bool {
	return b.QuantityRemaining.LessThanOrEqual(decimal.Zero)
}

// IsExpired returns true if the batch is past its expiration date
func (b *StockBatch) IsExpired() bool {
	if b.ExpirationDate == nil {
		return false
	}
	return b.ExpirationDate.Before(time.Now())
}

// IsAllocatable reports whether the allocator may draw from this batch
func (b *StockBatch) IsAllocatable() bool {
	return b.IsAvailable && !b.IsExhausted() && !b.IsExpired()
}

// RemainingValue returns the monetary value of what is left in the batch
func (b *StockBatch) RemainingValue() decimal.Decimal {
	return b.QuantityRemaining.Mul(b.UnitCost)
}
