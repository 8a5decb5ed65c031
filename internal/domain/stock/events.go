package stock

import (
	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants for the stock ledger
const (
	EventTypeBatchReceived       = "stock.batch_received"
	EventTypeStockAllocated      = "stock.allocated"
	EventTypeStockBelowThreshold = "stock.below_threshold"
)

// AggregateTypeStockBatch is the aggregate type name used in events
const AggregateTypeStockBatch = "StockBatch"

// BatchReceivedEvent is emitted when a new batch is received into stock
type BatchReceivedEvent struct {
	shared.BaseDomainEvent
	SKU         string          `json:"sku"`
	Category    Category        `json:"category"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	SupplierRef string          `json:"supplier_ref"`
}

// NewBatchReceivedEvent creates a BatchReceivedEvent from a batch
func NewBatchReceivedEvent(b *StockBatch) *BatchReceivedEvent {
	return &BatchReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchReceived, AggregateTypeStockBatch, b.ID),
		SKU:             b.SKU,
		Category:        b.Category,
		Quantity:        b.QuantityReceived,
		UnitCost:        b.UnitCost,
		SupplierRef:     b.SupplierRef,
	}
}

// StockAllocatedEvent is emitted after a FIFO allocation commits
type StockAllocatedEvent struct {
	shared.BaseDomainEvent
	SKU              string          `json:"sku"`
	Quantity         decimal.Decimal `json:"quantity"`
	WeightedUnitCost decimal.Decimal `json:"weighted_unit_cost"`
	ConsumerRef      string          `json:"consumer_ref"`
	BatchesTouched   int             `json:"batches_touched"`
}

// NewStockAllocatedEvent creates a StockAllocatedEvent from an allocation plan
func NewStockAllocatedEvent(plan *AllocationPlan, consumerRef string) *StockAllocatedEvent {
	var aggID uuid.UUID
	if len(plan.Lines) > 0 {
		aggID = plan.Lines[0].BatchID
	}
	return &StockAllocatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeStockAllocated, AggregateTypeStockBatch, aggID),
		SKU:              plan.SKU,
		Quantity:         plan.TotalQuantity,
		WeightedUnitCost: plan.WeightedUnitCost,
		ConsumerRef:      consumerRef,
		BatchesTouched:   len(plan.Lines),
	}
}

// StockBelowThresholdEvent is emitted when a SKU's remaining total drops
// below the configured threshold after an allocation commits
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	SKU       string          `json:"sku"`
	Remaining decimal.Decimal `json:"remaining"`
	Threshold decimal.Decimal `json:"threshold"`
}

// NewStockBelowThresholdEvent creates a StockBelowThresholdEvent
func NewStockBelowThresholdEvent(sku string, remaining, threshold decimal.Decimal) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, AggregateTypeStockBatch, uuid.Nil),
		SKU:             sku,
		Remaining:       remaining,
		Threshold:       threshold,
	}
}
