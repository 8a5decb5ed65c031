package stock

import (
	"context"
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SKUSummary aggregates the stock position of one SKU
type SKUSummary struct {
	SKU            string          `json:"sku"`
	Category       Category        `json:"category"`
	UnitMeasure    string          `json:"unit_measure"`
	BatchCount     int64           `json:"batch_count"`
	TotalReceived  decimal.Decimal `json:"total_received"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	TotalValue     decimal.Decimal `json:"total_value"`
	OldestReceipt  time.Time       `json:"oldest_receipt"`
}

// StockBatchRepository defines persistence for stock batches.
// Batches are never deleted; an exhausted batch stays for traceability.
type StockBatchRepository interface {
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockBatch, error)

	// FindBySKU finds all batches for a SKU, newest receipt first
	FindBySKU(ctx context.Context, sku string, filter shared.Filter) ([]StockBatch, error)

	// FindAllocatableBySKU finds batches the allocator may draw from
	// (available, unexpired, remaining > 0) in FIFO order. Inside a
	// transaction scope the rows are locked FOR UPDATE in that same order.
	FindAllocatableBySKU(ctx context.Context, sku string) ([]*StockBatch, error)

	// SumRemainingBySKU sums the remaining quantity across a SKU's batches
	SumRemainingBySKU(ctx context.Context, sku string) (decimal.Decimal, error)

	// Summarize aggregates the stock position per SKU
	Summarize(ctx context.Context) ([]SKUSummary, error)

	// Create persists a new batch
	Create(ctx context.Context, batch *StockBatch) error

	// Save updates an existing batch
	Save(ctx context.Context, batch *StockBatch) error

	// SaveAll updates multiple batches
	SaveAll(ctx context.Context, batches []*StockBatch) error

	// List finds batches matching the filter
	List(ctx context.Context, filter shared.Filter) ([]StockBatch, error)

	// Count counts batches matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// MovementFilter narrows movement log queries
type MovementFilter struct {
	shared.Filter
	SKU          string
	BatchID      *uuid.UUID
	MovementType *MovementType
	ConsumerRef  string
	Since        *time.Time
	Until        *time.Time
}

// StockMovementRepository defines persistence for the movement log.
// The interface is deliberately append-only: there is no update or delete,
// so cost lineage is tamper-evident at the component boundary.
type StockMovementRepository interface {
	// Create appends one movement
	Create(ctx context.Context, movement *StockMovement) error

	// CreateBatch appends multiple movements
	CreateBatch(ctx context.Context, movements []*StockMovement) error

	// FindByBatch finds movements for a batch, oldest first
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]StockMovement, error)

	// FindBySKU finds movements for a SKU matching the filter
	FindBySKU(ctx context.Context, sku string, filter shared.Filter) ([]StockMovement, error)

	// List finds movements matching the filter
	List(ctx context.Context, filter MovementFilter) ([]StockMovement, error)

	// Count counts movements matching the filter
	Count(ctx context.Context, filter MovementFilter) (int64, error)

	// SumQuantityBySKU sums deducted quantity for a SKU and movement type
	SumQuantityBySKU(ctx context.Context, sku string, movementType MovementType) (decimal.Decimal, error)
}
