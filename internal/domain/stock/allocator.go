package stock

import (
	"fmt"
	"sort"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewInsufficientStockError builds the error returned when the eligible
// batches of a SKU cannot cover a requested quantity. Requested and available
// amounts are included so the caller can act without re-querying.
func NewInsufficientStockError(sku string, requested, available decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError("INSUFFICIENT_STOCK",
		fmt.Sprintf("Insufficient stock for SKU %q: requested %s, available %s",
			sku, requested.String(), available.String()))
}

// AllocationLine describes one deduction the allocator planned against one batch
type AllocationLine struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Exhausted   bool            `json:"exhausted"`
}

// AllocationPlan is the outcome of a FIFO allocation across one SKU's batches
type AllocationPlan struct {
	SKU              string          `json:"sku"`
	Lines            []AllocationLine `json:"lines"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	WeightedUnitCost decimal.Decimal `json:"weighted_unit_cost"`
}

// FIFOAllocator plans strict oldest-first allocations across stock batches.
// It is a pure domain service: it computes and applies deductions on batches
// already loaded (and locked) by the caller; persistence and transaction
// boundaries belong to the application layer.
type FIFOAllocator struct{}

// NewFIFOAllocator creates a new FIFO allocator
func NewFIFOAllocator() *FIFOAllocator {
	return &FIFOAllocator{}
}

// SortFIFO orders batches oldest-first by ReceivedAt, breaking ties by batch
// ID ascending so the selection order is deterministic and reproducible.
// Lock acquisition uses the same order to avoid deadlock cycles.
func SortFIFO(batches []*StockBatch) {
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].ReceivedAt.Equal(batches[j].ReceivedAt) {
			return batches[i].ReceivedAt.Before(batches[j].ReceivedAt)
		}
		return batches[i].ID.String() < batches[j].ID.String()
	})
}

// TotalAllocatable sums the remaining quantity across allocatable batches
func TotalAllocatable(batches []*StockBatch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if b.IsAllocatable() {
			total = total.Add(b.QuantityRemaining)
		}
	}
	return total
}

// Allocate deducts the requested quantity from the given batches oldest-first
// and returns the plan with per-batch lines and the weighted unit cost.
//
// Semantics are all-or-nothing: if the allocatable total is short of the
// request, no batch is touched and an INSUFFICIENT_STOCK error is returned.
func (a *FIFOAllocator) Allocate(sku string, quantity decimal.Decimal, batches []*StockBatch) (*AllocationPlan, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Requested quantity must be positive")
	}

	eligible := make([]*StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.SKU == sku && b.IsAllocatable() {
			eligible = append(eligible, b)
		}
	}

	available := TotalAllocatable(eligible)
	if available.LessThan(quantity) {
		return nil, NewInsufficientStockError(sku, quantity, available)
	}

	SortFIFO(eligible)

	plan := &AllocationPlan{
		SKU:           sku,
		Lines:         make([]AllocationLine, 0, len(eligible)),
		TotalQuantity: decimal.Zero,
		TotalCost:     decimal.Zero,
	}

	remaining := quantity
	for _, batch := range eligible {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, batch.QuantityRemaining)
		if err := batch.Deduct(take); err != nil {
			return nil, err
		}

		lineCost := take.Mul(batch.UnitCost)
		plan.Lines = append(plan.Lines, AllocationLine{
			BatchID:     batch.ID,
			BatchNumber: batch.BatchNumber,
			Quantity:    take,
			UnitCost:    batch.UnitCost,
			TotalCost:   lineCost,
			Exhausted:   batch.IsExhausted(),
		})
		plan.TotalQuantity = plan.TotalQuantity.Add(take)
		plan.TotalCost = plan.TotalCost.Add(lineCost)
		remaining = remaining.Sub(take)
	}

	plan.WeightedUnitCost = plan.TotalCost.Div(plan.TotalQuantity).Round(4)
	return plan, nil
}

// Movements materializes the plan into append-only movement rows, one per
// touched batch, copying each batch's fixed unit cost.
func (p *AllocationPlan) Movements(batches []*StockBatch, consumerRef, actor string) ([]*StockMovement, error) {
	index := make(map[uuid.UUID]*StockBatch, len(batches))
	for _, b := range batches {
		index[b.ID] = b
	}

	movements := make([]*StockMovement, 0, len(p.Lines))
	for _, line := range p.Lines {
		batch, ok := index[line.BatchID]
		if !ok {
			return nil, shared.NewDomainError("BATCH_NOT_FOUND",
				fmt.Sprintf("Batch %s from allocation plan not loaded", line.BatchID))
		}
		movements = append(movements, NewStockMovement(batch, MovementTypeConsumption, line.Quantity, consumerRef, actor))
	}
	return movements, nil
}
