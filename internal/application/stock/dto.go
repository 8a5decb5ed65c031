package stock

import (
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiveStockRequest creates a new batch from a supplier receipt
type ReceiveStockRequest struct {
	SKU            string          `json:"sku" binding:"required"`
	Category       string          `json:"category" binding:"required"`
	BatchNumber    string          `json:"batch_number"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	UnitMeasure    string          `json:"unit_measure" binding:"required"`
	UnitCost       decimal.Decimal `json:"unit_cost" binding:"required"`
	SupplierRef    string          `json:"supplier_ref"`
	PurchaseOrder  string          `json:"purchase_order"`
	Location       string          `json:"location"`
	ExpirationDate *time.Time      `json:"expiration_date"`
	Actor          string          `json:"actor"`
}

// AllocateStockRequest asks for a FIFO allocation against one SKU
type AllocateStockRequest struct {
	SKU         string          `json:"sku" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	ConsumerRef string          `json:"consumer_ref" binding:"required"`
	Actor       string          `json:"actor"`
}

// MovementResponse is one movement row in API shape
type MovementResponse struct {
	ID           uuid.UUID       `json:"id"`
	BatchID      uuid.UUID       `json:"batch_id"`
	SKU          string          `json:"sku"`
	MovementType string          `json:"movement_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitMeasure  string          `json:"unit_measure"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	ConsumerRef  string          `json:"consumer_ref,omitempty"`
	Actor        string          `json:"actor,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// AllocationResponse is the result of a committed FIFO allocation
type AllocationResponse struct {
	SKU               string             `json:"sku"`
	AllocatedQuantity decimal.Decimal    `json:"allocated_quantity"`
	WeightedUnitCost  decimal.Decimal    `json:"weighted_unit_cost"`
	TotalCost         decimal.Decimal    `json:"total_cost"`
	Movements         []MovementResponse `json:"movements"`
}

// BatchResponse is one stock batch in API shape
type BatchResponse struct {
	ID                uuid.UUID       `json:"id"`
	SKU               string          `json:"sku"`
	BatchNumber       string          `json:"batch_number,omitempty"`
	Category          string          `json:"category"`
	QuantityReceived  decimal.Decimal `json:"quantity_received"`
	QuantityRemaining decimal.Decimal `json:"quantity_remaining"`
	UnitMeasure       string          `json:"unit_measure"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	ReceivedAt        time.Time       `json:"received_at"`
	ExpirationDate    *time.Time      `json:"expiration_date,omitempty"`
	SupplierRef       string          `json:"supplier_ref,omitempty"`
	Location          string          `json:"location,omitempty"`
	IsAvailable       bool            `json:"is_available"`
	IsExhausted       bool            `json:"is_exhausted"`
}

// ToBatchResponse maps a domain batch to its API shape
func ToBatchResponse(b *stock.StockBatch) BatchResponse {
	return BatchResponse{
		ID:                b.ID,
		SKU:               b.SKU,
		BatchNumber:       b.BatchNumber,
		Category:          b.Category.String(),
		QuantityReceived:  b.QuantityReceived,
		QuantityRemaining: b.QuantityRemaining,
		UnitMeasure:       b.UnitMeasure,
		UnitCost:          b.UnitCost,
		ReceivedAt:        b.ReceivedAt,
		ExpirationDate:    b.ExpirationDate,
		SupplierRef:       b.SupplierRef,
		Location:          b.Location,
		IsAvailable:       b.IsAvailable,
		IsExhausted:       b.IsExhausted(),
	}
}

// ToBatchResponses maps a slice of batches
func ToBatchResponses(batches []stock.StockBatch) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i := range batches {
		out[i] = ToBatchResponse(&batches[i])
	}
	return out
}

// ToMovementResponse maps a domain movement to its API shape
func ToMovementResponse(m *stock.StockMovement) MovementResponse {
	return MovementResponse{
		ID:           m.ID,
		BatchID:      m.BatchID,
		SKU:          m.SKU,
		MovementType: m.MovementType.String(),
		Quantity:     m.Quantity,
		UnitMeasure:  m.UnitMeasure,
		UnitCost:     m.UnitCost,
		TotalCost:    m.TotalCost,
		ConsumerRef:  m.ConsumerRef,
		Actor:        m.Actor,
		OccurredAt:   m.OccurredAt,
	}
}

// ToMovementResponses maps a slice of movements
func ToMovementResponses(movements []stock.StockMovement) []MovementResponse {
	out := make([]MovementResponse, len(movements))
	for i := range movements {
		out[i] = ToMovementResponse(&movements[i])
	}
	return out
}
