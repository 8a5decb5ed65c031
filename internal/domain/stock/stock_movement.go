package stock

import (
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType represents why stock changed
type MovementType string

const (
	// MovementTypeReceipt records a new batch arriving from a supplier
	MovementTypeReceipt MovementType = "RECEIPT"
	// MovementTypeConsumption records a FIFO deduction against a batch
	MovementTypeConsumption MovementType = "CONSUMPTION"
	// MovementTypeQualityHold records a batch being pulled from rotation
	MovementTypeQualityHold MovementType = "QUALITY_HOLD"
	// MovementTypeQualityRelease records a batch returning to rotation
	MovementTypeQualityRelease MovementType = "QUALITY_RELEASE"
)

// String returns the string representation
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is known
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeReceipt, MovementTypeConsumption,
		MovementTypeQualityHold, MovementTypeQualityRelease:
		return true
	}
	return false
}

// StockMovement is an immutable record of one change against one batch.
// Movements are the cost-lineage proof for downstream costing: unit cost is
// copied from the batch at the time of the movement, never recomputed.
// Corrections are made with new movements, never by editing old ones.
type StockMovement struct {
	shared.BaseEntity
	BatchID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_batch"`
	SKU          string          `gorm:"type:varchar(50);not null;index:idx_movement_sku"`
	MovementType MovementType    `gorm:"type:varchar(20);not null;index:idx_movement_type"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitMeasure  string          `gorm:"type:varchar(10);not null"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalCost    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ConsumerRef  string          `gorm:"type:varchar(100);index:idx_movement_consumer"`
	Location     string          `gorm:"type:varchar(100)"`
	Actor        string          `gorm:"type:varchar(100)"`
	OccurredAt   time.Time       `gorm:"not null;index:idx_movement_time"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a movement row against a batch
func NewStockMovement(
	batch *StockBatch,
	movementType MovementType,
	quantity decimal.Decimal,
	consumerRef string,
	actor string,
) *StockMovement {
	return &StockMovement{
		BaseEntity:   shared.NewBaseEntity(),
		BatchID:      batch.ID,
		SKU:          batch.SKU,
		MovementType: movementType,
		Quantity:     quantity,
		UnitMeasure:  batch.UnitMeasure,
		UnitCost:     batch.UnitCost,
		TotalCost:    quantity.Mul(batch.UnitCost),
		ConsumerRef:  consumerRef,
		Location:     batch.Location,
		Actor:        actor,
		OccurredAt:   time.Now(),
	}
}
