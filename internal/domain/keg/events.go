package keg

import (
	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants for the keg ledger
const (
	EventTypeKegRegistered       = "keg.registered"
	EventTypeKegTransitioned     = "keg.transitioned"
	EventTypeKegBulkTransitioned = "keg.bulk_transitioned"
)

// AggregateTypeKegAsset is the aggregate type name used in events
const AggregateTypeKegAsset = "KegAsset"

// KegRegisteredEvent is emitted when a keg enters the asset register
type KegRegisteredEvent struct {
	shared.BaseDomainEvent
	SerialNumber string `json:"serial_number"`
	ScanCode     string `json:"scan_code"`
	SizeLiters   Size   `json:"size_liters"`
}

// NewKegRegisteredEvent creates a KegRegisteredEvent from an asset
func NewKegRegisteredEvent(k *KegAsset) *KegRegisteredEvent {
	return &KegRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeKegRegistered, AggregateTypeKegAsset, k.ID),
		SerialNumber:    k.SerialNumber,
		ScanCode:        k.ScanCode,
		SizeLiters:      k.SizeLiters,
	}
}

// KegTransitionedEvent is emitted after a lifecycle move commits
type KegTransitionedEvent struct {
	shared.BaseDomainEvent
	SerialNumber string `json:"serial_number"`
	FromState    State  `json:"from_state"`
	ToState      State  `json:"to_state"`
	Actor        string `json:"actor"`
	Location     string `json:"location"`
	BulkOpID     string `json:"bulk_op_id,omitempty"`
	CycleCount   int    `json:"cycle_count"`
}

// NewKegTransitionedEvent creates a KegTransitionedEvent
func NewKegTransitionedEvent(k *KegAsset, from, to State, ctx TransitionContext) *KegTransitionedEvent {
	return &KegTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeKegTransitioned, AggregateTypeKegAsset, k.ID),
		SerialNumber:    k.SerialNumber,
		FromState:       from,
		ToState:         to,
		Actor:           ctx.Actor,
		Location:        ctx.Location,
		BulkOpID:        ctx.BulkOpID,
		CycleCount:      k.CycleCount,
	}
}

// KegBulkTransitionedEvent summarizes one committed bulk operation. The
// per-keg KegTransitionedEvents carry the same bulk operation id.
type KegBulkTransitionedEvent struct {
	shared.BaseDomainEvent
	BulkOpID string `json:"bulk_op_id"`
	ToState  State  `json:"to_state"`
	KegCount int    `json:"keg_count"`
	Actor    string `json:"actor"`
}

// NewKegBulkTransitionedEvent creates a KegBulkTransitionedEvent
func NewKegBulkTransitionedEvent(bulkOpID string, to State, kegCount int, actor string) *KegBulkTransitionedEvent {
	return &KegBulkTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeKegBulkTransitioned, AggregateTypeKegAsset, uuid.Nil),
		BulkOpID:        bulkOpID,
		ToState:         to,
		KegCount:        kegCount,
		Actor:           actor,
	}
}
