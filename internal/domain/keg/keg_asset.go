package keg

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
)

// Size is a keg size class in liters
type Size int

const (
	SizeTwenty Size = 20
	SizeThirty Size = 30
	SizeFifty  Size = 50
	SizeSixty  Size = 60
)

// IsValid returns true for the standard size classes
func (s Size) IsValid() bool {
	switch s {
	case SizeTwenty, SizeThirty, SizeFifty, SizeSixty:
		return true
	}
	return false
}

// TransitionContext carries the who/where of a lifecycle move
type TransitionContext struct {
	Actor     string
	Location  string
	HolderRef string // client id or internal location taking custody
	BatchRef  string // production batch reference, required context for FULL
	Note      string
	BulkOpID  string // shared id stamped on every row of a bulk operation

	// ResetCycleOnReturn zeroes the cycle count when a keg comes back
	// unsold (IN_TRANSIT -> FULL). Off by default; some sites count the
	// aborted trip as a cycle and keep the tally.
	ResetCycleOnReturn bool
}

// KegAsset is one physical serialized vessel tracked through its lifecycle.
// State only changes through Transition; retired kegs stay in the store.
type KegAsset struct {
	shared.BaseAggregateRoot
	SerialNumber    string `gorm:"type:varchar(50);not null;uniqueIndex"`
	ScanCode        string `gorm:"type:varchar(50);not null;uniqueIndex"`
	RFIDTag         string `gorm:"column:rfid_tag;type:varchar(100);index"`
	SizeLiters      Size   `gorm:"not null"`
	CurrentState    State  `gorm:"type:varchar(20);not null;index:idx_keg_state"`
	CurrentHolder   string `gorm:"type:varchar(100);index:idx_keg_holder"`
	CurrentLocation string `gorm:"type:varchar(100)"`
	BatchRef        string `gorm:"type:varchar(100);index"`
	CycleCount      int    `gorm:"not null;default:0"`
	LastCleanedAt   *time.Time
	LastFilledAt    *time.Time
	IsActive        bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (KegAsset) TableName() string {
	return "keg_assets"
}

// NewKegAsset registers a keg in its initial EMPTY state and assigns the
// primary scan code from the asset id
func NewKegAsset(serialNumber string, size Size) (*KegAsset, error) {
	if strings.TrimSpace(serialNumber) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Serial number is required")
	}
	if !size.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Unknown keg size %dL; expected 20, 30, 50 or 60", size))
	}

	k := &KegAsset{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SerialNumber:      serialNumber,
		SizeLiters:        size,
		CurrentState:      StateEmpty,
		IsActive:          true,
	}
	k.ScanCode = scanCodeFor(k.ID)
	k.AddDomainEvent(NewKegRegisteredEvent(k))
	return k, nil
}

// scanCodeFor derives the printed scan code from the asset id
func scanCodeFor(id uuid.UUID) string {
	return "KEG-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
}

// Transition validates and applies one lifecycle move, returning the
// append-only transition row that records it. The cycle count increments
// only on TAPPED -> EMPTY, the completion of one serving cycle.
func (k *KegAsset) Transition(to State, ctx TransitionContext) (*KegTransition, error) {
	if !to.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown keg state %q", to))
	}
	from := k.CurrentState
	if !CanTransition(from, to) {
		return nil, NewInvalidTransitionError(from, to)
	}

	now := time.Now()
	k.CurrentState = to
	k.UpdatedAt = now
	if ctx.Location != "" {
		k.CurrentLocation = ctx.Location
	}

	switch to {
	case StateClean:
		k.LastCleanedAt = &now
		k.BatchRef = ""
	case StateFull:
		// A return trip (IN_TRANSIT -> FULL) keeps the original fill
		if from == StateFilling {
			k.LastFilledAt = &now
			k.BatchRef = ctx.BatchRef
		} else if from == StateInTransit && ctx.ResetCycleOnReturn {
			k.CycleCount = 0
		}
	case StateInClient:
		if ctx.HolderRef != "" {
			k.CurrentHolder = ctx.HolderRef
		}
	case StateEmpty:
		if from == StateTapped {
			k.CycleCount++
		}
		k.BatchRef = ""
		k.CurrentHolder = ""
	case StateRetired:
		k.IsActive = false
	}

	tr := NewKegTransition(k.ID, from, to, ctx)
	k.AddDomainEvent(NewKegTransitionedEvent(k, from, to, ctx))
	return tr, nil
}
