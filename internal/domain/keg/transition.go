package keg

import (
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
)

// KegTransition is the immutable record of one lifecycle move. The transition
// log is the only way to reconstruct where an asset has been; rows are never
// updated or deleted.
type KegTransition struct {
	shared.BaseEntity
	KegID      uuid.UUID `gorm:"type:uuid;not null;index:idx_transition_keg_time,priority:1"`
	FromState  State     `gorm:"type:varchar(20);not null"`
	ToState    State     `gorm:"type:varchar(20);not null;index"`
	Actor      string    `gorm:"type:varchar(100)"`
	Location   string    `gorm:"type:varchar(100)"`
	HolderRef  string    `gorm:"type:varchar(100)"`
	Note       string    `gorm:"type:varchar(500)"`
	BulkOpID   string    `gorm:"type:varchar(50);index:idx_transition_bulk"`
	OccurredAt time.Time `gorm:"not null;index:idx_transition_keg_time,priority:2"`
}

// TableName returns the table name for GORM
func (KegTransition) TableName() string {
	return "keg_transitions"
}

// NewKegTransition creates a transition row
func NewKegTransition(kegID uuid.UUID, from, to State, ctx TransitionContext) *KegTransition {
	return &KegTransition{
		BaseEntity: shared.NewBaseEntity(),
		KegID:      kegID,
		FromState:  from,
		ToState:    to,
		Actor:      ctx.Actor,
		Location:   ctx.Location,
		HolderRef:  ctx.HolderRef,
		Note:       ctx.Note,
		BulkOpID:   ctx.BulkOpID,
		OccurredAt: time.Now(),
	}
}
