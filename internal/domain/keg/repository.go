package keg

import (
	"context"
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
)

// AtRiskKeg pairs an overdue IN_CLIENT keg with the age of its last move
type AtRiskKeg struct {
	Keg         KegAsset  `json:"keg"`
	LastMovedAt time.Time `json:"last_moved_at"`
	DaysOut     int       `json:"days_out"`
}

// KegAssetRepository defines persistence for keg assets.
// Assets are never deleted; retirement is a terminal state, not a removal.
type KegAssetRepository interface {
	// FindByID finds a keg by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*KegAsset, error)

	// FindByIDs finds multiple kegs. Inside a transaction scope the rows
	// are locked FOR UPDATE in sorted-id order to avoid deadlock cycles.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*KegAsset, error)

	// FindBySerialNumber finds a keg by its serial number
	FindBySerialNumber(ctx context.Context, serial string) (*KegAsset, error)

	// FindByScanCode finds a keg by primary or secondary scan code
	FindByScanCode(ctx context.Context, code string) (*KegAsset, error)

	// FindByState finds kegs currently in a state
	FindByState(ctx context.Context, state State, filter shared.Filter) ([]KegAsset, error)

	// Create persists a newly registered keg
	Create(ctx context.Context, k *KegAsset) error

	// Save updates an existing keg
	Save(ctx context.Context, k *KegAsset) error

	// SaveAll updates multiple kegs
	SaveAll(ctx context.Context, kegs []*KegAsset) error

	// List finds kegs matching the filter
	List(ctx context.Context, filter shared.Filter) ([]KegAsset, error)

	// Count counts kegs matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByState counts kegs per lifecycle state
	CountByState(ctx context.Context) (map[State]int64, error)
}

// KegTransitionRepository defines persistence for the transition log.
// Append-only by construction: no update or delete methods exist.
type KegTransitionRepository interface {
	// Create appends one transition
	Create(ctx context.Context, tr *KegTransition) error

	// CreateBatch appends multiple transitions
	CreateBatch(ctx context.Context, trs []*KegTransition) error

	// FindByKeg finds a keg's transitions, newest first
	FindByKeg(ctx context.Context, kegID uuid.UUID, filter shared.Filter) ([]KegTransition, error)

	// FindLatestByKeg finds a keg's most recent transition
	FindLatestByKeg(ctx context.Context, kegID uuid.UUID) (*KegTransition, error)

	// FindByBulkOp finds every transition stamped with a bulk operation id
	FindByBulkOp(ctx context.Context, bulkOpID string) ([]KegTransition, error)

	// FindAtRisk finds IN_CLIENT kegs whose latest transition is older than
	// the cutoff, with the age of that transition, most overdue first
	FindAtRisk(ctx context.Context, cutoff time.Time) ([]AtRiskKeg, error)

	// CountByKeg counts transitions recorded for a keg
	CountByKeg(ctx context.Context, kegID uuid.UUID) (int64, error)
}
