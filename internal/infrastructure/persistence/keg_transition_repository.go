package persistence

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/keg"
	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormKegTransitionRepository implements KegTransitionRepository using GORM.
// Append-only: rows are inserted, never updated or deleted.
type GormKegTransitionRepository struct {
	db *gorm.DB
}

// NewGormKegTransitionRepository creates a new GormKegTransitionRepository
func NewGormKegTransitionRepository(db *gorm.DB) *GormKegTransitionRepository {
	return &GormKegTransitionRepository{db: db}
}

// Create appends one transition
func (r *GormKegTransitionRepository) Create(ctx context.Context, tr *keg.KegTransition) error {
	return r.db.WithContext(ctx).Create(tr).Error
}

// CreateBatch appends multiple transitions
func (r *GormKegTransitionRepository) CreateBatch(ctx context.Context, trs []*keg.KegTransition) error {
	if len(trs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(trs).Error
}

// FindByKeg finds a keg's transitions, newest first
func (r *GormKegTransitionRepository) FindByKeg(ctx context.Context, kegID uuid.UUID, filter shared.Filter) ([]keg.KegTransition, error) {
	var trs []keg.KegTransition
	err := r.db.WithContext(ctx).
		Where("keg_id = ?", kegID).
		Order("occurred_at DESC").
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&trs).Error
	if err != nil {
		return nil, err
	}
	return trs, nil
}

// FindLatestByKeg finds a keg's most recent transition
func (r *GormKegTransitionRepository) FindLatestByKeg(ctx context.Context, kegID uuid.UUID) (*keg.KegTransition, error) {
	var tr keg.KegTransition
	err := r.db.WithContext(ctx).
		Where("keg_id = ?", kegID).
		Order("occurred_at DESC").
		First(&tr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tr, nil
}

// FindByBulkOp finds every transition stamped with a bulk operation id
func (r *GormKegTransitionRepository) FindByBulkOp(ctx context.Context, bulkOpID string) ([]keg.KegTransition, error) {
	var trs []keg.KegTransition
	err := r.db.WithContext(ctx).
		Where("bulk_op_id = ?", bulkOpID).
		Order("occurred_at ASC").
		Find(&trs).Error
	if err != nil {
		return nil, err
	}
	return trs, nil
}

// FindAtRisk finds IN_CLIENT kegs whose latest transition is older than the
// cutoff, most overdue first. A keg's age is measured from its most recent
// transition of any kind.
func (r *GormKegTransitionRepository) FindAtRisk(ctx context.Context, cutoff time.Time) ([]keg.AtRiskKeg, error) {
	var assets []keg.KegAsset
	err := r.db.WithContext(ctx).
		Where("current_state = ?", keg.StateInClient).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var atRisk []keg.AtRiskKeg
	for i := range assets {
		last, err := r.FindLatestByKeg(ctx, assets[i].ID)
		if err != nil {
			return nil, err
		}
		if last == nil || !last.OccurredAt.Before(cutoff) {
			continue
		}
		atRisk = append(atRisk, keg.AtRiskKeg{
			Keg:         assets[i],
			LastMovedAt: last.OccurredAt,
			DaysOut:     int(now.Sub(last.OccurredAt).Hours() / 24),
		})
	}
	sort.Slice(atRisk, func(i, j int) bool {
		return atRisk[i].DaysOut > atRisk[j].DaysOut
	})
	return atRisk, nil
}

// CountByKeg counts transitions recorded for a keg
func (r *GormKegTransitionRepository) CountByKeg(ctx context.Context, kegID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&keg.KegTransition{}).
		Where("keg_id = ?", kegID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ keg.KegTransitionRepository = (*GormKegTransitionRepository)(nil)
