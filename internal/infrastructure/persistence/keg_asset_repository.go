package persistence

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/Ckph07/desert-brew-os/internal/domain/keg"
	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKegAssetRepository implements KegAssetRepository using GORM.
// When forUpdate is set (inside a transaction scope) multi-keg reads lock
// their rows FOR UPDATE in sorted-id order so concurrent bulk operations
// cannot deadlock each other.
type GormKegAssetRepository struct {
	db        *gorm.DB
	forUpdate bool
}

// NewGormKegAssetRepository creates a repository for reads outside a transaction
func NewGormKegAssetRepository(db *gorm.DB) *GormKegAssetRepository {
	return &GormKegAssetRepository{db: db}
}

// NewLockingKegAssetRepository creates a repository whose multi-keg reads
// take row locks. Only valid inside a transaction.
func NewLockingKegAssetRepository(tx *gorm.DB) *GormKegAssetRepository {
	return &GormKegAssetRepository{db: tx, forUpdate: true}
}

// FindByID finds a keg by its ID
func (r *GormKegAssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*keg.KegAsset, error) {
	var asset keg.KegAsset
	if err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

// FindByIDs finds multiple kegs, locked FOR UPDATE in sorted-id order inside
// a transaction. Missing ids are simply absent from the result.
func (r *GormKegAssetRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*keg.KegAsset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	query := r.db.WithContext(ctx).
		Where("id IN ?", sorted).
		Order("id ASC")
	if r.forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var assets []*keg.KegAsset
	if err := query.Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// FindBySerialNumber finds a keg by its serial number
func (r *GormKegAssetRepository) FindBySerialNumber(ctx context.Context, serial string) (*keg.KegAsset, error) {
	var asset keg.KegAsset
	if err := r.db.WithContext(ctx).First(&asset, "serial_number = ?", serial).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

// FindByScanCode finds a keg by scan code or RFID tag
func (r *GormKegAssetRepository) FindByScanCode(ctx context.Context, code string) (*keg.KegAsset, error) {
	var asset keg.KegAsset
	err := r.db.WithContext(ctx).
		Where("scan_code = ? OR rfid_tag = ?", code, code).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

// FindByState finds kegs currently in a state
func (r *GormKegAssetRepository) FindByState(ctx context.Context, state keg.State, filter shared.Filter) ([]keg.KegAsset, error) {
	var assets []keg.KegAsset
	err := r.db.WithContext(ctx).
		Where("current_state = ?", state).
		Order("serial_number ASC").
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// Create persists a newly registered keg
func (r *GormKegAssetRepository) Create(ctx context.Context, k *keg.KegAsset) error {
	return r.db.WithContext(ctx).Create(k).Error
}

// Save updates an existing keg
func (r *GormKegAssetRepository) Save(ctx context.Context, k *keg.KegAsset) error {
	return r.db.WithContext(ctx).Save(k).Error
}

// SaveAll updates multiple kegs
func (r *GormKegAssetRepository) SaveAll(ctx context.Context, kegs []*keg.KegAsset) error {
	for _, k := range kegs {
		if err := r.Save(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// List finds kegs matching the filter
func (r *GormKegAssetRepository) List(ctx context.Context, filter shared.Filter) ([]keg.KegAsset, error) {
	var assets []keg.KegAsset
	query := r.applyConditions(r.db.WithContext(ctx).Model(&keg.KegAsset{}), filter)

	field := ValidateSortField(filter.OrderBy, KegAssetSortFields, "serial_number")
	query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Offset(filter.Offset()).Limit(filter.Limit()).Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// Count counts kegs matching the filter
func (r *GormKegAssetRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&keg.KegAsset{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByState counts kegs per lifecycle state
func (r *GormKegAssetRepository) CountByState(ctx context.Context) (map[keg.State]int64, error) {
	var rows []struct {
		CurrentState keg.State
		Total        int64
	}
	err := r.db.WithContext(ctx).
		Model(&keg.KegAsset{}).
		Select("current_state, COUNT(*) AS total").
		Group("current_state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[keg.State]int64, len(rows))
	for _, row := range rows {
		counts[row.CurrentState] = row.Total
	}
	return counts, nil
}

func (r *GormKegAssetRepository) applyConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "state":
			query = query.Where("current_state = ?", value)
		case "holder":
			query = query.Where("current_holder = ?", value)
		case "location":
			query = query.Where("current_location = ?", value)
		case "batch_ref":
			query = query.Where("batch_ref = ?", value)
		case "size_liters":
			query = query.Where("size_liters = ?", value)
		case "active":
			query = query.Where("is_active = ?", value)
		}
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(serial_number) LIKE ? OR LOWER(scan_code) LIKE ?", pattern, pattern)
	}
	return query
}

var _ keg.KegAssetRepository = (*GormKegAssetRepository)(nil)
