package persistence

import (
	"context"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/Ckph07/desert-brew-os/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements StockMovementRepository using GORM.
// Append-only: rows are inserted, never updated or deleted.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends one movement
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *stock.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// CreateBatch appends multiple movements
func (r *GormStockMovementRepository) CreateBatch(ctx context.Context, movements []*stock.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(movements).Error
}

// FindByBatch finds movements for a batch, oldest first
func (r *GormStockMovementRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("occurred_at ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// FindBySKU finds movements for a SKU matching the filter
func (r *GormStockMovementRepository) FindBySKU(ctx context.Context, sku string, filter shared.Filter) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("occurred_at DESC").
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// List finds movements matching the filter, newest first
func (r *GormStockMovementRepository) List(ctx context.Context, filter stock.MovementFilter) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	err := r.applyConditions(r.db.WithContext(ctx).Model(&stock.StockMovement{}), filter).
		Order("occurred_at DESC").
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// Count counts movements matching the filter
func (r *GormStockMovementRepository) Count(ctx context.Context, filter stock.MovementFilter) (int64, error) {
	var count int64
	err := r.applyConditions(r.db.WithContext(ctx).Model(&stock.StockMovement{}), filter).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SumQuantityBySKU sums deducted quantity for a SKU and movement type
func (r *GormStockMovementRepository) SumQuantityBySKU(ctx context.Context, sku string, movementType stock.MovementType) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&stock.StockMovement{}).
		Select("COALESCE(SUM(quantity), 0) AS total").
		Where("sku = ? AND movement_type = ?", sku, movementType).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

func (r *GormStockMovementRepository) applyConditions(query *gorm.DB, filter stock.MovementFilter) *gorm.DB {
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.MovementType != nil {
		query = query.Where("movement_type = ?", *filter.MovementType)
	}
	if filter.ConsumerRef != "" {
		query = query.Where("consumer_ref = ?", filter.ConsumerRef)
	}
	if filter.Since != nil {
		query = query.Where("occurred_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("occurred_at < ?", *filter.Until)
	}
	return query
}

var _ stock.StockMovementRepository = (*GormStockMovementRepository)(nil)
