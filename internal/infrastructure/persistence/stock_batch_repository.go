package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/Ckph07/desert-brew-os/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockBatchRepository implements StockBatchRepository using GORM.
// When forUpdate is set (inside a transaction scope) allocatable reads lock
// their rows FOR UPDATE in FIFO order, which doubles as the global lock
// acquisition order.
type GormStockBatchRepository struct {
	db        *gorm.DB
	forUpdate bool
}

// NewGormStockBatchRepository creates a repository for reads outside a transaction
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// NewLockingStockBatchRepository creates a repository whose allocatable reads
// take row locks. Only valid inside a transaction.
func NewLockingStockBatchRepository(tx *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: tx, forUpdate: true}
}

// FindByID finds a batch by its ID
func (r *GormStockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockBatch, error) {
	var batch stock.StockBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// FindBySKU finds all batches for a SKU, newest receipt first
func (r *GormStockBatchRepository) FindBySKU(ctx context.Context, sku string, filter shared.Filter) ([]stock.StockBatch, error) {
	var batches []stock.StockBatch
	query := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("received_at DESC").
		Offset(filter.Offset()).Limit(filter.Limit())
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindAllocatableBySKU finds batches the allocator may draw from, in FIFO
// order. Inside a transaction the rows are locked FOR UPDATE so concurrent
// allocations against the same SKU serialize.
func (r *GormStockBatchRepository) FindAllocatableBySKU(ctx context.Context, sku string) ([]*stock.StockBatch, error) {
	query := r.db.WithContext(ctx).
		Where("sku = ? AND is_available = ? AND quantity_remaining > 0", sku, true).
		Where("expiration_date IS NULL OR expiration_date > ?", time.Now()).
		Order("received_at ASC, id ASC")
	if r.forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var batches []*stock.StockBatch
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// SumRemainingBySKU sums the remaining quantity across a SKU's batches
func (r *GormStockBatchRepository) SumRemainingBySKU(ctx context.Context, sku string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&stock.StockBatch{}).
		Select("COALESCE(SUM(quantity_remaining), 0) AS total").
		Where("sku = ?", sku).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// Summarize aggregates the stock position per SKU
func (r *GormStockBatchRepository) Summarize(ctx context.Context) ([]stock.SKUSummary, error) {
	var summaries []stock.SKUSummary
	err := r.db.WithContext(ctx).
		Model(&stock.StockBatch{}).
		Select(`sku,
			MAX(category) AS category,
			MAX(unit_measure) AS unit_measure,
			COUNT(*) AS batch_count,
			COALESCE(SUM(quantity_received), 0) AS total_received,
			COALESCE(SUM(quantity_remaining), 0) AS total_remaining,
			COALESCE(SUM(quantity_remaining * unit_cost), 0) AS total_value,
			MIN(received_at) AS oldest_receipt`).
		Group("sku").
		Order("sku ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// Create persists a new batch
func (r *GormStockBatchRepository) Create(ctx context.Context, batch *stock.StockBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// Save updates an existing batch
func (r *GormStockBatchRepository) Save(ctx context.Context, batch *stock.StockBatch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// SaveAll updates multiple batches
func (r *GormStockBatchRepository) SaveAll(ctx context.Context, batches []*stock.StockBatch) error {
	for _, b := range batches {
		if err := r.Save(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// List finds batches matching the filter
func (r *GormStockBatchRepository) List(ctx context.Context, filter shared.Filter) ([]stock.StockBatch, error) {
	var batches []stock.StockBatch
	query := r.applyConditions(r.db.WithContext(ctx).Model(&stock.StockBatch{}), filter)

	field := ValidateSortField(filter.OrderBy, StockBatchSortFields, "received_at")
	query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Offset(filter.Offset()).Limit(filter.Limit()).Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Count counts batches matching the filter
func (r *GormStockBatchRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&stock.StockBatch{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormStockBatchRepository) applyConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "sku":
			query = query.Where("sku = ?", value)
		case "category":
			query = query.Where("category = ?", value)
		case "available":
			query = query.Where("is_available = ?", value)
		case "exhausted":
			if value == true {
				query = query.Where("quantity_remaining <= 0")
			} else {
				query = query.Where("quantity_remaining > 0")
			}
		case "location":
			query = query.Where("location = ?", value)
		case "supplier_ref":
			query = query.Where("supplier_ref = ?", value)
		}
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(sku) LIKE ? OR LOWER(batch_number) LIKE ?", pattern, pattern)
	}
	return query
}

var _ stock.StockBatchRepository = (*GormStockBatchRepository)(nil)
