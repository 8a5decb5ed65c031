package persistence

import (
	"context"
	"time"

	appkeg "github.com/Ckph07/desert-brew-os/internal/application/keg"
	appstock "github.com/Ckph07/desert-brew-os/internal/application/stock"
	domainkeg "github.com/Ckph07/desert-brew-os/internal/domain/keg"
	domainstock "github.com/Ckph07/desert-brew-os/internal/domain/stock"
	"gorm.io/gorm"
)

// lockContext bounds how long a transaction may wait on row locks. A zero
// timeout leaves the caller's context untouched.
func lockContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// GormStockScope implements the stock TransactionScope using GORM
// transactions. Repositories handed to the callback take row locks on their
// mutating reads.
type GormStockScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormStockScope creates a new GormStockScope
func NewGormStockScope(db *gorm.DB) *GormStockScope {
	return &GormStockScope{db: db}
}

// WithLockTimeout bounds lock waits inside Execute with a context deadline
func (s *GormStockScope) WithLockTimeout(d time.Duration) *GormStockScope {
	s.lockTimeout = d
	return s
}

// Execute runs the given function within a database transaction
func (s *GormStockScope) Execute(ctx context.Context, fn func(repos appstock.Repositories) error) error {
	ctx, cancel := lockContext(ctx, s.lockTimeout)
	defer cancel()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&stockRepositories{tx: tx})
	})
}

type stockRepositories struct {
	tx *gorm.DB
}

func (r *stockRepositories) Batches() domainstock.StockBatchRepository {
	return NewLockingStockBatchRepository(r.tx)
}

func (r *stockRepositories) Movements() domainstock.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// GormKegScope implements the keg TransactionScope using GORM transactions
type GormKegScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormKegScope creates a new GormKegScope
func NewGormKegScope(db *gorm.DB) *GormKegScope {
	return &GormKegScope{db: db}
}

// WithLockTimeout bounds lock waits inside Execute with a context deadline
func (s *GormKegScope) WithLockTimeout(d time.Duration) *GormKegScope {
	s.lockTimeout = d
	return s
}

// Execute runs the given function within a database transaction
func (s *GormKegScope) Execute(ctx context.Context, fn func(repos appkeg.Repositories) error) error {
	ctx, cancel := lockContext(ctx, s.lockTimeout)
	defer cancel()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&kegRepositories{tx: tx})
	})
}

type kegRepositories struct {
	tx *gorm.DB
}

func (r *kegRepositories) Assets() domainkeg.KegAssetRepository {
	return NewLockingKegAssetRepository(r.tx)
}

func (r *kegRepositories) Transitions() domainkeg.KegTransitionRepository {
	return NewGormKegTransitionRepository(r.tx)
}

var (
	_ appstock.TransactionScope = (*GormStockScope)(nil)
	_ appstock.Repositories     = (*stockRepositories)(nil)
	_ appkeg.TransactionScope   = (*GormKegScope)(nil)
	_ appkeg.Repositories       = (*kegRepositories)(nil)
)
