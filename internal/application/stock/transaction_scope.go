package stock

import (
	"context"

	"github.com/Ckph07/desert-brew-os/internal/domain/stock"
)

// TransactionScope provides transactional access to the stock repositories.
// Everything executed within one scope commits or rolls back atomically;
// batch rows read for mutation are locked FOR UPDATE for the duration.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to the stock repositories within a transaction
type Repositories interface {
	// Batches returns the batch repository scoped to the current transaction
	Batches() stock.StockBatchRepository
	// Movements returns the movement repository scoped to the current transaction
	Movements() stock.StockMovementRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Used in tests with in-memory repositories.
type NoOpTransactionScope struct {
	batchRepo    stock.StockBatchRepository
	movementRepo stock.StockMovementRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(batchRepo stock.StockBatchRepository, movementRepo stock.StockMovementRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{batchRepo: batchRepo, movementRepo: movementRepo}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s)
}

// Batches returns the batch repository
func (s *NoOpTransactionScope) Batches() stock.StockBatchRepository {
	return s.batchRepo
}

// Movements returns the movement repository
func (s *NoOpTransactionScope) Movements() stock.StockMovementRepository {
	return s.movementRepo
}

var (
	_ TransactionScope = (*NoOpTransactionScope)(nil)
	_ Repositories     = (*NoOpTransactionScope)(nil)
)
