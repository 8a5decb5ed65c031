package keg

import (
	"context"

	"github.com/Ckph07/desert-brew-os/internal/domain/keg"
)

// TransactionScope provides transactional access to the keg repositories.
// Bulk transitions lock their asset rows FOR UPDATE for the scope's duration
// so the whole group commits or rolls back as one.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to the keg repositories within a transaction
type Repositories interface {
	// Assets returns the asset repository scoped to the current transaction
	Assets() keg.KegAssetRepository
	// Transitions returns the transition repository scoped to the current transaction
	Transitions() keg.KegTransitionRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Used in tests with in-memory repositories.
type NoOpTransactionScope struct {
	assetRepo      keg.KegAssetRepository
	transitionRepo keg.KegTransitionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(assetRepo keg.KegAssetRepository, transitionRepo keg.KegTransitionRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{assetRepo: assetRepo, transitionRepo: transitionRepo}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s)
}

// Assets returns the asset repository
func (s *NoOpTransactionScope) Assets() keg.KegAssetRepository {
	return s.assetRepo
}

// Transitions returns the transition repository
func (s *NoOpTransactionScope) Transitions() keg.KegTransitionRepository {
	return s.transitionRepo
}

var (
	_ TransactionScope = (*NoOpTransactionScope)(nil)
	_ Repositories     = (*NoOpTransactionScope)(nil)
)
