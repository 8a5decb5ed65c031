package stock

import (
	"context"
	"errors"
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/Ckph07/desert-brew-os/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockService orchestrates the stock ledger use cases: receipts, FIFO
// allocations and quality holds. All mutations run inside a transaction
// scope; domain events are published only after the transaction commits.
type StockService struct {
	scope             TransactionScope
	allocator         *stock.FIFOAllocator
	publisher         shared.EventPublisher
	logger            *zap.Logger
	lowStockThreshold decimal.Decimal
}

// NewStockService creates a new stock service
func NewStockService(
	scope TransactionScope,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	lowStockThreshold decimal.Decimal,
) *StockService {
	return &StockService{
		scope:             scope,
		allocator:         stock.NewFIFOAllocator(),
		publisher:         publisher,
		logger:            logger,
		lowStockThreshold: lowStockThreshold,
	}
}

// Receive books a new batch of raw material into stock and writes the
// matching RECEIPT movement row.
func (s *StockService) Receive(ctx context.Context, req ReceiveStockRequest) (*BatchResponse, error) {
	batch, err := stock.NewStockBatch(
		req.SKU,
		stock.Category(req.Category),
		req.Quantity,
		req.UnitMeasure,
		req.UnitCost,
		req.SupplierRef,
	)
	if err != nil {
		return nil, err
	}
	batch.BatchNumber = req.BatchNumber
	batch.PurchaseOrder = req.PurchaseOrder
	batch.Location = req.Location
	batch.ExpirationDate = req.ExpirationDate

	var events []shared.DomainEvent
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		if err := repos.Batches().Create(ctx, batch); err != nil {
			return err
		}
		movement := stock.NewStockMovement(batch, stock.MovementTypeReceipt, batch.QuantityReceived, "", req.Actor)
		if err := repos.Movements().Create(ctx, movement); err != nil {
			return err
		}
		events = batch.GetDomainEvents()
		batch.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}

	s.publishEvents(ctx, events)
	s.logger.Info("stock batch received",
		zap.String("sku", batch.SKU),
		zap.String("batch_id", batch.ID.String()),
		zap.String("quantity", batch.QuantityReceived.String()),
	)

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// Allocate deducts the requested quantity from the SKU's batches oldest-first.
// The allocation is all-or-nothing: a shortfall leaves every batch untouched
// and returns INSUFFICIENT_STOCK with the available total.
//
// Inside the transaction the eligible batches are read FOR UPDATE in FIFO
// order, so concurrent allocations against the same SKU serialize instead of
// double-spending a batch.
func (s *StockService) Allocate(ctx context.Context, req AllocateStockRequest) (*AllocationResponse, error) {
	if req.ConsumerRef == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Consumer reference is required")
	}

	var (
		plan      *stock.AllocationPlan
		movements []*stock.StockMovement
		remaining decimal.Decimal
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		batches, err := repos.Batches().FindAllocatableBySKU(ctx, req.SKU)
		if err != nil {
			return err
		}

		plan, err = s.allocator.Allocate(req.SKU, req.Quantity, batches)
		if err != nil {
			return err
		}

		touched := make([]*stock.StockBatch, 0, len(plan.Lines))
		index := make(map[uuid.UUID]*stock.StockBatch, len(batches))
		for _, b := range batches {
			index[b.ID] = b
		}
		for _, line := range plan.Lines {
			touched = append(touched, index[line.BatchID])
		}
		if err := repos.Batches().SaveAll(ctx, touched); err != nil {
			return err
		}

		movements, err = plan.Movements(batches, req.ConsumerRef, req.Actor)
		if err != nil {
			return err
		}
		if err := repos.Movements().CreateBatch(ctx, movements); err != nil {
			return err
		}

		remaining, err = repos.Batches().SumRemainingBySKU(ctx, req.SKU)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}

	events := []shared.DomainEvent{stock.NewStockAllocatedEvent(plan, req.ConsumerRef)}
	if s.lowStockThreshold.IsPositive() && remaining.LessThan(s.lowStockThreshold) {
		events = append(events, stock.NewStockBelowThresholdEvent(req.SKU, remaining, s.lowStockThreshold))
	}
	s.publishEvents(ctx, events)

	s.logger.Info("stock allocated",
		zap.String("sku", req.SKU),
		zap.String("quantity", plan.TotalQuantity.String()),
		zap.String("weighted_unit_cost", plan.WeightedUnitCost.String()),
		zap.String("consumer_ref", req.ConsumerRef),
		zap.Int("batches_touched", len(plan.Lines)),
	)

	out := make([]stock.StockMovement, len(movements))
	for i, m := range movements {
		out[i] = *m
	}
	return &AllocationResponse{
		SKU:               plan.SKU,
		AllocatedQuantity: plan.TotalQuantity,
		WeightedUnitCost:  plan.WeightedUnitCost,
		TotalCost:         plan.TotalCost,
		Movements:         ToMovementResponses(out),
	}, nil
}

// Hold pulls a batch from rotation for quality review
func (s *StockService) Hold(ctx context.Context, batchID uuid.UUID, actor, reason string) (*BatchResponse, error) {
	return s.setHold(ctx, batchID, actor, reason, true)
}

// ReleaseHold returns a held batch to rotation
func (s *StockService) ReleaseHold(ctx context.Context, batchID uuid.UUID, actor, reason string) (*BatchResponse, error) {
	return s.setHold(ctx, batchID, actor, reason, false)
}

func (s *StockService) setHold(ctx context.Context, batchID uuid.UUID, actor, reason string, hold bool) (*BatchResponse, error) {
	var batch *stock.StockBatch
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Stock batch not found")
		}

		movementType := stock.MovementTypeQualityHold
		if hold {
			batch.Hold()
		} else {
			batch.ReleaseHold()
			movementType = stock.MovementTypeQualityRelease
		}
		if err := repos.Batches().Save(ctx, batch); err != nil {
			return err
		}

		movement := stock.NewStockMovement(batch, movementType, decimal.Zero, reason, actor)
		return repos.Movements().Create(ctx, movement)
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}

	s.logger.Info("stock batch hold changed",
		zap.String("batch_id", batchID.String()),
		zap.Bool("on_hold", hold),
		zap.String("actor", actor),
	)

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// GetBatch returns one batch by ID
func (s *StockService) GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchResponse, error) {
	var batch *stock.StockBatch
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	if batch == nil {
		return nil, shared.NewDomainError("BATCH_NOT_FOUND", "Stock batch not found")
	}
	resp := ToBatchResponse(batch)
	return &resp, nil
}

// GetBySKU returns a SKU's batches, newest receipt first
func (s *StockService) GetBySKU(ctx context.Context, sku string, filter shared.Filter) ([]BatchResponse, error) {
	var batches []stock.StockBatch
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		batches, err = repos.Batches().FindBySKU(ctx, sku, filter)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	return ToBatchResponses(batches), nil
}

// ListBatches returns batches matching the filter with a total count
func (s *StockService) ListBatches(ctx context.Context, filter shared.Filter) (*shared.Paginated[BatchResponse], error) {
	var (
		batches []stock.StockBatch
		total   int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		batches, err = repos.Batches().List(ctx, filter)
		if err != nil {
			return err
		}
		total, err = repos.Batches().Count(ctx, filter)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	result := shared.NewPaginated(ToBatchResponses(batches), total, filter.Page, filter.PageSize)
	return &result, nil
}

// ListMovements returns the movement log matching the filter
func (s *StockService) ListMovements(ctx context.Context, filter stock.MovementFilter) (*shared.Paginated[MovementResponse], error) {
	var (
		movements []stock.StockMovement
		total     int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		movements, err = repos.Movements().List(ctx, filter)
		if err != nil {
			return err
		}
		total, err = repos.Movements().Count(ctx, filter)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	result := shared.NewPaginated(ToMovementResponses(movements), total, filter.Page, filter.PageSize)
	return &result, nil
}

// Summary returns the per-SKU stock position
func (s *StockService) Summary(ctx context.Context) ([]stock.SKUSummary, error) {
	var summaries []stock.SKUSummary
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		summaries, err = repos.Batches().Summarize(ctx)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	return summaries, nil
}

// mapStorageError converts lock wait failures into LOCK_TIMEOUT so callers
// can retry. Domain errors pass through unchanged.
func (s *StockService) mapStorageError(err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.ErrLockTimeout
	}
	return err
}

// publishEvents publishes post-commit events. Failures are logged, never
// propagated: the transaction already committed.
func (s *StockService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
}
