package keg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/keg"
	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScanCodeCache caches the scan-code to asset-id mapping so that hot scanner
// paths skip the database lookup. Scan codes are immutable once assigned, so
// entries never need invalidation.
type ScanCodeCache interface {
	Get(ctx context.Context, code string) (uuid.UUID, bool)
	Set(ctx context.Context, code string, id uuid.UUID)
}

// errBulkRollback forces the transaction to roll back while the collected
// per-keg results travel back to the caller out of band.
var errBulkRollback = errors.New("bulk transition rolled back")

// KegService orchestrates the keg lifecycle use cases. All mutations run
// inside a transaction scope; domain events are published after commit.
type KegService struct {
	scope      TransactionScope
	publisher  shared.EventPublisher
	logger     *zap.Logger
	scanCache  ScanCodeCache
	atRiskDays int

	// resetCycleOnReturn mirrors the keg.reset_cycle_on_return config
	// policy: when true, an unsold return trip zeroes the cycle count.
	resetCycleOnReturn bool
}

// NewKegService creates a new keg service. scanCache may be nil.
func NewKegService(
	scope TransactionScope,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	scanCache ScanCodeCache,
	atRiskDays int,
) *KegService {
	if atRiskDays <= 0 {
		atRiskDays = 30
	}
	return &KegService{
		scope:      scope,
		publisher:  publisher,
		logger:     logger,
		scanCache:  scanCache,
		atRiskDays: atRiskDays,
	}
}

// SetResetCycleOnReturn switches the cycle-count policy for unsold
// return trips (IN_TRANSIT -> FULL)
func (s *KegService) SetResetCycleOnReturn(v bool) {
	s.resetCycleOnReturn = v
}

// Register enrolls a keg in the asset register in its initial EMPTY state
func (s *KegService) Register(ctx context.Context, req RegisterKegRequest) (*KegResponse, error) {
	asset, err := keg.NewKegAsset(req.SerialNumber, keg.Size(req.SizeLiters))
	if err != nil {
		return nil, err
	}
	asset.RFIDTag = req.RFIDTag
	asset.CurrentLocation = req.Location

	var events []shared.DomainEvent
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		existing, err := repos.Assets().FindBySerialNumber(ctx, asset.SerialNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return shared.NewDomainError("ALREADY_EXISTS",
				fmt.Sprintf("Keg with serial number %q is already registered", asset.SerialNumber))
		}
		if err := repos.Assets().Create(ctx, asset); err != nil {
			return err
		}
		events = asset.GetDomainEvents()
		asset.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}

	if s.scanCache != nil {
		s.scanCache.Set(ctx, asset.ScanCode, asset.ID)
	}
	s.publishEvents(ctx, events)
	s.logger.Info("keg registered",
		zap.String("keg_id", asset.ID.String()),
		zap.String("serial_number", asset.SerialNumber),
		zap.Int("size_liters", int(asset.SizeLiters)),
	)

	resp := ToKegResponse(asset)
	return &resp, nil
}

// Transition moves one keg to a new lifecycle state and appends the
// transition row. The keg is addressed by ID, or by scan code when the ID
// is uuid.Nil.
func (s *KegService) Transition(ctx context.Context, kegID uuid.UUID, req TransitionRequest) (*KegResponse, error) {
	toState := keg.State(strings.ToUpper(strings.TrimSpace(req.ToState)))

	var (
		asset  *keg.KegAsset
		events []shared.DomainEvent
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		asset, err = s.resolveForUpdate(ctx, repos, kegID, req.ScanCode)
		if err != nil {
			return err
		}

		tr, err := asset.Transition(toState, keg.TransitionContext{
			Actor:              req.Actor,
			Location:           req.Location,
			HolderRef:          req.HolderRef,
			BatchRef:           req.BatchRef,
			Note:               req.Note,
			ResetCycleOnReturn: s.resetCycleOnReturn,
		})
		if err != nil {
			return err
		}
		if err := repos.Assets().Save(ctx, asset); err != nil {
			return err
		}
		if err := repos.Transitions().Create(ctx, tr); err != nil {
			return err
		}
		events = asset.GetDomainEvents()
		asset.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}

	s.publishEvents(ctx, events)
	s.logger.Info("keg transitioned",
		zap.String("keg_id", asset.ID.String()),
		zap.String("serial_number", asset.SerialNumber),
		zap.String("to_state", asset.CurrentState.String()),
		zap.Int("cycle_count", asset.CycleCount),
	)

	resp := ToKegResponse(asset)
	return &resp, nil
}

// BulkTransition moves a group of kegs to the same state in one atomic
// operation. Semantics are all-or-nothing: if any keg rejects the move the
// whole group rolls back, and the response carries a per-keg result list
// stamped with the shared bulk operation id.
func (s *KegService) BulkTransition(ctx context.Context, req BulkTransitionRequest) (*BulkTransitionResponse, error) {
	toState := keg.State(strings.ToUpper(strings.TrimSpace(req.ToState)))
	if !toState.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown keg state %q", req.ToState))
	}

	ids, err := s.collectIDs(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Bulk transition requires at least one keg")
	}

	bulkOpID := newBulkOpID()
	tctx := keg.TransitionContext{
		Actor:              req.Actor,
		Location:           req.Location,
		HolderRef:          req.HolderRef,
		BatchRef:           req.BatchRef,
		Note:               req.Note,
		BulkOpID:           bulkOpID,
		ResetCycleOnReturn: s.resetCycleOnReturn,
	}

	results := make([]BulkTransitionResult, 0, len(ids))
	var events []shared.DomainEvent
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		results = results[:0]
		events = nil

		assets, err := repos.Assets().FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		found := make(map[uuid.UUID]*keg.KegAsset, len(assets))
		for _, a := range assets {
			found[a.ID] = a
		}

		transitions := make([]*keg.KegTransition, 0, len(ids))
		failed := false
		for _, id := range ids {
			asset, ok := found[id]
			if !ok {
				failed = true
				results = append(results, BulkTransitionResult{
					KegID:     id,
					Success:   false,
					Error:     "keg not found",
					ErrorCode: "ASSET_NOT_FOUND",
				})
				continue
			}

			tr, err := asset.Transition(toState, tctx)
			if err != nil {
				failed = true
				result := BulkTransitionResult{
					KegID:        id,
					SerialNumber: asset.SerialNumber,
					Success:      false,
					Error:        err.Error(),
				}
				var domainErr *shared.DomainError
				if errors.As(err, &domainErr) {
					result.ErrorCode = domainErr.Code
				}
				results = append(results, result)
				continue
			}

			transitions = append(transitions, tr)
			results = append(results, BulkTransitionResult{
				KegID:        id,
				SerialNumber: asset.SerialNumber,
				Success:      true,
			})
		}
		if failed {
			return errBulkRollback
		}

		if err := repos.Assets().SaveAll(ctx, assets); err != nil {
			return err
		}
		if err := repos.Transitions().CreateBatch(ctx, transitions); err != nil {
			return err
		}
		for _, a := range assets {
			events = append(events, a.GetDomainEvents()...)
			a.ClearDomainEvents()
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errBulkRollback) {
			for i := range results {
				if results[i].Success {
					results[i].Success = false
					results[i].Error = "rolled back: another keg in the operation failed"
				}
			}
			s.logger.Warn("bulk transition rolled back",
				zap.String("bulk_op_id", bulkOpID),
				zap.String("to_state", toState.String()),
				zap.Int("keg_count", len(ids)),
			)
			return &BulkTransitionResponse{
				BulkOpID:  bulkOpID,
				ToState:   toState.String(),
				Committed: false,
				Results:   results,
			}, nil
		}
		return nil, s.mapStorageError(err)
	}

	events = append(events, keg.NewKegBulkTransitionedEvent(bulkOpID, toState, len(ids), req.Actor))
	s.publishEvents(ctx, events)
	s.logger.Info("bulk transition committed",
		zap.String("bulk_op_id", bulkOpID),
		zap.String("to_state", toState.String()),
		zap.Int("keg_count", len(ids)),
	)

	return &BulkTransitionResponse{
		BulkOpID:  bulkOpID,
		ToState:   toState.String(),
		Committed: true,
		Results:   results,
	}, nil
}

// Get returns one keg by ID
func (s *KegService) Get(ctx context.Context, kegID uuid.UUID) (*KegResponse, error) {
	var asset *keg.KegAsset
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		asset, err = repos.Assets().FindByID(ctx, kegID)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	if asset == nil {
		return nil, shared.NewDomainError("ASSET_NOT_FOUND", "Keg not found")
	}
	resp := ToKegResponse(asset)
	return &resp, nil
}

// GetByScanCode returns one keg by its scan code, consulting the cache first
func (s *KegService) GetByScanCode(ctx context.Context, code string) (*KegResponse, error) {
	if s.scanCache != nil {
		if id, ok := s.scanCache.Get(ctx, code); ok {
			return s.Get(ctx, id)
		}
	}

	var asset *keg.KegAsset
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		asset, err = repos.Assets().FindByScanCode(ctx, code)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	if asset == nil {
		return nil, shared.NewDomainError("ASSET_NOT_FOUND", fmt.Sprintf("No keg matches scan code %q", code))
	}

	if s.scanCache != nil {
		s.scanCache.Set(ctx, asset.ScanCode, asset.ID)
	}
	resp := ToKegResponse(asset)
	return &resp, nil
}

// List returns kegs matching the filter with a total count
func (s *KegService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[KegResponse], error) {
	var (
		kegs  []keg.KegAsset
		total int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		kegs, err = repos.Assets().List(ctx, filter)
		if err != nil {
			return err
		}
		total, err = repos.Assets().Count(ctx, filter)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	result := shared.NewPaginated(ToKegResponses(kegs), total, filter.Page, filter.PageSize)
	return &result, nil
}

// History returns a keg's transition log, newest first
func (s *KegService) History(ctx context.Context, kegID uuid.UUID, filter shared.Filter) ([]TransitionResponse, error) {
	var trs []keg.KegTransition
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		asset, err := repos.Assets().FindByID(ctx, kegID)
		if err != nil {
			return err
		}
		if asset == nil {
			return shared.NewDomainError("ASSET_NOT_FOUND", "Keg not found")
		}
		trs, err = repos.Transitions().FindByKeg(ctx, kegID, filter)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	return ToTransitionResponses(trs), nil
}

// BulkOperation returns every transition stamped with a bulk operation id
func (s *KegService) BulkOperation(ctx context.Context, bulkOpID string) ([]TransitionResponse, error) {
	var trs []keg.KegTransition
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		trs, err = repos.Transitions().FindByBulkOp(ctx, bulkOpID)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	return ToTransitionResponses(trs), nil
}

// AtRisk returns IN_CLIENT kegs whose latest transition is older than the
// given number of days. days <= 0 falls back to the configured default.
func (s *KegService) AtRisk(ctx context.Context, days int) ([]AtRiskKegResponse, error) {
	if days <= 0 {
		days = s.atRiskDays
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var atRisk []keg.AtRiskKeg
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		atRisk, err = repos.Transitions().FindAtRisk(ctx, cutoff)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}

	out := make([]AtRiskKegResponse, len(atRisk))
	for i, a := range atRisk {
		out[i] = AtRiskKegResponse{
			Keg:         ToKegResponse(&a.Keg),
			LastMovedAt: a.LastMovedAt,
			DaysOut:     a.DaysOut,
		}
	}
	return out, nil
}

// FleetSummary reports the fleet position per lifecycle state
func (s *KegService) FleetSummary(ctx context.Context) (*FleetSummaryResponse, error) {
	var counts map[keg.State]int64
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		counts, err = repos.Assets().CountByState(ctx)
		return err
	})
	if err != nil {
		return nil, s.mapStorageError(err)
	}

	summary := &FleetSummaryResponse{ByState: make(map[string]int64, len(counts))}
	for state, n := range counts {
		summary.ByState[state.String()] = n
		summary.Total += n
	}
	return summary, nil
}

// resolveForUpdate loads the addressed keg inside the current transaction.
// Scan codes resolve to an id first so the locked read always goes by id.
func (s *KegService) resolveForUpdate(ctx context.Context, repos Repositories, kegID uuid.UUID, scanCode string) (*keg.KegAsset, error) {
	if kegID == uuid.Nil {
		if scanCode == "" {
			return nil, shared.NewDomainError("INVALID_INPUT", "A keg id or scan code is required")
		}
		if s.scanCache != nil {
			if id, ok := s.scanCache.Get(ctx, scanCode); ok {
				kegID = id
			}
		}
		if kegID == uuid.Nil {
			asset, err := repos.Assets().FindByScanCode(ctx, scanCode)
			if err != nil {
				return nil, err
			}
			if asset == nil {
				return nil, shared.NewDomainError("ASSET_NOT_FOUND", fmt.Sprintf("No keg matches scan code %q", scanCode))
			}
			kegID = asset.ID
			if s.scanCache != nil {
				s.scanCache.Set(ctx, asset.ScanCode, asset.ID)
			}
		}
	}

	assets, err := repos.Assets().FindByIDs(ctx, []uuid.UUID{kegID})
	if err != nil {
		return nil, s.mapStorageError(err)
	}
	if len(assets) == 0 {
		return nil, shared.NewDomainError("ASSET_NOT_FOUND", "Keg not found")
	}
	return assets[0], nil
}

// collectIDs resolves the union of explicit ids and scan codes, deduplicated,
// preserving request order
func (s *KegService) collectIDs(ctx context.Context, req BulkTransitionRequest) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(req.KegIDs)+len(req.ScanCodes))
	ids := make([]uuid.UUID, 0, len(req.KegIDs)+len(req.ScanCodes))
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, id := range req.KegIDs {
		add(id)
	}

	if len(req.ScanCodes) > 0 {
		err := s.scope.Execute(ctx, func(repos Repositories) error {
			for _, code := range req.ScanCodes {
				asset, err := repos.Assets().FindByScanCode(ctx, code)
				if err != nil {
					return err
				}
				if asset == nil {
					return shared.NewDomainError("ASSET_NOT_FOUND", fmt.Sprintf("No keg matches scan code %q", code))
				}
				add(asset.ID)
			}
			return nil
		})
		if err != nil {
			return nil, s.mapStorageError(err)
		}
	}
	return ids, nil
}

func newBulkOpID() string {
	return "BLK-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}

// mapStorageError converts lock wait failures into LOCK_TIMEOUT so callers
// can retry. Domain errors pass through unchanged.
func (s *KegService) mapStorageError(err error) error {
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
func (s *KegService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
}
