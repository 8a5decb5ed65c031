package keg

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/keg"
	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAssetRepo struct {
	assets map[uuid.UUID]*keg.KegAsset
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{assets: make(map[uuid.UUID]*keg.KegAsset)}
}

func (r *fakeAssetRepo) FindByID(_ context.Context, id uuid.UUID) (*keg.KegAsset, error) {
	return r.assets[id], nil
}

func (r *fakeAssetRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*keg.KegAsset, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	var out []*keg.KegAsset
	for _, id := range sorted {
		if a, ok := r.assets[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAssetRepo) FindBySerialNumber(_ context.Context, serial string) (*keg.KegAsset, error) {
	for _, a := range r.assets {
		if a.SerialNumber == serial {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAssetRepo) FindByScanCode(_ context.Context, code string) (*keg.KegAsset, error) {
	for _, a := range r.assets {
		if a.ScanCode == code {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAssetRepo) FindByState(_ context.Context, state keg.State, _ shared.Filter) ([]keg.KegAsset, error) {
	var out []keg.KegAsset
	for _, a := range r.assets {
		if a.CurrentState == state {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAssetRepo) Create(_ context.Context, k *keg.KegAsset) error {
	r.assets[k.ID] = k
	return nil
}

func (r *fakeAssetRepo) Save(_ context.Context, k *keg.KegAsset) error {
	r.assets[k.ID] = k
	return nil
}

func (r *fakeAssetRepo) SaveAll(_ context.Context, kegs []*keg.KegAsset) error {
	for _, k := range kegs {
		r.assets[k.ID] = k
	}
	return nil
}

func (r *fakeAssetRepo) List(_ context.Context, _ shared.Filter) ([]keg.KegAsset, error) {
	var out []keg.KegAsset
	for _, a := range r.assets {
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeAssetRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.assets)), nil
}

func (r *fakeAssetRepo) CountByState(_ context.Context) (map[keg.State]int64, error) {
	out := make(map[keg.State]int64)
	for _, a := range r.assets {
		out[a.CurrentState]++
	}
	return out, nil
}

type fakeTransitionRepo struct {
	transitions []*keg.KegTransition
}

func (r *fakeTransitionRepo) Create(_ context.Context, tr *keg.KegTransition) error {
	r.transitions = append(r.transitions, tr)
	return nil
}

func (r *fakeTransitionRepo) CreateBatch(_ context.Context, trs []*keg.KegTransition) error {
	r.transitions = append(r.transitions, trs...)
	return nil
}

func (r *fakeTransitionRepo) FindByKeg(_ context.Context, kegID uuid.UUID, _ shared.Filter) ([]keg.KegTransition, error) {
	var out []keg.KegTransition
	for i := len(r.transitions) - 1; i >= 0; i-- {
		if r.transitions[i].KegID == kegID {
			out = append(out, *r.transitions[i])
		}
	}
	return out, nil
}

func (r *fakeTransitionRepo) FindLatestByKeg(_ context.Context, kegID uuid.UUID) (*keg.KegTransition, error) {
	for i := len(r.transitions) - 1; i >= 0; i-- {
		if r.transitions[i].KegID == kegID {
			return r.transitions[i], nil
		}
	}
	return nil, nil
}

func (r *fakeTransitionRepo) FindByBulkOp(_ context.Context, bulkOpID string) ([]keg.KegTransition, error) {
	var out []keg.KegTransition
	for _, tr := range r.transitions {
		if tr.BulkOpID == bulkOpID {
			out = append(out, *tr)
		}
	}
	return out, nil
}

func (r *fakeTransitionRepo) FindAtRisk(_ context.Context, cutoff time.Time) ([]keg.AtRiskKeg, error) {
	return nil, nil
}

func (r *fakeTransitionRepo) CountByKeg(_ context.Context, kegID uuid.UUID) (int64, error) {
	var n int64
	for _, tr := range r.transitions {
		if tr.KegID == kegID {
			n++
		}
	}
	return n, nil
}

type fakePublisher struct {
	events []shared.DomainEvent
}

func (p *fakePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

type kegFixture struct {
	service     *KegService
	assets      *fakeAssetRepo
	transitions *fakeTransitionRepo
	publisher   *fakePublisher
}

func newKegFixture() *kegFixture {
	assets := newFakeAssetRepo()
	transitions := &fakeTransitionRepo{}
	publisher := &fakePublisher{}
	scope := NewNoOpTransactionScope(assets, transitions)
	return &kegFixture{
		service:     NewKegService(scope, publisher, zap.NewNop(), nil, 30),
		assets:      assets,
		transitions: transitions,
		publisher:   publisher,
	}
}

func (f *kegFixture) seedKeg(t *testing.T, serial string, states ...keg.State) *keg.KegAsset {
	t.Helper()
	asset, err := keg.NewKegAsset(serial, keg.SizeFifty)
	require.NoError(t, err)
	asset.ClearDomainEvents()
	for _, s := range states {
		_, err := asset.Transition(s, keg.TransitionContext{Actor: "test"})
		require.NoError(t, err)
	}
	asset.ClearDomainEvents()
	require.NoError(t, f.assets.Create(context.Background(), asset))
	return asset
}

func TestKegService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("registers in empty state", func(t *testing.T) {
		f := newKegFixture()

		resp, err := f.service.Register(ctx, RegisterKegRequest{
			SerialNumber: "KEG-2026-0001",
			SizeLiters:   50,
			Location:     "yard",
		})
		require.NoError(t, err)
		assert.Equal(t, "EMPTY", resp.CurrentState)
		assert.Equal(t, 0, resp.CycleCount)
		assert.True(t, resp.IsActive)
		assert.Len(t, resp.ScanCode, 16)
		assert.ElementsMatch(t, []string{"DIRTY", "RETIRED"}, resp.ValidNextStates)
		require.Len(t, f.publisher.events, 1)
	})

	t.Run("rejects duplicate serial", func(t *testing.T) {
		f := newKegFixture()
		f.seedKeg(t, "KEG-2026-0002")

		_, err := f.service.Register(ctx, RegisterKegRequest{
			SerialNumber: "KEG-2026-0002",
			SizeLiters:   30,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("rejects odd size", func(t *testing.T) {
		f := newKegFixture()

		_, err := f.service.Register(ctx, RegisterKegRequest{
			SerialNumber: "KEG-2026-0003",
			SizeLiters:   42,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})
}

func TestKegService_Transition(t *testing.T) {
	ctx := context.Background()

	t.Run("by id records transition row", func(t *testing.T) {
		f := newKegFixture()
		asset := f.seedKeg(t, "KEG-2026-0010")

		resp, err := f.service.Transition(ctx, asset.ID, TransitionRequest{
			ToState:  "DIRTY",
			Actor:    "cellar-crew",
			Location: "wash-line",
		})
		require.NoError(t, err)
		assert.Equal(t, "DIRTY", resp.CurrentState)

		require.Len(t, f.transitions.transitions, 1)
		row := f.transitions.transitions[0]
		assert.Equal(t, keg.StateEmpty, row.FromState)
		assert.Equal(t, keg.StateDirty, row.ToState)
		assert.Equal(t, "cellar-crew", row.Actor)
		require.Len(t, f.publisher.events, 1)
	})

	t.Run("by scan code", func(t *testing.T) {
		f := newKegFixture()
		asset := f.seedKeg(t, "KEG-2026-0011")

		resp, err := f.service.Transition(ctx, uuid.Nil, TransitionRequest{
			ScanCode: asset.ScanCode,
			ToState:  "dirty",
		})
		require.NoError(t, err)
		assert.Equal(t, "DIRTY", resp.CurrentState)
	})

	t.Run("invalid move leaves no trace", func(t *testing.T) {
		f := newKegFixture()
		asset := f.seedKeg(t, "KEG-2026-0012")

		_, err := f.service.Transition(ctx, asset.ID, TransitionRequest{ToState: "TAPPED"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)
		assert.Equal(t, keg.StateEmpty, asset.CurrentState)
		assert.Empty(t, f.transitions.transitions)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("unknown keg", func(t *testing.T) {
		f := newKegFixture()

		_, err := f.service.Transition(ctx, uuid.New(), TransitionRequest{ToState: "DIRTY"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ASSET_NOT_FOUND", domainErr.Code)
	})

	t.Run("requires id or scan code", func(t *testing.T) {
		f := newKegFixture()

		_, err := f.service.Transition(ctx, uuid.Nil, TransitionRequest{ToState: "DIRTY"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})
}

func TestKegService_BulkTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when every keg accepts", func(t *testing.T) {
		f := newKegFixture()
		a := f.seedKeg(t, "KEG-2026-0020")
		b := f.seedKeg(t, "KEG-2026-0021")

		resp, err := f.service.BulkTransition(ctx, BulkTransitionRequest{
			KegIDs:  []uuid.UUID{a.ID, b.ID},
			ToState: "DIRTY",
			Actor:   "cellar-crew",
		})
		require.NoError(t, err)
		assert.True(t, resp.Committed)
		assert.NotEmpty(t, resp.BulkOpID)
		require.Len(t, resp.Results, 2)
		for _, r := range resp.Results {
			assert.True(t, r.Success)
		}

		require.Len(t, f.transitions.transitions, 2)
		for _, tr := range f.transitions.transitions {
			assert.Equal(t, resp.BulkOpID, tr.BulkOpID)
		}
		require.Len(t, f.publisher.events, 3)
		summary, ok := f.publisher.events[2].(*keg.KegBulkTransitionedEvent)
		require.True(t, ok)
		assert.Equal(t, resp.BulkOpID, summary.BulkOpID)
		assert.Equal(t, 2, summary.KegCount)
	})

	t.Run("one rejection rolls back the group", func(t *testing.T) {
		f := newKegFixture()
		good := f.seedKeg(t, "KEG-2026-0022")
		bad := f.seedKeg(t, "KEG-2026-0023", keg.StateDirty)

		resp, err := f.service.BulkTransition(ctx, BulkTransitionRequest{
			KegIDs:  []uuid.UUID{good.ID, bad.ID},
			ToState: "DIRTY",
		})
		require.NoError(t, err)
		assert.False(t, resp.Committed)
		require.Len(t, resp.Results, 2)

		byID := make(map[uuid.UUID]BulkTransitionResult)
		for _, r := range resp.Results {
			byID[r.KegID] = r
		}
		assert.False(t, byID[bad.ID].Success)
		assert.Equal(t, "INVALID_TRANSITION", byID[bad.ID].ErrorCode)
		assert.False(t, byID[good.ID].Success)
		assert.Contains(t, byID[good.ID].Error, "rolled back")

		assert.Empty(t, f.transitions.transitions)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("missing keg rolls back the group", func(t *testing.T) {
		f := newKegFixture()
		a := f.seedKeg(t, "KEG-2026-0024")

		resp, err := f.service.BulkTransition(ctx, BulkTransitionRequest{
			KegIDs:  []uuid.UUID{a.ID, uuid.New()},
			ToState: "DIRTY",
		})
		require.NoError(t, err)
		assert.False(t, resp.Committed)

		var missing *BulkTransitionResult
		for i := range resp.Results {
			if resp.Results[i].KegID != a.ID {
				missing = &resp.Results[i]
			}
		}
		require.NotNil(t, missing)
		assert.Equal(t, "ASSET_NOT_FOUND", missing.ErrorCode)
	})

	t.Run("rejects unknown target state", func(t *testing.T) {
		f := newKegFixture()

		_, err := f.service.BulkTransition(ctx, BulkTransitionRequest{
			KegIDs:  []uuid.UUID{uuid.New()},
			ToState: "MELTED",
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})

	t.Run("rejects empty group", func(t *testing.T) {
		f := newKegFixture()

		_, err := f.service.BulkTransition(ctx, BulkTransitionRequest{ToState: "DIRTY"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})

	t.Run("deduplicates ids and scan codes", func(t *testing.T) {
		f := newKegFixture()
		a := f.seedKeg(t, "KEG-2026-0025")

		resp, err := f.service.BulkTransition(ctx, BulkTransitionRequest{
			KegIDs:    []uuid.UUID{a.ID},
			ScanCodes: []string{a.ScanCode},
			ToState:   "DIRTY",
		})
		require.NoError(t, err)
		assert.True(t, resp.Committed)
		assert.Len(t, resp.Results, 1)
	})
}

func TestKegService_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("get by scan code populates cache", func(t *testing.T) {
		f := newKegFixture()
		cache := &mapScanCache{entries: make(map[string]uuid.UUID)}
		f.service = NewKegService(
			NewNoOpTransactionScope(f.assets, f.transitions),
			f.publisher, zap.NewNop(), cache, 30,
		)
		asset := f.seedKeg(t, "KEG-2026-0030")

		resp, err := f.service.GetByScanCode(ctx, asset.ScanCode)
		require.NoError(t, err)
		assert.Equal(t, asset.ID, resp.ID)

		id, ok := cache.Get(ctx, asset.ScanCode)
		assert.True(t, ok)
		assert.Equal(t, asset.ID, id)
	})

	t.Run("history requires existing keg", func(t *testing.T) {
		f := newKegFixture()

		_, err := f.service.History(ctx, uuid.New(), shared.DefaultFilter())
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ASSET_NOT_FOUND", domainErr.Code)
	})

	t.Run("fleet summary counts states", func(t *testing.T) {
		f := newKegFixture()
		f.seedKeg(t, "KEG-2026-0031")
		f.seedKeg(t, "KEG-2026-0032", keg.StateDirty)
		f.seedKeg(t, "KEG-2026-0033", keg.StateDirty, keg.StateClean)

		summary, err := f.service.FleetSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), summary.Total)
		assert.Equal(t, int64(1), summary.ByState["EMPTY"])
		assert.Equal(t, int64(1), summary.ByState["DIRTY"])
		assert.Equal(t, int64(1), summary.ByState["CLEAN"])
	})
}

type mapScanCache struct {
	entries map[string]uuid.UUID
}

func (c *mapScanCache) Get(_ context.Context, code string) (uuid.UUID, bool) {
	id, ok := c.entries[code]
	return id, ok
}

func (c *mapScanCache) Set(_ context.Context, code string, id uuid.UUID) {
	c.entries[code] = id
}

// deadlineScope simulates a transaction that times out waiting on row locks
type deadlineScope struct{}

func (deadlineScope) Execute(context.Context, func(Repositories) error) error {
	return context.DeadlineExceeded
}

func TestKegService_LockTimeoutSurfaces(t *testing.T) {
	service := NewKegService(deadlineScope{}, &fakePublisher{}, zap.NewNop(), nil, 30)

	_, err := service.Transition(context.Background(), uuid.New(), TransitionRequest{ToState: "DIRTY"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "LOCK_TIMEOUT", domainErr.Code)

	_, err = service.BulkTransition(context.Background(), BulkTransitionRequest{
		KegIDs:  []uuid.UUID{uuid.New()},
		ToState: "DIRTY",
	})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "LOCK_TIMEOUT", domainErr.Code)
}
