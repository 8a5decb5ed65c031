package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	appstock "github.com/Ckph07/desert-brew-os/internal/application/stock"
	"github.com/Ckph07/desert-brew-os/internal/domain/keg"
	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/Ckph07/desert-brew-os/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&stock.StockBatch{},
		&stock.StockMovement{},
		&keg.KegAsset{},
		&keg.KegTransition{},
	))
	return db
}

func seedBatch(t *testing.T, db *gorm.DB, sku string, quantity, unitCost decimal.Decimal, receivedAt time.Time) *stock.StockBatch {
	t.Helper()
	batch, err := stock.NewStockBatch(sku, stock.CategoryMalt, quantity, "kg", unitCost, "SUP-001")
	require.NoError(t, err)
	batch.ReceivedAt = receivedAt
	batch.ClearDomainEvents()
	require.NoError(t, NewGormStockBatchRepository(db).Create(context.Background(), batch))
	return batch
}

func seedKeg(t *testing.T, db *gorm.DB, serial string) *keg.KegAsset {
	t.Helper()
	asset, err := keg.NewKegAsset(serial, keg.SizeFifty)
	require.NoError(t, err)
	asset.ClearDomainEvents()
	require.NoError(t, NewGormKegAssetRepository(db).Create(context.Background(), asset))
	return asset
}

func TestGormStockBatchRepository(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("create and find by id", func(t *testing.T) {
		db := setupDB(t)
		repo := NewGormStockBatchRepository(db)
		batch := seedBatch(t, db, "MALT-PILS", decimal.NewFromInt(100), decimal.NewFromInt(2), base)

		found, err := repo.FindByID(ctx, batch.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "MALT-PILS", found.SKU)
		assert.True(t, found.QuantityRemaining.Equal(decimal.NewFromInt(100)))
	})

	t.Run("missing id returns nil", func(t *testing.T) {
		db := setupDB(t)
		repo := NewGormStockBatchRepository(db)

		found, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("allocatable excludes held expired and exhausted in fifo order", func(t *testing.T) {
		db := setupDB(t)
		repo := NewGormStockBatchRepository(db)

		newest := seedBatch(t, db, "HOPS-CASCADE", decimal.NewFromInt(10), decimal.NewFromInt(3), base.Add(2*time.Hour))
		oldest := seedBatch(t, db, "HOPS-CASCADE", decimal.NewFromInt(10), decimal.NewFromInt(1), base)
		middle := seedBatch(t, db, "HOPS-CASCADE", decimal.NewFromInt(10), decimal.NewFromInt(2), base.Add(time.Hour))

		held := seedBatch(t, db, "HOPS-CASCADE", decimal.NewFromInt(10), decimal.NewFromInt(1), base)
		held.Hold()
		require.NoError(t, repo.Save(ctx, held))

		expired := seedBatch(t, db, "HOPS-CASCADE", decimal.NewFromInt(10), decimal.NewFromInt(1), base)
		past := time.Now().Add(-time.Hour)
		expired.ExpirationDate = &past
		require.NoError(t, repo.Save(ctx, expired))

		exhausted := seedBatch(t, db, "HOPS-CASCADE", decimal.NewFromInt(10), decimal.NewFromInt(1), base)
		require.NoError(t, exhausted.Deduct(decimal.NewFromInt(10)))
		require.NoError(t, repo.Save(ctx, exhausted))

		seedBatch(t, db, "MALT-PILS", decimal.NewFromInt(10), decimal.NewFromInt(1), base)

		batches, err := repo.FindAllocatableBySKU(ctx, "HOPS-CASCADE")
		require.NoError(t, err)
		require.Len(t, batches, 3)
		assert.Equal(t, oldest.ID, batches[0].ID)
		assert.Equal(t, middle.ID, batches[1].ID)
		assert.Equal(t, newest.ID, batches[2].ID)
	})

	t.Run("sum remaining by sku", func(t *testing.T) {
		db := setupDB(t)
		repo := NewGormStockBatchRepository(db)
		seedBatch(t, db, "YEAST-US05", decimal.NewFromInt(8), decimal.NewFromInt(4), base)
		seedBatch(t, db, "YEAST-US05", decimal.NewFromInt(4), decimal.NewFromInt(4), base)
		seedBatch(t, db, "MALT-PILS", decimal.NewFromInt(100), decimal.NewFromInt(1), base)

		total, err := repo.SumRemainingBySKU(ctx, "YEAST-US05")
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(12)), "got %s", total)
	})

	t.Run("summarize groups by sku", func(t *testing.T) {
		db := setupDB(t)
		repo := NewGormStockBatchRepository(db)
		seedBatch(t, db, "GAS-CO2", decimal.NewFromInt(50), decimal.NewFromInt(2), base)
		seedBatch(t, db, "GAS-CO2", decimal.NewFromInt(30), decimal.NewFromInt(3), base.Add(time.Hour))
		seedBatch(t, db, "MALT-PILS", decimal.NewFromInt(10), decimal.NewFromInt(1), base)

		summaries, err := repo.Summarize(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		assert.Equal(t, "GAS-CO2", summaries[0].SKU)
		assert.Equal(t, int64(2), summaries[0].BatchCount)
		assert.True(t, summaries[0].TotalRemaining.Equal(decimal.NewFromInt(80)))
		assert.True(t, summaries[0].TotalValue.Equal(decimal.NewFromInt(190)))
	})

	t.Run("list with filters", func(t *testing.T) {
		db := setupDB(t)
		repo := NewGormStockBatchRepository(db)
		seedBatch(t, db, "MALT-PILS", decimal.NewFromInt(10), decimal.NewFromInt(1), base)
		held := seedBatch(t, db, "MALT-VIENNA", decimal.NewFromInt(10), decimal.NewFromInt(1), base)
		held.Hold()
		require.NoError(t, repo.Save(ctx, held))

		filter := shared.DefaultFilter()
		filter.Filters["available"] = false
		batches, err := repo.List(ctx, filter)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "MALT-VIENNA", batches[0].SKU)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		hostile := shared.DefaultFilter()
		hostile.OrderBy = "received_at; DROP TABLE stock_batches --"
		batches, err = repo.List(ctx, hostile)
		require.NoError(t, err)
		assert.Len(t, batches, 2)
	})
}

func TestGormStockMovementRepository(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("append and query", func(t *testing.T) {
		db := setupDB(t)
		batchRepo := NewGormStockBatchRepository(db)
		repo := NewGormStockMovementRepository(db)
		batch := seedBatch(t, db, "MALT-PILS", decimal.NewFromInt(100), decimal.NewFromInt(2), base)

		require.NoError(t, repo.Create(ctx, stock.NewStockMovement(batch, stock.MovementTypeReceipt, decimal.NewFromInt(100), "", "jordan")))
		require.NoError(t, repo.CreateBatch(ctx, []*stock.StockMovement{
			stock.NewStockMovement(batch, stock.MovementTypeConsumption, decimal.NewFromInt(20), "BREW-001", "jordan"),
			stock.NewStockMovement(batch, stock.MovementTypeConsumption, decimal.NewFromInt(30), "BREW-002", "jordan"),
		}))

		byBatch, err := repo.FindByBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Len(t, byBatch, 3)

		consumption := stock.MovementTypeConsumption
		filtered, err := repo.List(ctx, stock.MovementFilter{
			Filter:       shared.DefaultFilter(),
			SKU:          "MALT-PILS",
			MovementType: &consumption,
		})
		require.NoError(t, err)
		assert.Len(t, filtered, 2)

		total, err := repo.SumQuantityBySKU(ctx, "MALT-PILS", stock.MovementTypeConsumption)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(50)))

		require.NoError(t, batchRepo.Save(ctx, batch))
	})
}

func TestGormKegRepositories(t *testing.T) {
	ctx := context.Background()

	t.Run("find by serial and scan code", func(t *testing.T) {
		db := setupDB(t)
		repo := NewGormKegAssetRepository(db)
		asset := seedKeg(t, db, "KEG-2026-0001")

		bySerial, err := repo.FindBySerialNumber(ctx, "KEG-2026-0001")
		require.NoError(t, err)
		require.NotNil(t, bySerial)
		assert.Equal(t, asset.ID, bySerial.ID)

		byScan, err := repo.FindByScanCode(ctx, asset.ScanCode)
		require.NoError(t, err)
		require.NotNil(t, byScan)
		assert.Equal(t, asset.ID, byScan.ID)

		asset.RFIDTag = "RFID-AA-0001"
		require.NoError(t, repo.Save(ctx, asset))
		byRFID, err := repo.FindByScanCode(ctx, "RFID-AA-0001")
		require.NoError(t, err)
		require.NotNil(t, byRFID)
		assert.Equal(t, asset.ID, byRFID.ID)

		missing, err := repo.FindBySerialNumber(ctx, "KEG-9999-0000")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("find by ids returns sorted order", func(t *testing.T) {
		db := setupDB(t)
		repo := NewGormKegAssetRepository(db)
		a := seedKeg(t, db, "KEG-2026-0002")
		b := seedKeg(t, db, "KEG-2026-0003")

		assets, err := repo.FindByIDs(ctx, []uuid.UUID{b.ID, a.ID})
		require.NoError(t, err)
		require.Len(t, assets, 2)
		assert.True(t, assets[0].ID.String() < assets[1].ID.String())
	})

	t.Run("count by state", func(t *testing.T) {
		db := setupDB(t)
		repo := NewGormKegAssetRepository(db)
		seedKeg(t, db, "KEG-2026-0004")
		dirty := seedKeg(t, db, "KEG-2026-0005")
		_, err := dirty.Transition(keg.StateDirty, keg.TransitionContext{})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, dirty))

		counts, err := repo.CountByState(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[keg.StateEmpty])
		assert.Equal(t, int64(1), counts[keg.StateDirty])
	})

	t.Run("transition log and bulk lookup", func(t *testing.T) {
		db := setupDB(t)
		assetRepo := NewGormKegAssetRepository(db)
		repo := NewGormKegTransitionRepository(db)
		asset := seedKeg(t, db, "KEG-2026-0006")

		tr1, err := asset.Transition(keg.StateDirty, keg.TransitionContext{Actor: "crew", BulkOpID: "BLK-AA"})
		require.NoError(t, err)
		tr1.OccurredAt = time.Now().Add(-time.Hour)
		tr2, err := asset.Transition(keg.StateClean, keg.TransitionContext{Actor: "crew"})
		require.NoError(t, err)
		require.NoError(t, assetRepo.Save(ctx, asset))
		require.NoError(t, repo.CreateBatch(ctx, []*keg.KegTransition{tr1, tr2}))

		history, err := repo.FindByKeg(ctx, asset.ID, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, keg.StateClean, history[0].ToState)

		latest, err := repo.FindLatestByKeg(ctx, asset.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, keg.StateClean, latest.ToState)

		bulk, err := repo.FindByBulkOp(ctx, "BLK-AA")
		require.NoError(t, err)
		require.Len(t, bulk, 1)
		assert.Equal(t, keg.StateDirty, bulk[0].ToState)
	})

	t.Run("at risk finds overdue client kegs", func(t *testing.T) {
		db := setupDB(t)
		assetRepo := NewGormKegAssetRepository(db)
		repo := NewGormKegTransitionRepository(db)

		overdue := seedKeg(t, db, "KEG-2026-0007")
		walkToClient(t, overdue)
		require.NoError(t, assetRepo.Save(ctx, overdue))
		old := keg.NewKegTransition(overdue.ID, keg.StateInTransit, keg.StateInClient, keg.TransitionContext{})
		old.OccurredAt = time.Now().AddDate(0, 0, -45)
		require.NoError(t, repo.Create(ctx, old))

		recent := seedKeg(t, db, "KEG-2026-0008")
		walkToClient(t, recent)
		require.NoError(t, assetRepo.Save(ctx, recent))
		require.NoError(t, repo.Create(ctx, keg.NewKegTransition(recent.ID, keg.StateInTransit, keg.StateInClient, keg.TransitionContext{})))

		worse := seedKeg(t, db, "KEG-2026-0010")
		walkToClient(t, worse)
		require.NoError(t, assetRepo.Save(ctx, worse))
		older := keg.NewKegTransition(worse.ID, keg.StateInTransit, keg.StateInClient, keg.TransitionContext{})
		older.OccurredAt = time.Now().AddDate(0, 0, -90)
		require.NoError(t, repo.Create(ctx, older))

		atHome := seedKeg(t, db, "KEG-2026-0009")
		stale := keg.NewKegTransition(atHome.ID, keg.StateEmpty, keg.StateDirty, keg.TransitionContext{})
		stale.OccurredAt = time.Now().AddDate(0, 0, -45)
		require.NoError(t, repo.Create(ctx, stale))

		atRisk, err := repo.FindAtRisk(ctx, time.Now().AddDate(0, 0, -30))
		require.NoError(t, err)
		require.Len(t, atRisk, 2)
		assert.Equal(t, worse.ID, atRisk[0].Keg.ID)
		assert.Equal(t, overdue.ID, atRisk[1].Keg.ID)
		assert.GreaterOrEqual(t, atRisk[0].DaysOut, 89)
		assert.GreaterOrEqual(t, atRisk[1].DaysOut, 44)
	})
}

func TestGormScopes(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("stock scope rolls back on error", func(t *testing.T) {
		db := setupDB(t)
		batch := seedBatch(t, db, "MALT-PILS", decimal.NewFromInt(100), decimal.NewFromInt(2), base)
		scope := NewGormStockScope(db)

		err := scope.Execute(ctx, func(repos appstock.Repositories) error {
			loaded, err := repos.Batches().FindByID(ctx, batch.ID)
			if err != nil {
				return err
			}
			if err := loaded.Deduct(decimal.NewFromInt(40)); err != nil {
				return err
			}
			if err := repos.Batches().Save(ctx, loaded); err != nil {
				return err
			}
			return assert.AnError
		})
		require.Error(t, err)

		found, err := NewGormStockBatchRepository(db).FindByID(ctx, batch.ID)
		require.NoError(t, err)
		assert.True(t, found.QuantityRemaining.Equal(decimal.NewFromInt(100)),
			"rollback must restore the remaining quantity, got %s", found.QuantityRemaining)
	})

	t.Run("stock scope commits on success", func(t *testing.T) {
		db := setupDB(t)
		batch := seedBatch(t, db, "MALT-PILS", decimal.NewFromInt(100), decimal.NewFromInt(2), base)
		scope := NewGormStockScope(db)

		err := scope.Execute(ctx, func(repos appstock.Repositories) error {
			loaded, err := repos.Batches().FindByID(ctx, batch.ID)
			if err != nil {
				return err
			}
			if err := loaded.Deduct(decimal.NewFromInt(40)); err != nil {
				return err
			}
			return repos.Batches().Save(ctx, loaded)
		})
		require.NoError(t, err)

		found, err := NewGormStockBatchRepository(db).FindByID(ctx, batch.ID)
		require.NoError(t, err)
		assert.True(t, found.QuantityRemaining.Equal(decimal.NewFromInt(60)))
	})
}

func walkToClient(t *testing.T, asset *keg.KegAsset) {
	t.Helper()
	for _, s := range []keg.State{keg.StateDirty, keg.StateClean, keg.StateFilling, keg.StateFull, keg.StateInTransit, keg.StateInClient} {
		_, err := asset.Transition(s, keg.TransitionContext{})
		require.NoError(t, err)
	}
	asset.ClearDomainEvents()
}

// setupFileDB opens a file-backed database so concurrent connections share
// real sqlite locking. Writers take the write lock at BEGIN, so a second
// transaction waits instead of deadlocking on a lock upgrade.
func setupFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db") + "?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&stock.StockBatch{},
		&stock.StockMovement{},
	))
	return db
}

func TestStockService_ConcurrentAllocation(t *testing.T) {
	ctx := context.Background()
	db := setupFileDB(t)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	seedBatch(t, db, "MALT-PILS", decimal.NewFromInt(100), decimal.NewFromInt(2), base)

	service := appstock.NewStockService(NewGormStockScope(db), nil, zap.NewNop(), decimal.Zero)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Allocate(ctx, appstock.AllocateStockRequest{
				SKU:         "MALT-PILS",
				Quantity:    decimal.NewFromInt(60),
				ConsumerRef: fmt.Sprintf("BREW-%03d", i),
				Actor:       "brewer",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)
	}
	assert.Equal(t, 1, succeeded, "only one of two 60-unit allocations can fit in 100")

	remaining, err := NewGormStockBatchRepository(db).SumRemainingBySKU(ctx, "MALT-PILS")
	require.NoError(t, err)
	assert.True(t, remaining.Equal(decimal.NewFromInt(40)), "remaining = %s", remaining)
}
