package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Cheertaboi/coupon-service/internal/engine"
	"github.com/Cheertaboi/coupon-service/internal/models"
	"github.com/Cheertaboi/coupon-service/internal/repository/memory"
)

func seeded(t *testing.T, c *models.Coupon) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Create(context.Background(), c))
	return store
}

func entryFor(orderID string) models.UsageEntry {
	return models.UsageEntry{
		UserID:         "user-1",
		OrderID:        orderID,
		DiscountAmount: dec("50"),
		Savings:        dec("50"),
		UsedAt:         now,
	}
}

func TestRecordIsIdempotentPerOrder(t *testing.T) {
	ctx := context.Background()
	c := save50()
	store := seeded(t, c)
	rec := engine.NewRecorder(store, 3, 0, zap.NewNop())

	updated, err := rec.Record(ctx, c, entryFor("order-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Restrictions.CurrentUsage)
	assert.Equal(t, models.StatusExpired, updated.Status)
	require.Len(t, updated.UsageHistory, 1)
	assert.Equal(t, c.ID, updated.UsageHistory[0].CouponID)
	assert.NotEqual(t, uuid.Nil, updated.UsageHistory[0].ID)

	// replay with the fresh state
	again, err := rec.Record(ctx, updated, entryFor("order-1"))
	assert.ErrorIs(t, err, models.ErrDuplicateRedemption)
	assert.Equal(t, 1, again.Restrictions.CurrentUsage)

	// replay with a stale copy taken before the first call
	_, err = rec.Record(ctx, c, entryFor("order-1"))
	assert.ErrorIs(t, err, models.ErrDuplicateRedemption)

	stored, err := store.Snapshot(ctx, c.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Restrictions.CurrentUsage)
	assert.Len(t, stored.UsageHistory, 1)
}

func TestRecordRequiresOrderID(t *testing.T) {
	c := save50()
	rec := engine.NewRecorder(seeded(t, c), 3, 0, nil)

	_, err := rec.Record(context.Background(), c, entryFor(""))
	assert.ErrorIs(t, err, models.ErrMissingOrderID)
}

func TestRecordStopsAtCap(t *testing.T) {
	ctx := context.Background()
	c := save50()
	store := seeded(t, c)
	rec := engine.NewRecorder(store, 3, 0, nil)

	_, err := rec.Record(ctx, c, entryFor("order-1"))
	require.NoError(t, err)

	_, err = rec.Record(ctx, c, entryFor("order-2"))
	assert.ErrorIs(t, err, models.ErrUsageCapReached)

	stored, err := store.Snapshot(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Restrictions.CurrentUsage)
}

func TestRecordRetriesStaleCounter(t *testing.T) {
	ctx := context.Background()
	c := save50()
	c.Restrictions.MaxTotalUsage = 5
	c.Restrictions.MaxUsagePerUser = 0
	store := seeded(t, c)
	rec := engine.NewRecorder(store, 3, 0, nil)

	_, err := rec.Record(ctx, c, entryFor("order-1"))
	require.NoError(t, err)

	// c still says zero uses
	updated, err := rec.Record(ctx, c, entryFor("order-2"))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Restrictions.CurrentUsage)
	assert.Equal(t, models.StatusActive, updated.Status)
}

type contendedStore struct {
	coupon *models.Coupon
	calls  int32
}

func (s *contendedStore) CompareAndRecord(context.Context, uuid.UUID, int, models.UsageEntry) error {
	atomic.AddInt32(&s.calls, 1)
	return models.ErrUsageConflict
}

func (s *contendedStore) Snapshot(context.Context, uuid.UUID, string) (*models.Coupon, error) {
	return s.coupon.Clone(), nil
}

func TestRecordGivesUpUnderContention(t *testing.T) {
	c := save50()
	store := &contendedStore{coupon: c}
	rec := engine.NewRecorder(store, 3, 0, nil)

	_, err := rec.Record(context.Background(), c, entryFor("order-1"))
	assert.ErrorIs(t, err, models.ErrContentionExhausted)
	assert.EqualValues(t, 3, atomic.LoadInt32(&store.calls))
}

func TestRecordHonoursContext(t *testing.T) {
	c := save50()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := engine.NewRecorder(&contendedStore{coupon: c}, 3, 0, nil)

	_, err := rec.Record(ctx, c, entryFor("order-1"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRecordConcurrentNeverPassesCap(t *testing.T) {
	const limit, buyers = 5, 50

	ctx := context.Background()
	c := save50()
	c.Restrictions.MaxTotalUsage = limit
	c.Restrictions.MaxUsagePerUser = 0
	store := seeded(t, c)
	rec := engine.NewRecorder(store, 100, 0, nil)

	var (
		wg        sync.WaitGroup
		succeeded int32
		capped    int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := rec.Record(ctx, c, entryFor(fmt.Sprintf("order-%d", i)))
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case errors.Is(err, models.ErrUsageCapReached):
				atomic.AddInt32(&capped, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, limit, succeeded)
	assert.EqualValues(t, buyers-limit, capped)

	stored, err := store.Snapshot(ctx, c.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, limit, stored.Restrictions.CurrentUsage)
	assert.Len(t, stored.UsageHistory, limit)
	assert.Equal(t, models.StatusExpired, stored.Status)
}

func TestRecordRequiresUserID(t *testing.T) {
	c := save50()
	rec := engine.NewRecorder(seeded(t, c), 3, 0, nil)

	entry := entryFor("order-1")
	entry.UserID = ""
	_, err := rec.Record(context.Background(), c, entry)
	assert.ErrorIs(t, err, models.ErrMissingUserID)
}

func TestRecordEnforcesPerUserCapOnStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	c := save50()
	c.Restrictions.MaxTotalUsage = 0
	c.Restrictions.MaxUsagePerUser = 1
	store := seeded(t, c)
	rec := engine.NewRecorder(store, 3, 0, nil)

	_, err := rec.Record(ctx, c, entryFor("order-1"))
	require.NoError(t, err)

	// c was loaded before order-1 was written
	_, err = rec.Record(ctx, c, entryFor("order-2"))
	assert.ErrorIs(t, err, models.ErrUserCapReached)

	stored, err := store.Snapshot(ctx, c.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, stored.UsageHistory, 1)
	assert.Equal(t, 1, stored.Restrictions.CurrentUsage)

	other := entryFor("order-3")
	other.UserID = "user-2"
	_, err = rec.Record(ctx, c, other)
	assert.NoError(t, err, "other users keep their own allowance")
}

// movedStore always reports a conflict and serves a snapshot in which the
// user has already redeemed.
type movedStore struct {
	fresh *models.Coupon
	calls int32
}

func (s *movedStore) CompareAndRecord(context.Context, uuid.UUID, int, models.UsageEntry) error {
	atomic.AddInt32(&s.calls, 1)
	return models.ErrUsageConflict
}

func (s *movedStore) Snapshot(context.Context, uuid.UUID, string) (*models.Coupon, error) {
	return s.fresh.Clone(), nil
}

func TestRecordRechecksPerUserCapAfterReload(t *testing.T) {
	c := save50()
	c.Restrictions.MaxTotalUsage = 0
	fresh := c.WithUsage(models.UsageEntry{UserID: "user-1", OrderID: "order-0", UsedAt: now})
	store := &movedStore{fresh: fresh}
	rec := engine.NewRecorder(store, 5, 0, nil)

	_, err := rec.Record(context.Background(), c, entryFor("order-1"))
	assert.ErrorIs(t, err, models.ErrUserCapReached)
	assert.EqualValues(t, 1, atomic.LoadInt32(&store.calls))
}

func TestRecordConcurrentSameUserNeverPassesUserCap(t *testing.T) {
	const perUser, attempts = 2, 20

	ctx := context.Background()
	c := save50()
	c.Restrictions.MaxTotalUsage = 0
	c.Restrictions.MaxUsagePerUser = perUser
	store := seeded(t, c)
	rec := engine.NewRecorder(store, 100, 0, nil)

	var (
		wg        sync.WaitGroup
		succeeded int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := rec.Record(ctx, c, entryFor(fmt.Sprintf("order-%d", i)))
			if err == nil {
				atomic.AddInt32(&succeeded, 1)
				return
			}
			assert.ErrorIs(t, err, models.ErrUserCapReached)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, perUser, succeeded)
	stored, err := store.Snapshot(ctx, c.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, stored.UsageHistory, perUser)
}
