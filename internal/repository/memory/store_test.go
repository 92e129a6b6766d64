package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

func newCoupon(code string, status models.Status, priority int) *models.Coupon {
	now := time.Now().UTC()
	return &models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		Type:          models.TypeFixed,
		DiscountValue: decimal.NewFromInt(10),
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		Status:        status,
		IsActive:      true,
		Priority:      priority,
		Restrictions:  models.UsageRestrictions{MaxTotalUsage: 3},
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := newCoupon("SAVE10", models.StatusActive, 0)
	require.NoError(t, s.Create(ctx, c))

	assert.ErrorIs(t, s.Create(ctx, newCoupon("SAVE10", models.StatusActive, 0)), models.ErrCouponExists)

	got, err := s.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	got.Code = "CHANGED"
	byID, err := s.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", byID.Code)

	_, err = s.GetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, models.ErrCouponNotFound)
}

func TestListLive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	disabled := newCoupon("OFF", models.StatusActive, 9)
	disabled.IsActive = false
	for _, c := range []*models.Coupon{
		newCoupon("BBB", models.StatusActive, 1),
		newCoupon("AAA", models.StatusScheduled, 1),
		newCoupon("TOP", models.StatusActive, 5),
		newCoupon("DRAFT", models.StatusDraft, 9),
		newCoupon("GONE", models.StatusExpired, 9),
		disabled,
	} {
		require.NoError(t, s.Create(ctx, c))
	}

	live, err := s.ListLive(ctx)
	require.NoError(t, err)
	var codes []string
	for _, c := range live {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"TOP", "AAA", "BBB"}, codes)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := newCoupon("SAVE10", models.StatusScheduled, 0)
	require.NoError(t, s.Create(ctx, c))

	require.NoError(t, s.UpdateStatus(ctx, c.ID, models.StatusScheduled, models.StatusActive))
	assert.ErrorIs(t, s.UpdateStatus(ctx, c.ID, models.StatusScheduled, models.StatusActive), models.ErrCouponNotFound)
	assert.ErrorIs(t, s.UpdateStatus(ctx, uuid.New(), models.StatusActive, models.StatusExpired), models.ErrCouponNotFound)

	got, err := s.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
}

func TestCompareAndRecord(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := newCoupon("SAVE10", models.StatusActive, 0)
	require.NoError(t, s.Create(ctx, c))

	entry := func(user, order string) models.UsageEntry {
		return models.UsageEntry{ID: uuid.New(), UserID: user, OrderID: order, UsedAt: time.Now()}
	}

	require.NoError(t, s.CompareAndRecord(ctx, c.ID, 0, entry("u1", "o1")))
	assert.ErrorIs(t, s.CompareAndRecord(ctx, c.ID, 1, entry("u1", "o1")), models.ErrDuplicateRedemption)
	assert.ErrorIs(t, s.CompareAndRecord(ctx, c.ID, 0, entry("u1", "o2")), models.ErrUsageConflict)
	require.NoError(t, s.CompareAndRecord(ctx, c.ID, 1, entry("u2", "o2")))
	require.NoError(t, s.CompareAndRecord(ctx, c.ID, 2, entry("u1", "o3")))
	assert.ErrorIs(t, s.CompareAndRecord(ctx, c.ID, 3, entry("u1", "o4")), models.ErrUsageCapReached)
	assert.ErrorIs(t, s.CompareAndRecord(ctx, uuid.New(), 0, entry("u1", "o5")), models.ErrCouponNotFound)

	snap, err := s.Snapshot(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Restrictions.CurrentUsage)
	assert.Equal(t, models.StatusExpired, snap.Status)
	assert.Len(t, snap.UsageHistory, 2)

	usage, err := s.UsageByUser(ctx, "u2", []uuid.UUID{c.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, usage[c.ID], 1)
	assert.Equal(t, "o2", usage[c.ID][0].OrderID)
	assert.Equal(t, c.ID, usage[c.ID][0].CouponID)

	plain, err := s.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Empty(t, plain.UsageHistory)
}

func TestCompareAndRecordPerUserCap(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := newCoupon("ONCE", models.StatusActive, 0)
	c.Restrictions.MaxTotalUsage = 0
	c.Restrictions.MaxUsagePerUser = 1
	require.NoError(t, s.Create(ctx, c))

	entry := func(user, order string) models.UsageEntry {
		return models.UsageEntry{ID: uuid.New(), UserID: user, OrderID: order, UsedAt: time.Now()}
	}

	require.NoError(t, s.CompareAndRecord(ctx, c.ID, 0, entry("u1", "o1")))
	assert.ErrorIs(t, s.CompareAndRecord(ctx, c.ID, 1, entry("u1", "o2")), models.ErrUserCapReached)
	require.NoError(t, s.CompareAndRecord(ctx, c.ID, 1, entry("u2", "o3")))

	snap, err := s.Snapshot(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Restrictions.CurrentUsage)
	assert.Len(t, snap.UsageHistory, 1)
}
