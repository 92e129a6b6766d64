package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

// UsageStore is the persistence a Recorder needs.
type UsageStore interface {
	// CompareAndRecord appends entry to the ledger and increments the
	// coupon's usage counter in one atomic step, but only while the
	// counter still equals expected, is below the cap and the entry's user
	// is below the per-user cap. It returns models.ErrUsageConflict when
	// the counter moved, models.ErrUsageCapReached or
	// models.ErrUserCapReached when a cap is hit and
	// models.ErrDuplicateRedemption when the order is already recorded.
	CompareAndRecord(ctx context.Context, couponID uuid.UUID, expected int, entry models.UsageEntry) error
	// Snapshot reloads a coupon with at least userID's ledger entries.
	Snapshot(ctx context.Context, couponID uuid.UUID, userID string) (*models.Coupon, error)
}

const (
	DefaultRedeemAttempts = 5
	DefaultRedeemBackoff  = 10 * time.Millisecond
)

// Recorder writes redemptions with optimistic retries.
type Recorder struct {
	store       UsageStore
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewRecorder(store UsageStore, maxAttempts int, backoff time.Duration, logger *zap.Logger) *Recorder {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRedeemAttempts
	}
	if backoff < 0 {
		backoff = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:       store,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
		now:         time.Now,
	}
}

// Record appends entry to c's ledger and bumps its usage counter.
// A second call with an order id already in the ledger changes nothing
// and returns the current state with models.ErrDuplicateRedemption.
// c must carry at least entry.UserID's ledger entries; the caps are
// re-checked on every reload.
// If the counter keeps moving under it, Record gives up after its retry
// budget with models.ErrContentionExhausted and nothing is written.
func (r *Recorder) Record(ctx context.Context, c *models.Coupon, entry models.UsageEntry) (*models.Coupon, error) {
	if entry.OrderID == "" {
		return c, models.ErrMissingOrderID
	}
	if entry.UserID == "" {
		return c, models.ErrMissingUserID
	}
	entry.CouponID = c.ID
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.UsedAt.IsZero() {
		entry.UsedAt = r.now().UTC()
	}

	cur := c
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if cur.HasOrder(entry.OrderID) {
			return cur, models.ErrDuplicateRedemption
		}
		if cur.Restrictions.CapReached() {
			return cur, models.ErrUsageCapReached
		}
		if cur.UserCapReached(entry.UserID) {
			return cur, models.ErrUserCapReached
		}

		err := r.store.CompareAndRecord(ctx, cur.ID, cur.Restrictions.CurrentUsage, entry)
		if err == nil {
			return cur.WithUsage(entry), nil
		}
		if !errors.Is(err, models.ErrUsageConflict) {
			return cur, err
		}

		r.logger.Debug("usage counter moved, retrying",
			zap.String("coupon", cur.Code),
			zap.String("order_id", entry.OrderID),
			zap.Int("attempt", attempt),
		)
		if attempt == r.maxAttempts {
			break
		}
		if err := r.wait(ctx, attempt); err != nil {
			return cur, err
		}
		fresh, err := r.store.Snapshot(ctx, cur.ID, entry.UserID)
		if err != nil {
			return cur, fmt.Errorf("reload coupon: %w", err)
		}
		cur = fresh
	}

	r.logger.Warn("redemption rejected after retries",
		zap.String("coupon", cur.Code),
		zap.String("order_id", entry.OrderID),
		zap.Int("attempts", r.maxAttempts),
	)
	return cur, models.ErrContentionExhausted
}

func (r *Recorder) wait(ctx context.Context, attempt int) error {
	if r.backoff == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(attempt) * r.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
