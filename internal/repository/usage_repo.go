package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

type UsageRepo struct {
	db *sql.DB
}

func NewUsageRepo(db *sql.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// UsageByUser returns userID's ledger entries for each of couponIDs.
func (r *UsageRepo) UsageByUser(ctx context.Context, userID string, couponIDs []uuid.UUID) (map[uuid.UUID][]models.UsageEntry, error) {
	return usageByUser(ctx, r.db, userID, couponIDs)
}

// CompareAndRecord increments the coupon's usage counter only while it
// still equals expected, sits below the cap and the entry's user is below
// the per-user cap, and appends the ledger entry, both inside one
// transaction.
func (r *UsageRepo) CompareAndRecord(ctx context.Context, couponID uuid.UUID, expected int, entry models.UsageEntry) error {
	device, err := json.Marshal(entry.Device)
	if err != nil {
		return fmt.Errorf("encode device: %w", err)
	}
	location, err := json.Marshal(entry.Location)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	increment := `
		UPDATE coupons
		SET current_usage = current_usage + 1,
		    status = CASE
		        WHEN status = 'active' AND max_total_usage > 0 AND current_usage + 1 >= max_total_usage
		        THEN 'expired' ELSE status END,
		    updated_at = $3
		WHERE id = $1
		  AND current_usage = $2
		  AND (max_total_usage = 0 OR current_usage < max_total_usage)
		  AND (max_usage_per_user = 0 OR max_usage_per_user > (
		      SELECT count(*) FROM coupon_usage WHERE coupon_id = $1 AND user_id = $4))
	`
	res, err := tx.ExecContext(ctx, increment, couponID, expected, entry.UsedAt, entry.UserID)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if n == 0 {
		return whyNotIncremented(ctx, tx, couponID, entry.UserID)
	}

	insert := `
		INSERT INTO coupon_usage
		(id, coupon_id, user_id, order_id, cart_id, discount_amount, order_amount_before,
		 order_amount_after, savings, used_at, device, location, payment_method, delivery_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
	_, err = tx.ExecContext(ctx, insert,
		entry.ID,
		couponID,
		entry.UserID,
		entry.OrderID,
		entry.CartID,
		entry.DiscountAmount,
		entry.OrderAmountBefore,
		entry.OrderAmountAfter,
		entry.Savings,
		entry.UsedAt,
		device,
		location,
		entry.PaymentMethod,
		entry.DeliveryType,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateRedemption
		}
		return fmt.Errorf("insert usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return nil
}

// whyNotIncremented tells a missing coupon, a reached total cap, a user at
// their own cap and a moved counter apart after the conditional update
// matched no row.
func whyNotIncremented(ctx context.Context, tx *sql.Tx, couponID uuid.UUID, userID string) error {
	var current, limit, perUser, used int
	query := `
		SELECT current_usage, max_total_usage, max_usage_per_user,
		       (SELECT count(*) FROM coupon_usage WHERE coupon_id = $1 AND user_id = $2)
		FROM coupons WHERE id = $1
	`
	err := tx.QueryRowContext(ctx, query, couponID, userID).Scan(&current, &limit, &perUser, &used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrCouponNotFound
		}
		return fmt.Errorf("read usage: %w", err)
	}
	if limit > 0 && current >= limit {
		return models.ErrUsageCapReached
	}
	if perUser > 0 && used >= perUser {
		return models.ErrUserCapReached
	}
	return models.ErrUsageConflict
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func usageByUser(ctx context.Context, q queryer, userID string, couponIDs []uuid.UUID) (map[uuid.UUID][]models.UsageEntry, error) {
	out := make(map[uuid.UUID][]models.UsageEntry, len(couponIDs))
	if len(couponIDs) == 0 || userID == "" {
		return out, nil
	}
	ids := make([]string, 0, len(couponIDs))
	for _, id := range couponIDs {
		ids = append(ids, id.String())
	}

	query := `
		SELECT id, coupon_id, user_id, order_id, cart_id, discount_amount, order_amount_before,
		       order_amount_after, savings, used_at, device, location, payment_method, delivery_type
		FROM coupon_usage
		WHERE user_id = $1 AND coupon_id = ANY($2::uuid[])
		ORDER BY used_at
	`
	rows, err := q.QueryContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                models.UsageEntry
			device, location []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.CouponID,
			&e.UserID,
			&e.OrderID,
			&e.CartID,
			&e.DiscountAmount,
			&e.OrderAmountBefore,
			&e.OrderAmountAfter,
			&e.Savings,
			&e.UsedAt,
			&device,
			&location,
			&e.PaymentMethod,
			&e.DeliveryType,
		); err != nil {
			return nil, err
		}
		if len(device) > 0 {
			if err := json.Unmarshal(device, &e.Device); err != nil {
				return nil, fmt.Errorf("decode device: %w", err)
			}
		}
		if len(location) > 0 {
			if err := json.Unmarshal(location, &e.Location); err != nil {
				return nil, fmt.Errorf("decode location: %w", err)
			}
		}
		out[e.CouponID] = append(out[e.CouponID], e)
	}
	return out, rows.Err()
}
