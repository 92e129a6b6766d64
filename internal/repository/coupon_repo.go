package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

const couponColumns = `
	id, code, title, description, type, discount_on, target, trigger_type, cashback_mode,
	discount_value, max_discount_amount, start_date, end_date, status,
	is_stackable, auto_apply, requires_code, is_active, priority, display,
	min_order_amount, max_order_amount, max_usage_per_user, max_total_usage, current_usage,
	applicable_products, applicable_categories, excluded_products, excluded_categories,
	applicable_user_types, first_time_users_only, premium_users_only,
	applicable_locations, day_of_week_restrictions, time_start, time_end,
	created_by, created_at, updated_at`

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo {
	return &CouponRepo{db: db}
}

func (r *CouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	display, err := json.Marshal(c.Display)
	if err != nil {
		return fmt.Errorf("encode display: %w", err)
	}
	rs := c.Restrictions
	var timeStart, timeEnd sql.NullString
	if rs.TimeRestrictions != nil {
		timeStart = sql.NullString{String: rs.TimeRestrictions.Start, Valid: true}
		timeEnd = sql.NullString{String: rs.TimeRestrictions.End, Valid: true}
	}

	query := `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
		        $21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38,$39)
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID,
		c.Code,
		c.Title,
		c.Description,
		string(c.Type),
		string(c.DiscountOn),
		string(c.Target),
		string(c.Trigger),
		string(c.CashbackMode),
		c.DiscountValue,
		nullDecimal(c.MaxDiscountAmount),
		c.StartDate,
		c.EndDate,
		string(c.Status),
		c.IsStackable,
		c.AutoApply,
		c.RequiresCode,
		c.IsActive,
		c.Priority,
		display,
		rs.MinOrderAmount,
		nullDecimal(rs.MaxOrderAmount),
		rs.MaxUsagePerUser,
		rs.MaxTotalUsage,
		rs.CurrentUsage,
		pq.Array(nonNil(rs.ApplicableProducts)),
		pq.Array(nonNil(rs.ApplicableCategories)),
		pq.Array(nonNil(rs.ExcludedProducts)),
		pq.Array(nonNil(rs.ExcludedCategories)),
		pq.Array(userTypesToStrings(rs.ApplicableUserTypes)),
		rs.FirstTimeUsersOnly,
		rs.PremiumUsersOnly,
		pq.Array(nonNil(rs.ApplicableLocations)),
		pq.Array(daysToInt64(rs.DayOfWeekRestrictions)),
		timeStart,
		timeEnd,
		c.CreatedBy,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	return r.getOne(ctx, query, code)
}

func (r *CouponRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// Snapshot loads a coupon together with userID's ledger entries.
func (r *CouponRepo) Snapshot(ctx context.Context, id uuid.UUID, userID string) (*models.Coupon, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := usageByUser(ctx, r.db, userID, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	c.UsageHistory = entries[id]
	return c, nil
}

// ListLive returns enabled coupons that are active or scheduled.
func (r *CouponRepo) ListLive(ctx context.Context) ([]*models.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE is_active AND status IN ('active', 'scheduled')
		ORDER BY priority DESC, code
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var out []*models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatus moves a coupon from one status to another. It returns
// models.ErrCouponNotFound when the coupon is missing or no longer in from.
func (r *CouponRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.Status) error {
	query := `UPDATE coupons SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n == 0 {
		return models.ErrCouponNotFound
	}
	return nil
}

func (r *CouponRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.Coupon, error) {
	c, err := scanCoupon(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCouponNotFound
		}
		return nil, err
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	var (
		c                     models.Coupon
		typ, on, target, trig string
		cashback, status      string
		maxDiscount, maxOrder decimal.NullDecimal
		display               []byte
		products, categories  pq.StringArray
		exProducts, exCats    pq.StringArray
		userTypes, locations  pq.StringArray
		days                  pq.Int64Array
		timeStart, timeEnd    sql.NullString
	)
	rs := &c.Restrictions
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Title,
		&c.Description,
		&typ,
		&on,
		&target,
		&trig,
		&cashback,
		&c.DiscountValue,
		&maxDiscount,
		&c.StartDate,
		&c.EndDate,
		&status,
		&c.IsStackable,
		&c.AutoApply,
		&c.RequiresCode,
		&c.IsActive,
		&c.Priority,
		&display,
		&rs.MinOrderAmount,
		&maxOrder,
		&rs.MaxUsagePerUser,
		&rs.MaxTotalUsage,
		&rs.CurrentUsage,
		&products,
		&categories,
		&exProducts,
		&exCats,
		&userTypes,
		&rs.FirstTimeUsersOnly,
		&rs.PremiumUsersOnly,
		&locations,
		&days,
		&timeStart,
		&timeEnd,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Type = models.CouponType(typ)
	c.DiscountOn = models.DiscountOn(on)
	c.Target = models.Target(target)
	c.Trigger = models.Trigger(trig)
	c.CashbackMode = models.CashbackMode(cashback)
	c.Status = models.Status(status)
	c.MaxDiscountAmount = decimalPtr(maxDiscount)
	rs.MaxOrderAmount = decimalPtr(maxOrder)
	if len(display) > 0 {
		if err := json.Unmarshal(display, &c.Display); err != nil {
			return nil, fmt.Errorf("decode display: %w", err)
		}
	}
	rs.ApplicableProducts = emptyToNil(products)
	rs.ApplicableCategories = emptyToNil(categories)
	rs.ExcludedProducts = emptyToNil(exProducts)
	rs.ExcludedCategories = emptyToNil(exCats)
	rs.ApplicableLocations = emptyToNil(locations)
	for _, ut := range userTypes {
		rs.ApplicableUserTypes = append(rs.ApplicableUserTypes, models.UserType(ut))
	}
	for _, d := range days {
		rs.DayOfWeekRestrictions = append(rs.DayOfWeekRestrictions, int(d))
	}
	if timeStart.Valid && timeEnd.Valid {
		rs.TimeRestrictions = &models.TimeWindow{Start: timeStart.String, End: timeEnd.String}
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyToNil(s pq.StringArray) []string {
	if len(s) == 0 {
		return nil
	}
	return []string(s)
}

func userTypesToStrings(in []models.UserType) []string {
	out := make([]string, 0, len(in))
	for _, ut := range in {
		out = append(out, string(ut))
	}
	return out
}

func daysToInt64(in []int) []int64 {
	out := make([]int64, 0, len(in))
	for _, d := range in {
		out = append(out, int64(d))
	}
	return out
}
