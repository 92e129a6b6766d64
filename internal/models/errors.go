package models

import "errors"

var (
	ErrCouponNotFound = errors.New("coupon_not_found")
	ErrCouponExists   = errors.New("coupon_already_exists")
	ErrInvalidCoupon  = errors.New("invalid_coupon")

	// ErrDuplicateRedemption means the order id is already in the ledger.
	ErrDuplicateRedemption = errors.New("duplicate_redemption")
	// ErrUsageCapReached means max_total_usage was hit before the increment.
	ErrUsageCapReached = errors.New("usage_cap_reached")
	// ErrUserCapReached means the user already has max_usage_per_user
	// entries in the ledger.
	ErrUserCapReached = errors.New("user_cap_reached")
	// ErrUsageConflict is returned by a store when the expected usage
	// counter no longer matches.
	ErrUsageConflict = errors.New("usage_conflict")
	// ErrContentionExhausted means the recorder gave up after its retry budget.
	ErrContentionExhausted = errors.New("redemption_contention")
)

var (
	// ErrMissingOrderID is returned when a redemption carries no idempotency key.
	ErrMissingOrderID = errors.New("order_id_required")
	// ErrMissingUserID is returned when a redemption names no user, so the
	// per-user cap could not be checked.
	ErrMissingUserID = errors.New("user_id_required")
)
