package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Reason identifies the eligibility rule that rejected a coupon.
type Reason string

const (
	ReasonOK                 Reason = ""
	ReasonInactive           Reason = "coupon_inactive"
	ReasonNotStarted         Reason = "coupon_not_started"
	ReasonExpired            Reason = "coupon_expired"
	ReasonOutsideTimeWindow  Reason = "outside_time_window"
	ReasonDayNotAllowed      Reason = "day_not_allowed"
	ReasonUsageLimitReached  Reason = "usage_limit_reached"
	ReasonUserLimitReached   Reason = "user_limit_reached"
	ReasonFirstOrderOnly     Reason = "first_order_only"
	ReasonUserTypeNotAllowed Reason = "user_type_not_eligible"
	ReasonMinOrderNotMet     Reason = "min_order_value_not_met"
	ReasonMaxOrderExceeded   Reason = "max_order_value_exceeded"
	ReasonLocationNotAllowed Reason = "location_not_eligible"
	ReasonNoApplicableItems  Reason = "no_applicable_items"
	ReasonExcludedItems      Reason = "excluded_items_in_cart"
	ReasonMisconfigured      Reason = "coupon_misconfigured"
	ReasonNotFound           Reason = "coupon_not_found"
	ReasonRequiresLineItems  Reason = "requires_line_item_evaluation"
)

var reasonMessages = map[Reason]string{
	ReasonInactive:           "Coupon is not active",
	ReasonNotStarted:         "Coupon is not active yet",
	ReasonExpired:            "Coupon has expired",
	ReasonOutsideTimeWindow:  "Coupon is not valid at this time of day",
	ReasonDayNotAllowed:      "Coupon is not valid on this day",
	ReasonUsageLimitReached:  "Coupon usage limit reached",
	ReasonUserLimitReached:   "You have already used this coupon the maximum number of times",
	ReasonFirstOrderOnly:     "Coupon is valid on first order only",
	ReasonUserTypeNotAllowed: "Coupon is not available for your account",
	ReasonMinOrderNotMet:     "Minimum order amount not met",
	ReasonMaxOrderExceeded:   "Order amount exceeds the coupon limit",
	ReasonLocationNotAllowed: "Coupon is not valid for your delivery location",
	ReasonNoApplicableItems:  "No items in cart are eligible for this coupon",
	ReasonExcludedItems:      "Cart contains items excluded from this coupon",
	ReasonMisconfigured:      "Coupon cannot be applied",
	ReasonNotFound:           "Coupon not found",
	ReasonRequiresLineItems:  "Coupon is priced at checkout from the cart lines",
}

// Message is the user-facing text for r.
func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

// Verdict is the result of evaluating a coupon against a context.
type Verdict struct {
	Valid  bool   `json:"is_valid"`
	Reason Reason `json:"reason,omitempty"`
}

func (v Verdict) Message() string {
	if v.Valid {
		return "coupon_applicable"
	}
	return v.Reason.Message()
}

// DiscountResult is what the calculator produced for one coupon.
type DiscountResult struct {
	Amount decimal.Decimal `json:"amount"`
	// RequiresLineItems is set for types the generic calculator cannot price.
	RequiresLineItems bool `json:"requires_line_items,omitempty"`
	// Cashback amounts are credited after the order, not deducted.
	Cashback bool `json:"cashback,omitempty"`
}

type ValidationRequest struct {
	CouponCode     string
	Context        EvaluationContext
	DeliveryCharge decimal.Decimal
}

type ValidationResponse struct {
	IsValid  bool            `json:"is_valid"`
	Code     string          `json:"coupon_code"`
	Discount decimal.Decimal `json:"discount"`
	Cashback bool            `json:"cashback,omitempty"`
	Reason   Reason          `json:"reason,omitempty"`
	Message  string          `json:"message"`
}

// FieldError is one rejected field of a coupon definition.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every problem with a coupon definition.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid coupon: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrInvalidCoupon }

var (
	codePattern    = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
	hundred        = decimal.NewFromInt(100)
)

// NormalizeCode trims and uppercases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCoupon checks a coupon definition before it is stored.
// It returns nil or a ValidationErrors.
func ValidateCoupon(c *Coupon) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !codePattern.MatchString(c.Code) {
		add("code", "must be 3-20 uppercase letters or digits")
	}
	if !c.Type.Valid() {
		add("type", "unknown type %q", c.Type)
	}
	if !c.DiscountOn.Valid() {
		add("discount_on", "unknown value %q", c.DiscountOn)
	}
	if !c.Target.Valid() {
		add("target", "unknown value %q", c.Target)
	}
	if !c.Trigger.Valid() {
		add("trigger", "unknown value %q", c.Trigger)
	}
	if !c.Status.Valid() {
		add("status", "unknown status %q", c.Status)
	}
	if c.Type == TypeCashback && c.CashbackMode != "" &&
		c.CashbackMode != CashbackFixed && c.CashbackMode != CashbackPercentage {
		add("cashback_mode", "unknown mode %q", c.CashbackMode)
	}

	if c.DiscountValue.IsNegative() {
		add("discount_value", "must not be negative")
	}
	if c.isPercentage() && c.DiscountValue.GreaterThan(hundred) {
		add("discount_value", "percentage must be between 0 and 100")
	}
	if c.MaxDiscountAmount != nil && c.MaxDiscountAmount.IsNegative() {
		add("max_discount_amount", "must not be negative")
	}

	if c.StartDate.IsZero() {
		add("start_date", "required")
	}
	if c.EndDate.IsZero() {
		add("end_date", "required")
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && !c.EndDate.After(c.StartDate) {
		add("end_date", "must be after start_date")
	}

	r := c.Restrictions
	if r.MinOrderAmount.IsNegative() {
		add("usage_restrictions.min_order_amount", "must not be negative")
	}
	if r.MaxOrderAmount != nil && r.MaxOrderAmount.LessThan(r.MinOrderAmount) {
		add("usage_restrictions.max_order_amount", "must not be below min_order_amount")
	}
	if r.MaxUsagePerUser < 0 {
		add("usage_restrictions.max_usage_per_user", "must not be negative")
	}
	if r.MaxTotalUsage < 0 {
		add("usage_restrictions.max_total_usage", "must not be negative")
	}
	if r.CurrentUsage < 0 || (r.MaxTotalUsage > 0 && r.CurrentUsage > r.MaxTotalUsage) {
		add("usage_restrictions.current_usage", "must be between 0 and max_total_usage")
	}
	for _, ut := range r.ApplicableUserTypes {
		if !ut.Valid() {
			add("usage_restrictions.applicable_user_types", "unknown user type %q", ut)
		}
	}
	for _, p := range r.ApplicableLocations {
		if !pincodePattern.MatchString(p) {
			add("usage_restrictions.applicable_locations", "pincode %q must be 6 digits", p)
		}
	}
	for _, d := range r.DayOfWeekRestrictions {
		if d < 0 || d > 6 {
			add("usage_restrictions.day_of_week_restrictions", "day %d outside 0-6", d)
		}
	}
	if tw := r.TimeRestrictions; tw != nil {
		if _, err := ParseClock(tw.Start); err != nil {
			add("usage_restrictions.time_restrictions.start_time", "%v", err)
		}
		if _, err := ParseClock(tw.End); err != nil {
			add("usage_restrictions.time_restrictions.end_time", "%v", err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (c *Coupon) isPercentage() bool {
	return c.Type == TypePercentage || (c.Type == TypeCashback && c.CashbackMode == CashbackPercentage)
}
