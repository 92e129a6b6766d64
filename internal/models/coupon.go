package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CouponType string

const (
	TypePercentage   CouponType = "percentage"
	TypeFixed        CouponType = "fixed"
	TypeBuyXGetY     CouponType = "buy_x_get_y"
	TypeFreeDelivery CouponType = "free_delivery"
	TypeCashback     CouponType = "cashback"
)

func (t CouponType) Valid() bool {
	switch t {
	case TypePercentage, TypeFixed, TypeBuyXGetY, TypeFreeDelivery, TypeCashback:
		return true
	}
	return false
}

type DiscountOn string

const (
	OnSubtotal DiscountOn = "subtotal"
	OnDelivery DiscountOn = "delivery"
	OnTotal    DiscountOn = "total"
	OnCategory DiscountOn = "category"
	OnProduct  DiscountOn = "product"
)

func (d DiscountOn) Valid() bool {
	switch d {
	case OnSubtotal, OnDelivery, OnTotal, OnCategory, OnProduct:
		return true
	}
	return false
}

type Target string

const (
	TargetAll       Target = "all"
	TargetCategory  Target = "category"
	TargetProduct   Target = "product"
	TargetUser      Target = "user"
	TargetFirstTime Target = "first_time"
	TargetPremium   Target = "premium"
	TargetLocation  Target = "location"
)

func (t Target) Valid() bool {
	switch t {
	case TargetAll, TargetCategory, TargetProduct, TargetUser, TargetFirstTime, TargetPremium, TargetLocation:
		return true
	}
	return false
}

type Trigger string

const (
	TriggerManual        Trigger = "manual"
	TriggerAuto          Trigger = "auto"
	TriggerCartValue     Trigger = "cart_value"
	TriggerFirstOrder    Trigger = "first_order"
	TriggerLocationBased Trigger = "location_based"
)

func (t Trigger) Valid() bool {
	switch t {
	case TriggerManual, TriggerAuto, TriggerCartValue, TriggerFirstOrder, TriggerLocationBased:
		return true
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusExpired   Status = "expired"
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusExpired, StatusDraft, StatusScheduled:
		return true
	}
	return false
}

// CashbackMode picks the formula a cashback coupon reuses.
type CashbackMode string

const (
	CashbackFixed      CashbackMode = "fixed"
	CashbackPercentage CashbackMode = "percentage"
)

// Display is presentation metadata. It never affects eligibility.
type Display struct {
	BannerURL       string `json:"banner_url,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
	PromoText       string `json:"promo_text,omitempty"`
}

type Coupon struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`

	Type         CouponType   `json:"type"`
	DiscountOn   DiscountOn   `json:"discount_on"`
	Target       Target       `json:"target"`
	Trigger      Trigger      `json:"trigger"`
	CashbackMode CashbackMode `json:"cashback_mode,omitempty"`

	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	Status       Status `json:"status"`
	IsStackable  bool   `json:"is_stackable"`
	AutoApply    bool   `json:"auto_apply"`
	RequiresCode bool   `json:"requires_code"`
	IsActive     bool   `json:"is_active"`
	Priority     int    `json:"priority"`

	Display      Display           `json:"display"`
	Restrictions UsageRestrictions `json:"usage_restrictions"`

	// UsageHistory is the slice of the ledger loaded with this snapshot.
	// Repositories load at least the entries of the user being evaluated.
	UsageHistory []UsageEntry `json:"usage_history,omitempty"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsageRestrictions holds the eligibility rules of a coupon.
// Empty lists mean "allow all" for that dimension; zero caps mean unlimited.
type UsageRestrictions struct {
	MinOrderAmount decimal.Decimal  `json:"min_order_amount"`
	MaxOrderAmount *decimal.Decimal `json:"max_order_amount,omitempty"`

	MaxUsagePerUser int `json:"max_usage_per_user"`
	MaxTotalUsage   int `json:"max_total_usage"`
	CurrentUsage    int `json:"current_usage"`

	ApplicableProducts   []string `json:"applicable_products,omitempty"`
	ApplicableCategories []string `json:"applicable_categories,omitempty"`
	ExcludedProducts     []string `json:"excluded_products,omitempty"`
	ExcludedCategories   []string `json:"excluded_categories,omitempty"`

	ApplicableUserTypes []UserType `json:"applicable_user_types,omitempty"`
	FirstTimeUsersOnly  bool       `json:"first_time_users_only"`
	PremiumUsersOnly    bool       `json:"premium_users_only"`

	ApplicableLocations   []string    `json:"applicable_locations,omitempty"`
	DayOfWeekRestrictions []int       `json:"day_of_week_restrictions,omitempty"`
	TimeRestrictions      *TimeWindow `json:"time_restrictions,omitempty"`
}

// Clone returns a deep copy so callers can mutate lifecycle fields
// without touching a shared snapshot.
func (c *Coupon) Clone() *Coupon {
	if c == nil {
		return nil
	}
	cp := *c
	r := &cp.Restrictions
	r.ApplicableProducts = cloneStrings(c.Restrictions.ApplicableProducts)
	r.ApplicableCategories = cloneStrings(c.Restrictions.ApplicableCategories)
	r.ExcludedProducts = cloneStrings(c.Restrictions.ExcludedProducts)
	r.ExcludedCategories = cloneStrings(c.Restrictions.ExcludedCategories)
	r.ApplicableLocations = cloneStrings(c.Restrictions.ApplicableLocations)
	if c.Restrictions.ApplicableUserTypes != nil {
		r.ApplicableUserTypes = append([]UserType(nil), c.Restrictions.ApplicableUserTypes...)
	}
	if c.Restrictions.DayOfWeekRestrictions != nil {
		r.DayOfWeekRestrictions = append([]int(nil), c.Restrictions.DayOfWeekRestrictions...)
	}
	if c.Restrictions.TimeRestrictions != nil {
		tw := *c.Restrictions.TimeRestrictions
		r.TimeRestrictions = &tw
	}
	if c.UsageHistory != nil {
		cp.UsageHistory = append([]UsageEntry(nil), c.UsageHistory...)
	}
	return &cp
}

// UsageCountFor counts ledger entries of userID in the loaded history.
func (c *Coupon) UsageCountFor(userID string) int {
	n := 0
	for _, e := range c.UsageHistory {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

// HasOrder reports whether orderID was already redeemed against c.
func (c *Coupon) HasOrder(orderID string) bool {
	if orderID == "" {
		return false
	}
	for _, e := range c.UsageHistory {
		if e.OrderID == orderID {
			return true
		}
	}
	return false
}

// UserCapReached reports whether userID has used up its per-user allowance
// in the loaded history.
func (c *Coupon) UserCapReached(userID string) bool {
	limit := c.Restrictions.MaxUsagePerUser
	return limit > 0 && c.UsageCountFor(userID) >= limit
}

// CapReached reports whether the total usage cap has been hit.
func (r UsageRestrictions) CapReached() bool {
	return r.MaxTotalUsage > 0 && r.CurrentUsage >= r.MaxTotalUsage
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
