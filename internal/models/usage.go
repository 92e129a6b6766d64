package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageEntry is one redemption in the coupon ledger. Entries are never
// updated once written.
type UsageEntry struct {
	ID                uuid.UUID       `json:"id"`
	CouponID          uuid.UUID       `json:"coupon_id"`
	UserID            string          `json:"user_id"`
	OrderID           string          `json:"order_id,omitempty"`
	CartID            string          `json:"cart_id,omitempty"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	OrderAmountBefore decimal.Decimal `json:"order_amount_before"`
	OrderAmountAfter  decimal.Decimal `json:"order_amount_after"`
	Savings           decimal.Decimal `json:"savings"`
	UsedAt            time.Time       `json:"used_at"`
	Device            Device          `json:"device"`
	Location          Location        `json:"location"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	DeliveryType      string          `json:"delivery_type,omitempty"`
}

// WithUsage returns a copy of c with entry appended and the usage counter
// incremented. An active coupon that reaches its cap becomes expired.
func (c *Coupon) WithUsage(entry UsageEntry) *Coupon {
	out := c.Clone()
	out.Restrictions.CurrentUsage++
	out.UsageHistory = append(out.UsageHistory, entry)
	if out.Status == StatusActive && out.Restrictions.CapReached() {
		out.Status = StatusExpired
	}
	out.UpdatedAt = entry.UsedAt
	return out
}
