package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApplicableRequest struct {
	Context        EvaluationContext
	DeliveryCharge decimal.Decimal
}

// ApplicableCoupon is a coupon that passed evaluation for a cart.
type ApplicableCoupon struct {
	Code              string          `json:"coupon_code"`
	Title             string          `json:"title"`
	Type              CouponType      `json:"type"`
	Discount          decimal.Decimal `json:"discount"`
	Cashback          bool            `json:"cashback,omitempty"`
	RequiresLineItems bool            `json:"requires_line_items,omitempty"`
	IsStackable       bool            `json:"is_stackable"`
	AutoApply         bool            `json:"auto_apply"`
	Priority          int             `json:"priority"`
	EndDate           time.Time       `json:"end_date"`
	Display           Display         `json:"display"`
}

type AppliedCoupon struct {
	Code              string          `json:"coupon_code"`
	Discount          decimal.Decimal `json:"discount"`
	Cashback          bool            `json:"cashback,omitempty"`
	OrderAmountBefore decimal.Decimal `json:"order_amount_before"`
}

// BestSelection is the coupon (or stack of coupons) giving the largest discount.
type BestSelection struct {
	Found             bool            `json:"found"`
	Stacked           bool            `json:"stacked"`
	Coupons           []AppliedCoupon `json:"coupons"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
	NetOrderAmount    decimal.Decimal `json:"net_order_amount"`
	NetDeliveryCharge decimal.Decimal `json:"net_delivery_charge"`
}

// RedeemRequest is sent by checkout after payment is confirmed. OrderID
// is the idempotency key.
type RedeemRequest struct {
	CouponCode     string
	Context        EvaluationContext
	DeliveryCharge decimal.Decimal
	OrderID        string
	CartID         string
	PaymentMethod  string
	DeliveryType   string
}

type RedeemResponse struct {
	Redeemed     bool            `json:"redeemed"`
	Code         string          `json:"coupon_code"`
	Discount     decimal.Decimal `json:"discount"`
	Cashback     bool            `json:"cashback,omitempty"`
	Reason       Reason          `json:"reason,omitempty"`
	Message      string          `json:"message"`
	CurrentUsage int             `json:"current_usage"`
	Status       Status          `json:"status,omitempty"`
	Entry        *UsageEntry     `json:"entry,omitempty"`
}
