package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID  string          `json:"product_id"`
	CategoryID string          `json:"category_id"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// LineTotal is price times quantity.
func (it CartItem) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type UserType string

const (
	UserNew     UserType = "new"
	UserRegular UserType = "regular"
	UserPremium UserType = "premium"
	UserVIP     UserType = "vip"
)

func (u UserType) Valid() bool {
	switch u {
	case UserNew, UserRegular, UserPremium, UserVIP:
		return true
	}
	return false
}

type Location struct {
	Pincode   string  `json:"pincode"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

type Device struct {
	Type       string `json:"type,omitempty"`
	OS         string `json:"os,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
}

// EvaluationContext is everything the evaluator looks at besides the coupon.
type EvaluationContext struct {
	UserID              string          `json:"user_id"`
	OrderAmount         decimal.Decimal `json:"order_amount"`
	OriginalOrderAmount decimal.Decimal `json:"original_order_amount"`
	CartItems           []CartItem      `json:"cart_items"`
	Location            Location        `json:"location"`
	Now                 time.Time       `json:"timestamp"`
	UserType            UserType        `json:"user_type"`
	IsFirstOrder        bool            `json:"is_first_order"`
	Device              Device          `json:"device"`
}

// CalcInput carries the amounts a discount is computed against.
type CalcInput struct {
	OrderAmount    decimal.Decimal
	DeliveryCharge decimal.Decimal
	CartItems      []CartItem
}
