package engine

import (
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Calculate prices a coupon against the given amounts. The result is
// never negative and never larger than the base it discounts.
func Calculate(c *models.Coupon, in models.CalcInput) models.DiscountResult {
	base := Base(c, in)

	var amount decimal.Decimal
	switch c.Type {
	case models.TypePercentage:
		amount = percentOf(c, base)
	case models.TypeFixed:
		amount = c.DiscountValue
	case models.TypeFreeDelivery:
		// waives the delivery charge whatever discount_on says
		base = money(in.DeliveryCharge)
		amount = base
	case models.TypeCashback:
		if c.CashbackMode == models.CashbackPercentage {
			amount = percentOf(c, base)
		} else {
			amount = c.DiscountValue
		}
		return models.DiscountResult{Amount: clamp(amount, base), Cashback: true}
	case models.TypeBuyXGetY:
		return models.DiscountResult{Amount: decimal.Zero, RequiresLineItems: true}
	default:
		return models.DiscountResult{Amount: decimal.Zero}
	}
	return models.DiscountResult{Amount: clamp(amount, base)}
}

// Base returns the amount a coupon's discount_on selects, rounded to
// currency precision.
func Base(c *models.Coupon, in models.CalcInput) decimal.Decimal {
	switch c.DiscountOn {
	case models.OnDelivery:
		return money(in.DeliveryCharge)
	case models.OnTotal:
		return money(in.OrderAmount.Add(in.DeliveryCharge))
	case models.OnCategory, models.OnProduct:
		return money(eligibleLines(c.Restrictions, in.CartItems))
	default:
		return money(in.OrderAmount)
	}
}

func percentOf(c *models.Coupon, base decimal.Decimal) decimal.Decimal {
	amount := base.Mul(c.DiscountValue).Div(hundred)
	if c.MaxDiscountAmount != nil && amount.GreaterThan(*c.MaxDiscountAmount) {
		amount = *c.MaxDiscountAmount
	}
	return amount
}

func eligibleLines(r models.UsageRestrictions, items []models.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if allowed(r, it) && !excluded(r, it) {
			sum = sum.Add(it.LineTotal())
		}
	}
	return sum
}

// clamp bounds amount to [0, base] and rounds it.
func clamp(amount, base decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() || base.IsNegative() {
		return decimal.Zero
	}
	amount = money(amount)
	if amount.GreaterThan(base) {
		return base
	}
	return amount
}

// money rounds half-up to two places. Round rounds half away from zero,
// which is half-up for the non-negative amounts used here.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
