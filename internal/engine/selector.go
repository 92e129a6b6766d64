package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

// Candidate is a coupon that passed evaluation together with its price.
type Candidate struct {
	Coupon   *models.Coupon
	Discount models.DiscountResult
}

// Applied is one step of a selection, priced against the amounts left
// by the steps before it.
type Applied struct {
	Coupon            *models.Coupon
	Discount          models.DiscountResult
	OrderAmountBefore decimal.Decimal
}

// Selection is the outcome of picking coupons for an order.
type Selection struct {
	Applied           []Applied
	Total             decimal.Decimal
	NetOrderAmount    decimal.Decimal
	NetDeliveryCharge decimal.Decimal
	Stacked           bool
}

// Applicable evaluates every coupon and prices the ones that pass.
func Applicable(coupons []*models.Coupon, ec models.EvaluationContext, in models.CalcInput) []Candidate {
	var out []Candidate
	for _, c := range coupons {
		if v := Evaluate(c, ec); !v.Valid {
			continue
		}
		out = append(out, Candidate{Coupon: c, Discount: Calculate(c, in)})
	}
	return out
}

// Better orders candidates: larger discount, then higher priority, then
// the one expiring sooner. Code breaks any remaining tie.
func Better(a, b Candidate) bool {
	if cmp := a.Discount.Amount.Cmp(b.Discount.Amount); cmp != 0 {
		return cmp > 0
	}
	if a.Coupon.Priority != b.Coupon.Priority {
		return a.Coupon.Priority > b.Coupon.Priority
	}
	if !a.Coupon.EndDate.Equal(b.Coupon.EndDate) {
		return a.Coupon.EndDate.Before(b.Coupon.EndDate)
	}
	return a.Coupon.Code < b.Coupon.Code
}

// SelectBest picks the coupon giving the largest discount. When the
// winner is stackable, every stackable coupon is combined and the stack
// is used if it gives at least as much. Returns nil if nothing applies.
func SelectBest(coupons []*models.Coupon, ec models.EvaluationContext, in models.CalcInput) *Selection {
	var best *Candidate
	var stackable []*models.Coupon
	for _, cand := range Applicable(coupons, ec, in) {
		if cand.Discount.RequiresLineItems || !cand.Discount.Amount.IsPositive() {
			continue
		}
		if cand.Coupon.IsStackable {
			stackable = append(stackable, cand.Coupon)
		}
		if best == nil || Better(cand, *best) {
			cand := cand
			best = &cand
		}
	}
	if best == nil {
		return nil
	}

	single := single(*best, in)
	if !best.Coupon.IsStackable || len(stackable) < 2 {
		return single
	}
	stack := BuildStack(stackable, ec, in)
	if len(stack.Applied) > 1 && stack.Total.GreaterThanOrEqual(single.Total) {
		return stack
	}
	return single
}

func single(c Candidate, in models.CalcInput) *Selection {
	sel := &Selection{
		NetOrderAmount:    in.OrderAmount,
		NetDeliveryCharge: in.DeliveryCharge,
		Total:             decimal.Zero,
	}
	sel.apply(c.Coupon, c.Discount)
	return sel
}

// BuildStack applies stackable coupons in ascending priority. Each one
// is re-evaluated and priced against the amounts left after the ones
// before it; coupons that no longer pass or give nothing are skipped.
func BuildStack(coupons []*models.Coupon, ec models.EvaluationContext, in models.CalcInput) *Selection {
	ordered := make([]*models.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.IsStackable {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].Code < ordered[j].Code
	})

	sel := &Selection{
		NetOrderAmount:    in.OrderAmount,
		NetDeliveryCharge: in.DeliveryCharge,
		Total:             decimal.Zero,
		Stacked:           true,
	}
	for _, c := range ordered {
		ctx := ec
		ctx.OrderAmount = sel.NetOrderAmount
		if v := Evaluate(c, ctx); !v.Valid {
			continue
		}
		res := Calculate(c, models.CalcInput{
			OrderAmount:    sel.NetOrderAmount,
			DeliveryCharge: sel.NetDeliveryCharge,
			CartItems:      scaleLines(in.CartItems, sel.NetOrderAmount, in.OrderAmount),
		})
		if res.RequiresLineItems || !res.Amount.IsPositive() {
			continue
		}
		sel.apply(c, res)
	}
	return sel
}

// scaleLines shrinks line prices by net/orig so line-based coupons later
// in a stack see what earlier ones left of each line.
func scaleLines(items []models.CartItem, net, orig decimal.Decimal) []models.CartItem {
	if !orig.IsPositive() || net.GreaterThanOrEqual(orig) {
		return items
	}
	out := make([]models.CartItem, len(items))
	for i, it := range items {
		it.Price = it.Price.Mul(net).Div(orig)
		out[i] = it
	}
	return out
}

// apply records a discount and deducts it from the net amounts.
// Cashback is credited later so it leaves the net amounts alone.
func (s *Selection) apply(c *models.Coupon, res models.DiscountResult) {
	before := s.NetOrderAmount
	if !res.Cashback {
		res.Amount = s.deduct(c, res.Amount)
	}
	s.Applied = append(s.Applied, Applied{Coupon: c, Discount: res, OrderAmountBefore: before})
	s.Total = s.Total.Add(res.Amount)
}

func (s *Selection) deduct(c *models.Coupon, amount decimal.Decimal) decimal.Decimal {
	switch {
	case c.Type == models.TypeFreeDelivery || c.DiscountOn == models.OnDelivery:
		amount = decimal.Min(amount, s.NetDeliveryCharge)
		s.NetDeliveryCharge = s.NetDeliveryCharge.Sub(amount)
	case c.DiscountOn == models.OnTotal:
		amount = decimal.Min(amount, s.NetOrderAmount.Add(s.NetDeliveryCharge))
		fromOrder := decimal.Min(amount, s.NetOrderAmount)
		s.NetOrderAmount = s.NetOrderAmount.Sub(fromOrder)
		s.NetDeliveryCharge = s.NetDeliveryCharge.Sub(amount.Sub(fromOrder))
	default:
		amount = decimal.Min(amount, s.NetOrderAmount)
		s.NetOrderAmount = s.NetOrderAmount.Sub(amount)
	}
	return amount
}
