// Package engine holds the coupon rules: eligibility, discount
// calculation, best-coupon selection and usage recording.
//
// Evaluate, Calculate and the selectors are pure functions of their
// arguments and are safe for concurrent use.
package engine

import (
	"github.com/Cheertaboi/coupon-service/internal/models"
)

// Evaluate runs the eligibility checks in a fixed order and reports the
// first one that fails.
func Evaluate(c *models.Coupon, ec models.EvaluationContext) models.Verdict {
	for _, check := range checks {
		if reason := check(c, ec); reason != models.ReasonOK {
			return models.Verdict{Valid: false, Reason: reason}
		}
	}
	return models.Verdict{Valid: true}
}

type check func(*models.Coupon, models.EvaluationContext) models.Reason

// Order matters: callers rely on the first failing rule being reported.
var checks = []check{
	checkStatus,
	checkDateWindow,
	checkTimeOfDay,
	checkDayOfWeek,
	checkTotalUsage,
	checkUserUsage,
	checkFirstOrder,
	checkUserType,
	checkOrderAmount,
	checkLocation,
	checkCartItems,
}

func checkStatus(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	if !c.IsActive {
		return models.ReasonInactive
	}
	switch c.Status {
	case models.StatusActive:
		return models.ReasonOK
	case models.StatusScheduled:
		// scheduled coupons go live on their own once the start date passes
		if ec.Now.Before(c.StartDate) {
			return models.ReasonNotStarted
		}
		return models.ReasonOK
	case models.StatusExpired:
		return models.ReasonExpired
	default:
		return models.ReasonInactive
	}
}

func checkDateWindow(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	if ec.Now.Before(c.StartDate) {
		return models.ReasonNotStarted
	}
	if ec.Now.After(c.EndDate) {
		return models.ReasonExpired
	}
	return models.ReasonOK
}

func checkTimeOfDay(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	tw := c.Restrictions.TimeRestrictions
	if tw == nil {
		return models.ReasonOK
	}
	ok, err := tw.Contains(ec.Now)
	if err != nil {
		return models.ReasonMisconfigured
	}
	if !ok {
		return models.ReasonOutsideTimeWindow
	}
	return models.ReasonOK
}

func checkDayOfWeek(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	days := c.Restrictions.DayOfWeekRestrictions
	if len(days) == 0 {
		return models.ReasonOK
	}
	today := int(ec.Now.Weekday())
	for _, d := range days {
		if d == today {
			return models.ReasonOK
		}
	}
	return models.ReasonDayNotAllowed
}

func checkTotalUsage(c *models.Coupon, _ models.EvaluationContext) models.Reason {
	if c.Restrictions.CapReached() {
		return models.ReasonUsageLimitReached
	}
	return models.ReasonOK
}

func checkUserUsage(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	if c.UserCapReached(ec.UserID) {
		return models.ReasonUserLimitReached
	}
	return models.ReasonOK
}

func checkFirstOrder(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	if c.Restrictions.FirstTimeUsersOnly && !ec.IsFirstOrder {
		return models.ReasonFirstOrderOnly
	}
	return models.ReasonOK
}

func checkUserType(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	r := c.Restrictions
	if r.PremiumUsersOnly && ec.UserType != models.UserPremium && ec.UserType != models.UserVIP {
		return models.ReasonUserTypeNotAllowed
	}
	if len(r.ApplicableUserTypes) == 0 {
		return models.ReasonOK
	}
	for _, ut := range r.ApplicableUserTypes {
		if ut == ec.UserType {
			return models.ReasonOK
		}
	}
	return models.ReasonUserTypeNotAllowed
}

func checkOrderAmount(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	r := c.Restrictions
	if ec.OrderAmount.LessThan(r.MinOrderAmount) {
		return models.ReasonMinOrderNotMet
	}
	if r.MaxOrderAmount != nil && ec.OrderAmount.GreaterThan(*r.MaxOrderAmount) {
		return models.ReasonMaxOrderExceeded
	}
	return models.ReasonOK
}

func checkLocation(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	locs := c.Restrictions.ApplicableLocations
	if len(locs) == 0 {
		return models.ReasonOK
	}
	if contains(locs, ec.Location.Pincode) {
		return models.ReasonOK
	}
	return models.ReasonLocationNotAllowed
}

func checkCartItems(c *models.Coupon, ec models.EvaluationContext) models.Reason {
	r := c.Restrictions
	if len(r.ApplicableProducts) > 0 || len(r.ApplicableCategories) > 0 {
		matched := false
		for _, it := range ec.CartItems {
			if allowed(r, it) {
				matched = true
				break
			}
		}
		if !matched {
			return models.ReasonNoApplicableItems
		}
	}
	if len(r.ExcludedProducts) > 0 || len(r.ExcludedCategories) > 0 {
		for _, it := range ec.CartItems {
			if excluded(r, it) {
				return models.ReasonExcludedItems
			}
		}
	}
	return models.ReasonOK
}

// allowed reports whether the item matches the allow lists. Both lists
// empty means every item is allowed.
func allowed(r models.UsageRestrictions, it models.CartItem) bool {
	if len(r.ApplicableProducts) == 0 && len(r.ApplicableCategories) == 0 {
		return true
	}
	return contains(r.ApplicableProducts, it.ProductID) || contains(r.ApplicableCategories, it.CategoryID)
}

func excluded(r models.UsageRestrictions, it models.CartItem) bool {
	return contains(r.ExcludedProducts, it.ProductID) || contains(r.ExcludedCategories, it.CategoryID)
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
