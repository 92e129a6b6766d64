package engine

import (
	"time"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

// NextStatus returns the status c should have at now and whether it
// differs from the stored one. Only the automatic transitions are made
// here: scheduled to active at the start date, and active to expired at
// the end date or when the usage cap is reached. Draft and inactive are
// left for an administrator to change.
func NextStatus(c *models.Coupon, now time.Time) (models.Status, bool) {
	next := c.Status
	if c.Status == models.StatusScheduled && !now.Before(c.StartDate) {
		next = models.StatusActive
	}
	if next == models.StatusActive && (now.After(c.EndDate) || c.Restrictions.CapReached()) {
		next = models.StatusExpired
	}
	return next, next != c.Status
}
