package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Cheertaboi/coupon-service/internal/engine"
	"github.com/Cheertaboi/coupon-service/internal/models"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *models.Coupon)
		want    models.Status
		changed bool
	}{
		{"active in window", func(c *models.Coupon) {}, models.StatusActive, false},
		{"scheduled before start", func(c *models.Coupon) {
			c.Status = models.StatusScheduled
			c.StartDate = now.Add(time.Hour)
		}, models.StatusScheduled, false},
		{"scheduled after start", func(c *models.Coupon) { c.Status = models.StatusScheduled }, models.StatusActive, true},
		{"scheduled past end", func(c *models.Coupon) {
			c.Status = models.StatusScheduled
			c.EndDate = now.Add(-time.Hour)
		}, models.StatusExpired, true},
		{"active past end", func(c *models.Coupon) { c.EndDate = now.Add(-time.Second) }, models.StatusExpired, true},
		{"active cap reached", func(c *models.Coupon) { c.Restrictions.CurrentUsage = 1 }, models.StatusExpired, true},
		{"draft untouched", func(c *models.Coupon) {
			c.Status = models.StatusDraft
			c.EndDate = now.Add(-time.Hour)
		}, models.StatusDraft, false},
		{"inactive untouched", func(c *models.Coupon) { c.Status = models.StatusInactive }, models.StatusInactive, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := save50()
			tt.mutate(c)
			got, changed := engine.NextStatus(c, now)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}
