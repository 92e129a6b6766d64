package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithUsage(t *testing.T) {
	c := validCoupon()
	c.Restrictions.MaxTotalUsage = 2
	used := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	once := c.WithUsage(UsageEntry{UserID: "u1", OrderID: "o1", UsedAt: used})
	assert.Equal(t, 0, c.Restrictions.CurrentUsage)
	assert.Empty(t, c.UsageHistory)
	assert.Equal(t, 1, once.Restrictions.CurrentUsage)
	assert.Equal(t, StatusActive, once.Status)
	assert.True(t, once.HasOrder("o1"))
	assert.False(t, once.HasOrder(""))
	assert.Equal(t, used, once.UpdatedAt)

	twice := once.WithUsage(UsageEntry{UserID: "u1", OrderID: "o2", UsedAt: used})
	assert.Equal(t, 2, twice.Restrictions.CurrentUsage)
	assert.Equal(t, StatusExpired, twice.Status)
	assert.Equal(t, 2, twice.UsageCountFor("u1"))
	assert.Equal(t, 0, twice.UsageCountFor("u2"))
	assert.Len(t, once.UsageHistory, 1)
}

func TestCloneIsDeep(t *testing.T) {
	c := validCoupon()
	c.Restrictions.ApplicableProducts = []string{"p1"}
	c.Restrictions.TimeRestrictions = &TimeWindow{Start: "09:00", End: "10:00"}

	cp := c.Clone()
	cp.Restrictions.ApplicableProducts[0] = "p2"
	cp.Restrictions.TimeRestrictions.Start = "11:00"

	assert.Equal(t, "p1", c.Restrictions.ApplicableProducts[0])
	assert.Equal(t, "09:00", c.Restrictions.TimeRestrictions.Start)
}
