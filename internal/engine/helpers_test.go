package engine_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

// Tuesday noon UTC.
var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// save50 is a fixed 50 off coupon that needs a 200 order and can be
// redeemed once in total.
func save50() *models.Coupon {
	return &models.Coupon{
		ID:            uuid.New(),
		Code:          "SAVE50",
		Type:          models.TypeFixed,
		DiscountOn:    models.OnSubtotal,
		Target:        models.TargetAll,
		Trigger:       models.TriggerManual,
		DiscountValue: dec("50"),
		StartDate:     now.Add(-24 * time.Hour),
		EndDate:       now.Add(24 * time.Hour),
		Status:        models.StatusActive,
		IsActive:      true,
		RequiresCode:  true,
		Restrictions: models.UsageRestrictions{
			MinOrderAmount:  dec("200"),
			MaxTotalUsage:   1,
			MaxUsagePerUser: 1,
		},
	}
}

func cartFor(amount string) models.EvaluationContext {
	return models.EvaluationContext{
		UserID:      "user-1",
		OrderAmount: dec(amount),
		CartItems: []models.CartItem{
			{ProductID: "p1", CategoryID: "c1", Price: dec(amount), Quantity: 1},
		},
		Location: models.Location{Pincode: "400001"},
		Now:      now,
		UserType: models.UserRegular,
	}
}
