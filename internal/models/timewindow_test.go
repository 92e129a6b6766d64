package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 30, 0, time.UTC)
}

func TestTimeWindowContains(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		t          time.Time
		want       bool
	}{
		{"inside", "09:00", "18:00", at(12, 0), true},
		{"start inclusive", "09:00", "18:00", at(9, 0), true},
		{"end inclusive", "09:00", "18:00", at(18, 0), true},
		{"after end", "09:00", "18:00", at(18, 1), false},
		{"before start", "09:00", "18:00", at(8, 59), false},
		{"overnight late", "22:00", "02:00", at(23, 15), true},
		{"overnight early", "22:00", "02:00", at(1, 0), true},
		{"overnight midday", "22:00", "02:00", at(12, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := TimeWindow{Start: tt.start, End: tt.end}.Contains(tt.t)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, 7*60+45, m)

	for _, bad := range []string{"", "7:45", "24:00", "12:60", "ab:cd", "1200"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}
