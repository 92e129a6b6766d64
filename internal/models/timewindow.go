package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeWindow is a time-of-day range in HH:MM, both ends inclusive.
// A window whose start is after its end wraps past midnight.
type TimeWindow struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, fmt.Errorf("clock %q: want HH:MM", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("clock %q: bad hour", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q: bad minute", s)
	}
	return hh*60 + mm, nil
}

// Contains reports whether t's wall clock falls inside the window.
func (w TimeWindow) Contains(t time.Time) (bool, error) {
	start, err := ParseClock(w.Start)
	if err != nil {
		return false, err
	}
	end, err := ParseClock(w.End)
	if err != nil {
		return false, err
	}
	now := t.Hour()*60 + t.Minute()
	if start <= end {
		return now >= start && now <= end, nil
	}
	return now >= start || now <= end, nil
}
