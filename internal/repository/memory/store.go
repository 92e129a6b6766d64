// Package memory is an in-process coupon store used for local runs and
// tests. It honours the same contract as the Postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

type record struct {
	mu     sync.Mutex
	coupon *models.Coupon
	orders map[string]struct{}
}

type Store struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*record
	byCode map[string]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		byID:   make(map[uuid.UUID]*record),
		byCode: make(map[string]uuid.UUID),
	}
}

func (s *Store) Create(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byCode[c.Code]; ok {
		return models.ErrCouponExists
	}
	if _, ok := s.byID[c.ID]; ok {
		return models.ErrCouponExists
	}
	rec := &record{coupon: c.Clone(), orders: make(map[string]struct{})}
	for _, e := range c.UsageHistory {
		rec.orders[e.OrderID] = struct{}{}
	}
	s.byID[c.ID] = rec
	s.byCode[c.Code] = c.ID
	return nil
}

func (s *Store) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	id, ok := s.byCode[code]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrCouponNotFound
	}
	return s.get(id, "")
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	return s.get(id, "")
}

func (s *Store) Snapshot(_ context.Context, id uuid.UUID, userID string) (*models.Coupon, error) {
	return s.get(id, userID)
}

// get returns a copy of the coupon carrying only userID's ledger entries,
// or none when userID is empty, to match what the Postgres store loads.
func (s *Store) get(id uuid.UUID, userID string) (*models.Coupon, error) {
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := rec.coupon.Clone()
	out.UsageHistory = filterUser(rec.coupon.UsageHistory, userID)
	return out, nil
}

func (s *Store) ListLive(_ context.Context) ([]*models.Coupon, error) {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.byID))
	for _, rec := range s.byID {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	var out []*models.Coupon
	for _, rec := range recs {
		rec.mu.Lock()
		c := rec.coupon
		if c.IsActive && (c.Status == models.StatusActive || c.Status == models.StatusScheduled) {
			cp := c.Clone()
			cp.UsageHistory = nil
			out = append(out, cp)
		}
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.Status) error {
	rec, err := s.record(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.coupon.Status != from {
		return models.ErrCouponNotFound
	}
	rec.coupon.Status = to
	rec.coupon.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) UsageByUser(_ context.Context, userID string, couponIDs []uuid.UUID) (map[uuid.UUID][]models.UsageEntry, error) {
	out := make(map[uuid.UUID][]models.UsageEntry, len(couponIDs))
	if userID == "" {
		return out, nil
	}
	for _, id := range couponIDs {
		rec, err := s.record(id)
		if err != nil {
			continue
		}
		rec.mu.Lock()
		if entries := filterUser(rec.coupon.UsageHistory, userID); len(entries) > 0 {
			out[id] = entries
		}
		rec.mu.Unlock()
	}
	return out, nil
}

// CompareAndRecord holds the coupon's lock for the whole check and
// update, so neither the counter nor a user's count can pass its cap.
func (s *Store) CompareAndRecord(_ context.Context, couponID uuid.UUID, expected int, entry models.UsageEntry) error {
	rec, err := s.record(couponID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if _, dup := rec.orders[entry.OrderID]; dup {
		return models.ErrDuplicateRedemption
	}
	if rec.coupon.Restrictions.CapReached() {
		return models.ErrUsageCapReached
	}
	if limit := rec.coupon.Restrictions.MaxUsagePerUser; limit > 0 &&
		len(filterUser(rec.coupon.UsageHistory, entry.UserID)) >= limit {
		return models.ErrUserCapReached
	}
	if rec.coupon.Restrictions.CurrentUsage != expected {
		return models.ErrUsageConflict
	}
	entry.CouponID = couponID
	rec.coupon = rec.coupon.WithUsage(entry)
	rec.orders[entry.OrderID] = struct{}{}
	return nil
}

func (s *Store) record(id uuid.UUID) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, models.ErrCouponNotFound
	}
	return rec, nil
}

func filterUser(entries []models.UsageEntry, userID string) []models.UsageEntry {
	if userID == "" {
		return nil
	}
	var out []models.UsageEntry
	for _, e := range entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
