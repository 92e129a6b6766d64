package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

// Cache keeps coupon definitions by code. It is best effort: a miss or a
// backend failure only means the caller reads from the store. Cached
// coupons never carry usage history.
type Cache interface {
	Get(ctx context.Context, code string) (*models.Coupon, bool)
	Set(ctx context.Context, c *models.Coupon)
	Invalidate(ctx context.Context, code string)
}

type entry struct {
	coupon  *models.Coupon
	expires time.Time
}

// CouponCache is the in-process Cache.
type CouponCache struct {
	mu    sync.RWMutex
	store map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

func NewCouponCache(ttl time.Duration) *CouponCache {
	return &CouponCache{
		store: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *CouponCache) Get(_ context.Context, code string) (*models.Coupon, bool) {
	c.mu.RLock()
	e, ok := c.store[code]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		c.mu.Lock()
		if cur, ok := c.store[code]; ok && cur.expires.Equal(e.expires) {
			delete(c.store, code)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.coupon.Clone(), true
}

func (c *CouponCache) Set(_ context.Context, coupon *models.Coupon) {
	cp := coupon.Clone()
	cp.UsageHistory = nil
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[coupon.Code] = entry{coupon: cp, expires: c.now().Add(c.ttl)}
}

func (c *CouponCache) Invalidate(_ context.Context, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, code)
}
