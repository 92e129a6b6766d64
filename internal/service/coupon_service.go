package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/coupon-service/internal/cache"
	"github.com/Cheertaboi/coupon-service/internal/concurrency"
	"github.com/Cheertaboi/coupon-service/internal/engine"
	"github.com/Cheertaboi/coupon-service/internal/models"
)

// CouponStore is the persistence the service needs (use interfaces to
// allow swapping Postgres for the in-memory store).
type CouponStore interface {
	Create(ctx context.Context, c *models.Coupon) error
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListLive(ctx context.Context) ([]*models.Coupon, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.Status) error
	UsageByUser(ctx context.Context, userID string, couponIDs []uuid.UUID) (map[uuid.UUID][]models.UsageEntry, error)
	engine.UsageStore
}

type Options struct {
	RedeemAttempts int
	RedeemBackoff  time.Duration
	// Workers bounds the fan-out when many coupons are evaluated at once.
	Workers int
	// Now overrides the clock used when a request carries no timestamp.
	Now func() time.Time
}

type CouponService struct {
	store    CouponStore
	cache    cache.Cache
	recorder *engine.Recorder
	workers  int
	now      func() time.Time
	logger   *zap.Logger
}

func NewCouponService(store CouponStore, c cache.Cache, opts Options, logger *zap.Logger) *CouponService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.NewCouponCache(30 * time.Second)
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CouponService{
		store:    store,
		cache:    c,
		recorder: engine.NewRecorder(store, opts.RedeemAttempts, opts.RedeemBackoff, logger),
		workers:  opts.Workers,
		now:      opts.Now,
		logger:   logger,
	}
}

// Create validates and stores a new coupon definition.
func (s *CouponService) Create(ctx context.Context, c *models.Coupon) (*models.Coupon, error) {
	c = c.Clone()
	c.Code = models.NormalizeCode(c.Code)
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.StatusDraft
	}
	if c.Type == models.TypeCashback && c.CashbackMode == "" {
		c.CashbackMode = models.CashbackFixed
	}
	c.Restrictions.CurrentUsage = 0
	c.UsageHistory = nil
	now := s.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	if err := models.ValidateCoupon(c); err != nil {
		return nil, err
	}
	switch c.Status {
	case models.StatusDraft, models.StatusScheduled, models.StatusActive:
	default:
		return nil, models.ValidationErrors{{Field: "status", Message: "new coupons must be draft, scheduled or active"}}
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("coupon created",
		zap.String("code", c.Code),
		zap.String("type", string(c.Type)),
		zap.String("status", string(c.Status)),
	)
	return c, nil
}

func (s *CouponService) Get(ctx context.Context, code string) (*models.Coupon, error) {
	return s.store.GetByCode(ctx, models.NormalizeCode(code))
}

// Validate evaluates and prices one coupon without consuming it.
func (s *CouponService) Validate(ctx context.Context, req models.ValidationRequest) (models.ValidationResponse, error) {
	ec := s.withClock(req.Context)
	code := models.NormalizeCode(req.CouponCode)

	c, err := s.load(ctx, code, ec.UserID)
	if err != nil {
		if errors.Is(err, models.ErrCouponNotFound) {
			return invalid(code, models.ReasonNotFound), nil
		}
		return models.ValidationResponse{IsValid: false, Code: code, Message: "internal_error"}, err
	}

	if v := engine.Evaluate(c, ec); !v.Valid {
		s.logger.Debug("coupon rejected",
			zap.String("code", code),
			zap.String("user_id", ec.UserID),
			zap.String("reason", string(v.Reason)),
		)
		return invalid(code, v.Reason), nil
	}

	res := engine.Calculate(c, calcInput(ec, req.DeliveryCharge))
	if res.RequiresLineItems {
		return invalid(code, models.ReasonRequiresLineItems), nil
	}
	return models.ValidationResponse{
		IsValid:  true,
		Code:     code,
		Discount: res.Amount,
		Cashback: res.Cashback,
		Message:  "coupon_applicable",
	}, nil
}

// Applicable returns every live coupon the context qualifies for, best first.
func (s *CouponService) Applicable(ctx context.Context, req models.ApplicableRequest) ([]models.ApplicableCoupon, error) {
	ec := s.withClock(req.Context)
	coupons, err := s.liveForUser(ctx, ec.UserID)
	if err != nil {
		return nil, err
	}

	in := calcInput(ec, req.DeliveryCharge)
	found := make([]*engine.Candidate, len(coupons))
	concurrency.ForEach(ctx, s.workers, len(coupons), func(_ context.Context, i int) {
		c := coupons[i]
		if v := engine.Evaluate(c, ec); v.Valid {
			found[i] = &engine.Candidate{Coupon: c, Discount: engine.Calculate(c, in)}
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cands []engine.Candidate
	for _, f := range found {
		if f != nil {
			cands = append(cands, *f)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return engine.Better(cands[i], cands[j]) })

	out := make([]models.ApplicableCoupon, 0, len(cands))
	for _, cand := range cands {
		c := cand.Coupon
		out = append(out, models.ApplicableCoupon{
			Code:              c.Code,
			Title:             c.Title,
			Type:              c.Type,
			Discount:          cand.Discount.Amount,
			Cashback:          cand.Discount.Cashback,
			RequiresLineItems: cand.Discount.RequiresLineItems,
			IsStackable:       c.IsStackable,
			AutoApply:         c.AutoApply,
			Priority:          c.Priority,
			EndDate:           c.EndDate,
			Display:           c.Display,
		})
	}
	return out, nil
}

// Best picks the coupon, or stack of stackable coupons, with the largest discount.
func (s *CouponService) Best(ctx context.Context, req models.ApplicableRequest) (models.BestSelection, error) {
	ec := s.withClock(req.Context)
	coupons, err := s.liveForUser(ctx, ec.UserID)
	if err != nil {
		return models.BestSelection{}, err
	}

	in := calcInput(ec, req.DeliveryCharge)
	sel := engine.SelectBest(coupons, ec, in)
	if sel == nil {
		return models.BestSelection{
			Coupons:           []models.AppliedCoupon{},
			TotalDiscount:     decimal.Zero,
			NetOrderAmount:    in.OrderAmount,
			NetDeliveryCharge: in.DeliveryCharge,
		}, nil
	}

	out := models.BestSelection{
		Found:             true,
		Stacked:           sel.Stacked,
		TotalDiscount:     sel.Total,
		NetOrderAmount:    sel.NetOrderAmount,
		NetDeliveryCharge: sel.NetDeliveryCharge,
	}
	for _, a := range sel.Applied {
		out.Coupons = append(out.Coupons, models.AppliedCoupon{
			Code:              a.Coupon.Code,
			Discount:          a.Discount.Amount,
			Cashback:          a.Discount.Cashback,
			OrderAmountBefore: a.OrderAmountBefore,
		})
	}
	return out, nil
}

// Redeem re-checks a coupon against the store's current state and records
// the redemption. It is meant to be called once payment is confirmed.
// Returned errors are models.ErrDuplicateRedemption, ErrUsageCapReached,
// ErrUserCapReached or ErrContentionExhausted for conflicts; a failed
// eligibility check is a response with Redeemed false.
func (s *CouponService) Redeem(ctx context.Context, req models.RedeemRequest) (*models.RedeemResponse, error) {
	if req.OrderID == "" {
		return nil, models.ErrMissingOrderID
	}
	if req.Context.UserID == "" {
		return nil, models.ErrMissingUserID
	}
	ec := s.withClock(req.Context)
	code := models.NormalizeCode(req.CouponCode)

	c, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.attachUsage(ctx, ec.UserID, c); err != nil {
		return nil, err
	}
	if c.HasOrder(req.OrderID) {
		return s.redeemResponse(c, models.ReasonOK), models.ErrDuplicateRedemption
	}

	if v := engine.Evaluate(c, ec); !v.Valid {
		return s.redeemResponse(c, v.Reason), nil
	}
	res := engine.Calculate(c, calcInput(ec, req.DeliveryCharge))
	if res.RequiresLineItems {
		return s.redeemResponse(c, models.ReasonRequiresLineItems), nil
	}

	before := ec.OrderAmount.Add(req.DeliveryCharge)
	after := before
	if !res.Cashback {
		after = before.Sub(res.Amount)
	}
	entry := models.UsageEntry{
		UserID:            ec.UserID,
		OrderID:           req.OrderID,
		CartID:            req.CartID,
		DiscountAmount:    res.Amount,
		OrderAmountBefore: before,
		OrderAmountAfter:  after,
		Savings:           res.Amount,
		UsedAt:            ec.Now.UTC(),
		Device:            ec.Device,
		Location:          ec.Location,
		PaymentMethod:     req.PaymentMethod,
		DeliveryType:      req.DeliveryType,
	}

	updated, err := s.recorder.Record(ctx, c, entry)
	s.cache.Invalidate(ctx, code)
	if err != nil {
		s.logger.Info("redemption rejected",
			zap.String("code", code),
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		return s.redeemResponse(updated, models.ReasonOK), err
	}

	recorded := updated.UsageHistory[len(updated.UsageHistory)-1]
	s.logger.Info("coupon redeemed",
		zap.String("code", code),
		zap.String("order_id", req.OrderID),
		zap.String("user_id", ec.UserID),
		zap.String("discount", res.Amount.StringFixed(2)),
		zap.Int("current_usage", updated.Restrictions.CurrentUsage),
	)
	return &models.RedeemResponse{
		Redeemed:     true,
		Code:         code,
		Discount:     res.Amount,
		Cashback:     res.Cashback,
		Message:      "coupon_redeemed",
		CurrentUsage: updated.Restrictions.CurrentUsage,
		Status:       updated.Status,
		Entry:        &recorded,
	}, nil
}

// SweepStatuses applies the automatic lifecycle transitions to every live
// coupon and returns how many changed.
func (s *CouponService) SweepStatuses(ctx context.Context) (int, error) {
	coupons, err := s.store.ListLive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list live coupons: %w", err)
	}
	now := s.now()
	changed := 0
	for _, c := range coupons {
		next, ok := engine.NextStatus(c, now)
		if !ok {
			continue
		}
		if err := s.store.UpdateStatus(ctx, c.ID, c.Status, next); err != nil {
			if errors.Is(err, models.ErrCouponNotFound) {
				// changed underneath us; the next sweep sees the new state
				continue
			}
			return changed, fmt.Errorf("update %s: %w", c.Code, err)
		}
		s.cache.Invalidate(ctx, c.Code)
		s.logger.Info("coupon status changed",
			zap.String("code", c.Code),
			zap.String("from", string(c.Status)),
			zap.String("to", string(next)),
		)
		changed++
	}
	return changed, nil
}

// load reads a coupon through the cache and attaches userID's ledger.
func (s *CouponService) load(ctx context.Context, code, userID string) (*models.Coupon, error) {
	c, ok := s.cache.Get(ctx, code)
	if !ok {
		var err error
		c, err = s.store.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, c)
	}
	if err := s.attachUsage(ctx, userID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CouponService) attachUsage(ctx context.Context, userID string, c *models.Coupon) error {
	usage, err := s.store.UsageByUser(ctx, userID, []uuid.UUID{c.ID})
	if err != nil {
		return fmt.Errorf("load usage: %w", err)
	}
	c.UsageHistory = usage[c.ID]
	return nil
}

func (s *CouponService) liveForUser(ctx context.Context, userID string) ([]*models.Coupon, error) {
	coupons, err := s.store.ListLive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list live coupons: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(coupons))
	for _, c := range coupons {
		ids = append(ids, c.ID)
	}
	usage, err := s.store.UsageByUser(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	for _, c := range coupons {
		c.UsageHistory = usage[c.ID]
	}
	return coupons, nil
}

func (s *CouponService) withClock(ec models.EvaluationContext) models.EvaluationContext {
	if ec.Now.IsZero() {
		ec.Now = s.now()
	}
	if ec.OriginalOrderAmount.IsZero() {
		ec.OriginalOrderAmount = ec.OrderAmount
	}
	return ec
}

func (s *CouponService) redeemResponse(c *models.Coupon, reason models.Reason) *models.RedeemResponse {
	resp := &models.RedeemResponse{
		Code:         c.Code,
		Discount:     decimal.Zero,
		Reason:       reason,
		Message:      reason.Message(),
		CurrentUsage: c.Restrictions.CurrentUsage,
		Status:       c.Status,
	}
	if reason == models.ReasonOK {
		resp.Message = "coupon_not_redeemed"
	}
	return resp
}

func invalid(code string, reason models.Reason) models.ValidationResponse {
	return models.ValidationResponse{
		IsValid:  false,
		Code:     code,
		Discount: decimal.Zero,
		Reason:   reason,
		Message:  reason.Message(),
	}
}

func calcInput(ec models.EvaluationContext, delivery decimal.Decimal) models.CalcInput {
	return models.CalcInput{
		OrderAmount:    ec.OrderAmount,
		DeliveryCharge: delivery,
		CartItems:      ec.CartItems,
	}
}
