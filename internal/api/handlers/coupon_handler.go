package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

// CouponService is what the handlers need from the service layer.
type CouponService interface {
	Create(ctx context.Context, c *models.Coupon) (*models.Coupon, error)
	Get(ctx context.Context, code string) (*models.Coupon, error)
	Validate(ctx context.Context, req models.ValidationRequest) (models.ValidationResponse, error)
	Applicable(ctx context.Context, req models.ApplicableRequest) ([]models.ApplicableCoupon, error)
	Best(ctx context.Context, req models.ApplicableRequest) (models.BestSelection, error)
	Redeem(ctx context.Context, req models.RedeemRequest) (*models.RedeemResponse, error)
	SweepStatuses(ctx context.Context) (int, error)
}

// --- Request / Response DTOs ---

type CreateCouponRequest struct {
	Code              string                   `json:"code"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description,omitempty"`
	Type              string                   `json:"type"`
	DiscountOn        string                   `json:"discount_on,omitempty"`
	Target            string                   `json:"target,omitempty"`
	Trigger           string                   `json:"trigger,omitempty"`
	CashbackMode      string                   `json:"cashback_mode,omitempty"`
	DiscountValue     decimal.Decimal          `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal         `json:"max_discount_amount,omitempty"`
	StartDate         string                   `json:"start_date"` // RFC3339 string
	EndDate           string                   `json:"end_date"`   // RFC3339 string
	Status            string                   `json:"status,omitempty"`
	IsStackable       bool                     `json:"is_stackable"`
	AutoApply         bool                     `json:"auto_apply"`
	RequiresCode      *bool                    `json:"requires_code,omitempty"`
	IsActive          *bool                    `json:"is_active,omitempty"`
	Priority          int                      `json:"priority"`
	Display           models.Display           `json:"display"`
	Restrictions      models.UsageRestrictions `json:"usage_restrictions"`
	CreatedBy         string                   `json:"created_by,omitempty"`
}

// CartContext is the evaluation context as sent by checkout.
type CartContext struct {
	UserID              string            `json:"user_id"`
	OrderAmount         decimal.Decimal   `json:"order_amount"`
	OriginalOrderAmount decimal.Decimal   `json:"original_order_amount"`
	DeliveryCharge      decimal.Decimal   `json:"delivery_charge"`
	CartItems           []models.CartItem `json:"cart_items"`
	Location            models.Location   `json:"location"`
	Timestamp           string            `json:"timestamp"` // optional, RFC3339
	UserType            string            `json:"user_type"`
	IsFirstOrder        bool              `json:"is_first_order"`
	Device              models.Device     `json:"device"`
}

type ValidateRequestBody struct {
	CartContext
	Coupon string `json:"coupon_code"`
}

type RedeemRequestBody struct {
	CartContext
	Coupon        string `json:"coupon_code"`
	OrderID       string `json:"order_id"`
	CartID        string `json:"cart_id,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	DeliveryType  string `json:"delivery_type,omitempty"`
}

type ApplicableResponse struct {
	ApplicableCoupons []models.ApplicableCoupon `json:"applicable_coupons"`
}

// --- Handler struct & constructor ---

type CouponHandler struct {
	service CouponService
	logger  *zap.Logger
}

func NewCouponHandler(svc CouponService, logger *zap.Logger) *CouponHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CouponHandler{service: svc, logger: logger}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseTimeOrZero(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (b CartContext) toContext() (models.EvaluationContext, error) {
	now, err := parseTimeOrZero(b.Timestamp)
	if err != nil {
		return models.EvaluationContext{}, err
	}
	return models.EvaluationContext{
		UserID:              b.UserID,
		OrderAmount:         b.OrderAmount,
		OriginalOrderAmount: b.OriginalOrderAmount,
		CartItems:           b.CartItems,
		Location:            b.Location,
		Now:                 now,
		UserType:            models.UserType(strings.ToLower(b.UserType)),
		IsFirstOrder:        b.IsFirstOrder,
		Device:              b.Device,
	}, nil
}

// writeError maps service errors to HTTP status codes.
func (h *CouponHandler) writeError(w http.ResponseWriter, err error) {
	var verrs models.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": "validation_failed", "fields": verrs})
	case errors.Is(err, models.ErrCouponNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrCouponExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrMissingOrderID), errors.Is(err, models.ErrMissingUserID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}
}

func isRedeemConflict(err error) bool {
	return errors.Is(err, models.ErrDuplicateRedemption) ||
		errors.Is(err, models.ErrUsageCapReached) ||
		errors.Is(err, models.ErrUserCapReached) ||
		errors.Is(err, models.ErrContentionExhausted)
}

// --- Handlers ---

// CreateCoupon handles POST /admin/coupons
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date; use RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date; use RFC3339"})
		return
	}

	c := &models.Coupon{
		Code:              req.Code,
		Title:             req.Title,
		Description:       req.Description,
		Type:              models.CouponType(req.Type),
		DiscountOn:        models.DiscountOn(orDefault(req.DiscountOn, string(models.OnSubtotal))),
		Target:            models.Target(orDefault(req.Target, string(models.TargetAll))),
		Trigger:           models.Trigger(orDefault(req.Trigger, string(models.TriggerManual))),
		CashbackMode:      models.CashbackMode(req.CashbackMode),
		DiscountValue:     req.DiscountValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		StartDate:         start,
		EndDate:           end,
		Status:            models.Status(req.Status),
		IsStackable:       req.IsStackable,
		AutoApply:         req.AutoApply,
		RequiresCode:      boolOr(req.RequiresCode, true),
		IsActive:          boolOr(req.IsActive, true),
		Priority:          req.Priority,
		Display:           req.Display,
		Restrictions:      req.Restrictions,
		CreatedBy:         req.CreatedBy,
	}

	created, err := h.service.Create(r.Context(), c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "coupon_created",
		"coupon_id": created.ID,
		"coupon":    created,
	})
}

// GetCoupon handles GET /admin/coupons/{code}
func (h *CouponHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SweepStatuses handles POST /admin/coupons/sweep
func (h *CouponHandler) SweepStatuses(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.SweepStatuses(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"changed": n})
}

// ValidateCoupon handles POST /coupons/validate
func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	ec, err := req.toContext()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timestamp; use RFC3339"})
		return
	}

	resp, err := h.service.Validate(r.Context(), models.ValidationRequest{
		CouponCode:     req.Coupon,
		Context:        ec,
		DeliveryCharge: req.DeliveryCharge,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetApplicableCoupons handles POST /coupons/applicable
func (h *CouponHandler) GetApplicableCoupons(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCart(w, r)
	if !ok {
		return
	}
	list, err := h.service.Applicable(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplicableResponse{ApplicableCoupons: list})
}

// BestCoupon handles POST /coupons/best
func (h *CouponHandler) BestCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCart(w, r)
	if !ok {
		return
	}
	sel, err := h.service.Best(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// RedeemCoupon handles POST /coupons/redeem
func (h *CouponHandler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	ec, err := req.toContext()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timestamp; use RFC3339"})
		return
	}

	resp, err := h.service.Redeem(r.Context(), models.RedeemRequest{
		CouponCode:     req.Coupon,
		Context:        ec,
		DeliveryCharge: req.DeliveryCharge,
		OrderID:        req.OrderID,
		CartID:         req.CartID,
		PaymentMethod:  req.PaymentMethod,
		DeliveryType:   req.DeliveryType,
	})
	if err != nil {
		if isRedeemConflict(err) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":   err.Error(),
				"message": "coupon no longer available",
				"result":  resp,
			})
			return
		}
		h.writeError(w, err)
		return
	}
	if !resp.Redeemed {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CouponHandler) decodeCart(w http.ResponseWriter, r *http.Request) (models.ApplicableRequest, bool) {
	var body CartContext
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return models.ApplicableRequest{}, false
	}
	if body.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id required"})
		return models.ApplicableRequest{}, false
	}
	ec, err := body.toContext()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timestamp; use RFC3339"})
		return models.ApplicableRequest{}, false
	}
	return models.ApplicableRequest{Context: ec, DeliveryCharge: body.DeliveryCharge}, true
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
