package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"store-system/internal/logger"
	"store-system/internal/models"
)

// CouponHandler обрабатывает купоны.
type CouponHandler struct {
	couponService CouponService
	log           *logger.Logger
}

// NewCouponHandler создаёт новый обработчик купонов.
func NewCouponHandler(couponService CouponService, log *logger.Logger) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
		log:           log,
	}
}

// Coupons обрабатывает /api/coupons: POST создаёт купон, GET список
func (h *CouponHandler) Coupons(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req models.CreateCouponRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		coupon, err := h.couponService.CreateCoupon(r.Context(), &req)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to create coupon")
			return
		}

		h.log.WithField("code", coupon.Code).Info("Coupon created")
		writeSuccess(w, http.StatusCreated, coupon)
	case http.MethodGet:
		limit, offset := parsePagination(r, 50, 200)

		coupons, err := h.couponService.ListCoupons(r.Context(), limit, offset)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to list coupons")
			return
		}
		writeSuccess(w, http.StatusOK, coupons)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Coupon обрабатывает /api/coupons/{code}: GET, PUT и DELETE
func (h *CouponHandler) Coupon(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	code, err := extractCouponCodeFromPath(r.URL.Path)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		coupon, err := h.couponService.GetCoupon(r.Context(), code)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to get coupon")
			return
		}
		writeSuccess(w, http.StatusOK, coupon)
	case http.MethodPut:
		var req models.UpdateCouponRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		coupon, err := h.couponService.UpdateCoupon(r.Context(), code, &req)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to update coupon")
			return
		}

		h.log.WithField("code", code).Info("Coupon updated")
		writeSuccess(w, http.StatusOK, coupon)
	case http.MethodDelete:
		if err := h.couponService.DeleteCoupon(r.Context(), code); err != nil {
			writeServiceError(w, h.log, err, "Failed to delete coupon")
			return
		}

		h.log.WithField("code", code).Info("Coupon deleted")
		writeSuccess(w, http.StatusOK, map[string]string{"message": "Coupon deleted"})
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// extractCouponCodeFromPath извлекает код купона из пути URL
func extractCouponCodeFromPath(path string) (string, error) {
	const prefix = "/api/coupons/"
	if !strings.HasPrefix(path, prefix) {
		return "", fmt.Errorf("invalid path format")
	}

	code := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if code == "" || strings.Contains(code, "/") {
		return "", fmt.Errorf("missing coupon code in path")
	}

	return code, nil
}
