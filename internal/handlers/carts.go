package handlers

import (
	"encoding/json"
	"net/http"

	"store-system/internal/logger"
	"store-system/internal/models"
)

// CartHandler представляет обработчик корзины
type CartHandler struct {
	cartService CartService
	log         *logger.Logger
}

// NewCartHandler создает новый обработчик корзины
func NewCartHandler(cartService CartService, log *logger.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		log:         log,
	}
}

// Cart обрабатывает /api/cart: GET возвращает корзину, DELETE очищает её
func (h *CartHandler) Cart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		cart, err := h.cartService.GetCart(r.Context(), userID)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to get cart")
			return
		}
		writeSuccess(w, http.StatusOK, cart)
	case http.MethodDelete:
		if err := h.cartService.Clear(r.Context(), userID); err != nil {
			writeServiceError(w, h.log, err, "Failed to clear cart")
			return
		}
		writeSuccess(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// AddItem добавляет позицию в корзину
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.AddCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to add cart item")
		return
	}

	h.log.WithField("user_id", userID).WithField("product_id", req.ProductID).Info("Cart item added")
	writeSuccess(w, http.StatusCreated, cart)
}

// RemoveItem удаляет позицию корзины по ID
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	itemID, err := extractUUIDFromPath(r.URL.Path, "/api/cart/items/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), userID, itemID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to remove cart item")
		return
	}

	writeSuccess(w, http.StatusOK, cart)
}

// Coupon обрабатывает /api/cart/coupon: POST применяет купон, DELETE снимает его
func (h *CartHandler) Coupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req models.ApplyCouponRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		cart, err := h.cartService.ApplyCoupon(r.Context(), userID, req.Code)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to apply coupon")
			return
		}

		h.log.WithField("user_id", userID).WithField("code", req.Code).Info("Coupon applied to cart")
		writeSuccess(w, http.StatusOK, cart)
	case http.MethodDelete:
		cart, err := h.cartService.RemoveCoupon(r.Context(), userID)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to remove coupon")
			return
		}
		writeSuccess(w, http.StatusOK, cart)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
