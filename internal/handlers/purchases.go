package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"store-system/internal/logger"
	"store-system/internal/models"

	"github.com/google/uuid"
)

// PurchaseHandler представляет обработчик покупок
type PurchaseHandler struct {
	purchaseService PurchaseService
	log             *logger.Logger
}

// NewPurchaseHandler создает новый обработчик покупок
func NewPurchaseHandler(purchaseService PurchaseService, log *logger.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		log:             log,
	}
}

// Purchases обрабатывает /api/cart-purchases: POST оформляет покупку из
// корзины, GET возвращает покупки текущего пользователя
func (h *PurchaseHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req models.CreateCartPurchaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		purchase, err := h.purchaseService.CreateCartPurchase(r.Context(), userID, &req)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to create purchase")
			return
		}

		h.log.WithField("purchase_id", purchase.ID).WithField("serial", purchase.Serial).Info("Purchase created")
		writeSuccess(w, http.StatusCreated, purchase)
	case http.MethodGet:
		limit, offset := parsePagination(r, 20, 100)

		purchases, err := h.purchaseService.GetUserPurchases(r.Context(), userID, limit, offset)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to get purchases")
			return
		}
		writeSuccess(w, http.StatusOK, purchases)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Purchase обрабатывает /api/cart-purchases/{id} и подмаршруты переходов:
// PATCH {id}/receive|confirm|return выполняет переход статуса,
// PATCH {id}/admin-note ставит заметку, DELETE удаляет покупку
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := extractUUIDFromPath(r.URL.Path, "/api/cart-purchases/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid purchase ID")
		return
	}

	suffix := pathSuffix(r.URL.Path, "/api/cart-purchases/")

	switch {
	case r.Method == http.MethodGet && suffix == "":
		h.getPurchase(w, r, purchaseID)
	case r.Method == http.MethodPatch && suffix == "receive":
		h.transition(w, r, purchaseID, models.ActionReceive)
	case r.Method == http.MethodPatch && suffix == "confirm":
		h.transition(w, r, purchaseID, models.ActionConfirm)
	case r.Method == http.MethodPatch && suffix == "return":
		h.transition(w, r, purchaseID, models.ActionReturn)
	case r.Method == http.MethodPatch && suffix == "admin-note":
		h.addAdminNote(w, r, purchaseID)
	case r.Method == http.MethodDelete && suffix == "":
		h.deletePurchase(w, r, purchaseID)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *PurchaseHandler) getPurchase(w http.ResponseWriter, r *http.Request, purchaseID uuid.UUID) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	purchase, err := h.purchaseService.GetPurchase(r.Context(), purchaseID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get purchase")
		return
	}

	// Покупатель видит только свои покупки
	if purchase.UserID != userID && !roleFromRequest(r).IsStaff() {
		writeErrorResponse(w, http.StatusForbidden, "Access denied")
		return
	}

	writeSuccess(w, http.StatusOK, purchase)
}

func (h *PurchaseHandler) transition(w http.ResponseWriter, r *http.Request, purchaseID uuid.UUID, action models.StatusAction) {
	actorID, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var purchase *models.Purchase
	var err error
	switch action {
	case models.ActionReceive:
		purchase, err = h.purchaseService.ReceivePurchase(r.Context(), purchaseID, actorID)
	case models.ActionConfirm:
		purchase, err = h.purchaseService.ConfirmPurchase(r.Context(), purchaseID, actorID)
	case models.ActionReturn:
		purchase, err = h.purchaseService.ReturnPurchase(r.Context(), purchaseID, actorID)
	}
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update purchase status")
		return
	}

	h.log.WithField("purchase_id", purchaseID).WithField("new_status", purchase.Status).Info("Purchase status updated")
	writeSuccess(w, http.StatusOK, purchase)
}

func (h *PurchaseHandler) addAdminNote(w http.ResponseWriter, r *http.Request, purchaseID uuid.UUID) {
	actorID, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req models.AdminNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	purchase, err := h.purchaseService.AddAdminNote(r.Context(), purchaseID, actorID, req.Note)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to add admin note")
		return
	}

	writeSuccess(w, http.StatusOK, purchase)
}

func (h *PurchaseHandler) deletePurchase(w http.ResponseWriter, r *http.Request, purchaseID uuid.UUID) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	if err := h.purchaseService.DeletePurchase(r.Context(), purchaseID); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete purchase")
		return
	}

	h.log.WithField("purchase_id", purchaseID).Info("Purchase deleted")
	writeSuccess(w, http.StatusOK, map[string]string{"message": "Purchase deleted"})
}

// AdminAll возвращает страницу покупок для админки с фильтрами
func (h *PurchaseHandler) AdminAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	filter, err := parseAdminPurchaseFilter(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.purchaseService.AdminList(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list purchases")
		return
	}

	writeSuccess(w, http.StatusOK, list)
}

func parseAdminPurchaseFilter(r *http.Request) (*models.AdminPurchaseFilter, error) {
	query := r.URL.Query()
	filter := &models.AdminPurchaseFilter{Search: query.Get("search")}

	if statusStr := query.Get("status"); statusStr != "" {
		status := models.PurchaseStatus(statusStr)
		if !models.IsValidPurchaseStatus(status) {
			return nil, fmt.Errorf("invalid status: %s", statusStr)
		}
		filter.Status = &status
	}

	if fromStr := query.Get("date_from"); fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'date_from', expected YYYY-MM-DD")
		}
		filter.DateFrom = &parsed
	}
	if toStr := query.Get("date_to"); toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'date_to', expected YYYY-MM-DD")
		}
		end := parsed.AddDate(0, 0, 1)
		filter.DateTo = &end
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, fmt.Errorf("'date_from' must be before 'date_to'")
	}

	if minStr := query.Get("min_total"); minStr != "" {
		v, err := strconv.ParseFloat(minStr, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid 'min_total'")
		}
		filter.MinTotal = &v
	}
	if maxStr := query.Get("max_total"); maxStr != "" {
		v, err := strconv.ParseFloat(maxStr, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid 'max_total'")
		}
		filter.MaxTotal = &v
	}

	filter.Limit, filter.Offset = parsePagination(r, 20, 100)

	return filter, nil
}
