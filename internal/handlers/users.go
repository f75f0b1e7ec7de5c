package handlers

import (
	"net/http"

	"store-system/internal/logger"
)

// UserHandler обрабатывает запросы по пользователям.
type UserHandler struct {
	userService UserService
	log         *logger.Logger
}

// NewUserHandler создаёт новый обработчик пользователей.
func NewUserHandler(userService UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

// MonthlyConfirmedCount возвращает кешированный месячный счётчик
// подтверждений сотрудника: GET /api/staff/{id}/monthly-confirmed-count
func (h *UserHandler) MonthlyConfirmedCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	staffID, err := extractUUIDFromPath(r.URL.Path, "/api/staff/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid staff ID")
		return
	}

	if pathSuffix(r.URL.Path, "/api/staff/") != "monthly-confirmed-count" {
		writeErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}

	count, err := h.userService.GetMonthlyConfirmedCount(r.Context(), staffID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get monthly confirmed count")
		return
	}

	writeSuccess(w, http.StatusOK, count)
}
