package handlers

import (
	"net/http"

	"store-system/internal/logger"
)

// NotificationHandler обрабатывает уведомления сотрудников.
type NotificationHandler struct {
	notificationService NotificationService
	log                 *logger.Logger
}

// NewNotificationHandler создаёт новый обработчик уведомлений.
func NewNotificationHandler(notificationService NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log,
	}
}

// Notifications возвращает уведомления текущего пользователя
func (h *NotificationHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, offset := parsePagination(r, 20, 100)

	notifications, err := h.notificationService.ListForUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list notifications")
		return
	}

	writeSuccess(w, http.StatusOK, notifications)
}

// MarkRead помечает уведомление прочитанным: PATCH /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	notificationID, err := extractUUIDFromPath(r.URL.Path, "/api/notifications/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if pathSuffix(r.URL.Path, "/api/notifications/") != "read" {
		writeErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), userID, notificationID); err != nil {
		writeServiceError(w, h.log, err, "Failed to mark notification as read")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}
