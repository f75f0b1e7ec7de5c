package handlers

import (
	"context"
	"net/http"

	"store-system/internal/models"

	"github.com/google/uuid"
)

type contextKey string

const (
	contextKeyUserID     contextKey = "user_id"
	contextKeyUserSerial contextKey = "user_serial"
	contextKeyUserRole   contextKey = "user_role"
)

// AuthContextMiddleware переносит заголовки идентификации, проставленные
// шлюзом (X-User-Id, X-User-Serial, X-User-Role), в контекст запроса.
// Сама аутентификация выполняется выше по цепочке.
func AuthContextMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if idStr := r.Header.Get("X-User-Id"); idStr != "" {
			if id, err := uuid.Parse(idStr); err == nil {
				ctx = context.WithValue(ctx, contextKeyUserID, id)
			}
		}
		if serial := r.Header.Get("X-User-Serial"); serial != "" {
			ctx = context.WithValue(ctx, contextKeyUserSerial, serial)
		}
		if role := r.Header.Get("X-User-Role"); role != "" {
			ctx = context.WithValue(ctx, contextKeyUserRole, models.UserRole(role))
		}

		next(w, r.WithContext(ctx))
	}
}

// userIDFromRequest возвращает идентификатор пользователя из контекста
func userIDFromRequest(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(contextKeyUserID).(uuid.UUID)
	return id, ok
}

// roleFromRequest возвращает роль пользователя из контекста
func roleFromRequest(r *http.Request) models.UserRole {
	role, ok := r.Context().Value(contextKeyUserRole).(models.UserRole)
	if !ok {
		return models.UserRoleCustomer
	}
	return role
}

// requireUser пишет 401, если запрос пришёл без идентификатора пользователя
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := userIDFromRequest(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Missing user identity")
		return uuid.Nil, false
	}
	return id, true
}

// requireStaff пишет 403, если роль запроса не относится к персоналу
func requireStaff(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := requireUser(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if !roleFromRequest(r).IsStaff() {
		writeErrorResponse(w, http.StatusForbidden, "Staff role required")
		return uuid.Nil, false
	}
	return id, true
}

// requireAdmin пишет 403 для всех ролей, кроме admin и subadmin
func requireAdmin(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := requireUser(w, r)
	if !ok {
		return uuid.Nil, false
	}
	role := roleFromRequest(r)
	if role != models.UserRoleAdmin && role != models.UserRoleSubadmin {
		writeErrorResponse(w, http.StatusForbidden, "Admin role required")
		return uuid.Nil, false
	}
	return id, true
}
