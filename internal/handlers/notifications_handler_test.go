package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"store-system/internal/apperror"
	"store-system/internal/models"

	"github.com/google/uuid"
)

type stubNotificationService struct {
	notifications []*models.Notification
	err           error
	readID        uuid.UUID
}

func (s *stubNotificationService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error) {
	return s.notifications, s.err
}
func (s *stubNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	s.readID = notificationID
	return s.err
}

var _ NotificationService = (*stubNotificationService)(nil)

func TestNotificationHandler_List(t *testing.T) {
	userID := uuid.New()
	svc := &stubNotificationService{notifications: []*models.Notification{
		{ID: uuid.New(), RecipientID: userID, Kind: models.NotificationKindNewPurchase},
	}}
	h := NewNotificationHandler(svc, newHandlerTestLogger())

	req := authedRequest(http.MethodGet, "/api/notifications", nil, userID, models.UserRoleModerator)
	rr := httptest.NewRecorder()

	h.Notifications(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNotificationHandler_MarkRead(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	svc := &stubNotificationService{}
	h := NewNotificationHandler(svc, newHandlerTestLogger())

	req := authedRequest(http.MethodPatch, "/api/notifications/"+notificationID.String()+"/read", nil, userID, models.UserRoleModerator)
	rr := httptest.NewRecorder()

	h.MarkRead(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.readID != notificationID {
		t.Fatalf("unexpected notification id: %s", svc.readID)
	}
}

func TestNotificationHandler_MarkRead_NotFound(t *testing.T) {
	svc := &stubNotificationService{err: apperror.NotFound("notification not found", nil)}
	h := NewNotificationHandler(svc, newHandlerTestLogger())

	req := authedRequest(http.MethodPatch, "/api/notifications/"+uuid.NewString()+"/read", nil, uuid.New(), models.UserRoleModerator)
	rr := httptest.NewRecorder()

	h.MarkRead(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestNotificationHandler_MarkRead_WrongSuffix(t *testing.T) {
	h := NewNotificationHandler(&stubNotificationService{}, newHandlerTestLogger())

	req := authedRequest(http.MethodPatch, "/api/notifications/"+uuid.NewString()+"/archive", nil, uuid.New(), models.UserRoleModerator)
	rr := httptest.NewRecorder()

	h.MarkRead(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
