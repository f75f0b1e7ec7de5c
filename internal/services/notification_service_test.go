package services

import (
	"context"
	"testing"
	"time"

	"store-system/internal/apperror"
	"store-system/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestNotificationService_HandlePurchaseCreated_FansOutToStaff(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewNotificationService(db, newTestLogger(), nil)

	purchaseID := uuid.New()
	admin := uuid.New()
	moderator := uuid.New()

	mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(admin).AddRow(moderator))

	for i := 0; i < 2; i++ {
		mock.ExpectExec("INSERT INTO notifications").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	event := &models.Event{
		ID:         uuid.New(),
		Type:       models.EventTypePurchaseCreated,
		OccurredAt: time.Now(),
		Data: map[string]interface{}{
			"purchase_id": purchaseID.String(),
			"serial":      "U1-CP-20260101-001",
			"user_id":     uuid.New().String(),
		},
	}

	if err := service.HandlePurchaseCreated(context.Background(), event); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNotificationService_HandlePurchaseCreated_BadPayload(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	service := NewNotificationService(db, newTestLogger(), nil)

	event := &models.Event{
		ID:   uuid.New(),
		Type: models.EventTypePurchaseCreated,
		Data: map[string]interface{}{"serial": "U1-CP-20260101-001"},
	}

	if err := service.HandlePurchaseCreated(context.Background(), event); err == nil {
		t.Fatal("expected error for missing purchase_id")
	}
}

func TestNotificationService_ListForUser(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewNotificationService(db, newTestLogger(), nil)

	userID := uuid.New()
	purchaseID := uuid.New()

	mock.ExpectQuery("FROM notifications").
		WithArgs(userID, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_id", "kind", "message", "purchase_id", "read", "created_at"}).
			AddRow(uuid.New(), userID, models.NotificationKindNewPurchase, "Новая покупка", purchaseID, false, time.Now()))

	notifications, err := service.ListForUser(context.Background(), userID, 0, 0)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].Kind != models.NotificationKindNewPurchase {
		t.Fatalf("unexpected kind: %s", notifications[0].Kind)
	}
}

func TestNotificationService_MarkRead_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewNotificationService(db, newTestLogger(), nil)

	userID := uuid.New()
	notificationID := uuid.New()

	mock.ExpectExec("UPDATE notifications").
		WithArgs(notificationID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := service.MarkRead(context.Background(), userID, notificationID)
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
