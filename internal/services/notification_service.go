package services

import (
	"context"
	"fmt"
	"time"

	"store-system/internal/apperror"
	"store-system/internal/database"
	"store-system/internal/kafka"
	"store-system/internal/logger"
	"store-system/internal/models"

	"github.com/google/uuid"
)

// NotificationService раздаёт уведомления персоналу магазина. Записи
// создаются обработчиком события purchase.created; письмо и событие
// "колокольчика" уходят в топик уведомлений для внешних воркеров.
type NotificationService struct {
	db     *database.DB
	log    *logger.Logger
	events *kafka.Producer
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(db *database.DB, log *logger.Logger, events *kafka.Producer) *NotificationService {
	return &NotificationService{
		db:     db,
		log:    log,
		events: events,
	}
}

// HandlePurchaseCreated обрабатывает событие purchase.created: создаёт по
// уведомлению на каждого сотрудника и переотправляет письмо и колокольчик
// в топик уведомлений. Сбой доставки не влияет на покупку.
func (s *NotificationService) HandlePurchaseCreated(ctx context.Context, event *models.Event) error {
	purchaseID, err := eventUUID(event, "purchase_id")
	if err != nil {
		return err
	}
	serial, _ := event.Data["serial"].(string)

	message := fmt.Sprintf("Новая покупка %s ожидает обработки", serial)
	if err := s.fanOutToStaff(ctx, models.NotificationKindNewPurchase, message, &purchaseID); err != nil {
		return err
	}

	if s.events != nil {
		if userID, err := eventUUID(event, "user_id"); err == nil {
			if err := s.events.PublishEmailRequested(userID, purchaseID, serial); err != nil {
				s.log.WithError(err).WithField("purchase_id", purchaseID).Warn("failed to publish email request")
			}
		}
		if err := s.events.PublishBell(purchaseID, message); err != nil {
			s.log.WithError(err).WithField("purchase_id", purchaseID).Warn("failed to publish bell event")
		}
	}

	return nil
}

// HandlePurchaseDeleted обрабатывает событие purchase.deleted.
func (s *NotificationService) HandlePurchaseDeleted(ctx context.Context, event *models.Event) error {
	purchaseID, err := eventUUID(event, "purchase_id")
	if err != nil {
		return err
	}
	serial, _ := event.Data["serial"].(string)

	message := fmt.Sprintf("Покупка %s удалена администратором", serial)
	return s.fanOutToStaff(ctx, models.NotificationKindPurchaseDeleted, message, &purchaseID)
}

// fanOutToStaff создаёт уведомление каждому сотруднику магазина.
func (s *NotificationService) fanOutToStaff(ctx context.Context, kind models.NotificationKind, message string, purchaseID *uuid.UUID) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM users WHERE role IN ('admin', 'subadmin', 'moderator')")
	if err != nil {
		return fmt.Errorf("failed to load staff users: %w", err)
	}
	defer rows.Close()

	var staffIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan staff id: %w", err)
		}
		staffIDs = append(staffIDs, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate staff users: %w", err)
	}

	query := `
		INSERT INTO notifications (id, recipient_id, kind, message, purchase_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
	`

	for _, staffID := range staffIDs {
		if _, err := s.db.ExecContext(ctx, query, uuid.New(), staffID, kind, message, purchaseID, time.Now()); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
	}

	s.log.WithFields(map[string]interface{}{
		"kind":       kind,
		"recipients": len(staffIDs),
	}).Debug("Notifications created")

	return nil
}

// ListForUser возвращает уведомления пользователя, новые сверху.
func (s *NotificationService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, recipient_id, kind, message, purchase_id, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Message, &n.PurchaseID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead помечает уведомление пользователя прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = true WHERE id = $1 AND recipient_id = $2", notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("notification not found", nil)
	}
	return nil
}

func eventUUID(event *models.Event, field string) (uuid.UUID, error) {
	raw, ok := event.Data[field].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("event %s is missing %s", event.Type, field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("event %s has invalid %s: %w", event.Type, field, err)
	}
	return id, nil
}
