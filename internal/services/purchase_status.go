package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"store-system/internal/apperror"
	"store-system/internal/models"

	"github.com/google/uuid"
)

// ReceivePurchase переводит покупку из pending в received.
func (s *PurchaseService) ReceivePurchase(ctx context.Context, purchaseID, actorID uuid.UUID) (*models.Purchase, error) {
	return s.transition(ctx, purchaseID, actorID, models.ActionReceive)
}

// ConfirmPurchase подтверждает полученную (или возвращённую) покупку и
// сразу пересчитывает месячный счётчик подтверждений сотрудника.
func (s *PurchaseService) ConfirmPurchase(ctx context.Context, purchaseID, actorID uuid.UUID) (*models.Purchase, error) {
	purchase, err := s.transition(ctx, purchaseID, actorID, models.ActionConfirm)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.RecomputeMonthlyConfirmedCount(ctx, actorID); err != nil {
		s.log.WithError(err).WithField("staff_id", actorID).Warn("failed to recompute monthly confirmed count")
	}

	return purchase, nil
}

// ReturnPurchase помечает подтверждённую покупку возвращённой.
func (s *PurchaseService) ReturnPurchase(ctx context.Context, purchaseID, actorID uuid.UUID) (*models.Purchase, error) {
	return s.transition(ctx, purchaseID, actorID, models.ActionReturn)
}

// transition выполняет переход статуса: строка блокируется FOR UPDATE,
// допустимость перехода решает models.NextStatus, при отказе строка не
// меняется. Пара "кто/когда" перехода перезаписывается текущим актором.
func (s *PurchaseService) transition(ctx context.Context, purchaseID, actorID uuid.UUID, action models.StatusAction) (*models.Purchase, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentStatus models.PurchaseStatus
	selectQuery := `
		SELECT status
		FROM purchases
		WHERE id = $1
		FOR UPDATE
	`
	if err := tx.QueryRowContext(ctx, selectQuery, purchaseID).Scan(&currentStatus); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("purchase not found", err)
		}
		return nil, fmt.Errorf("failed to fetch purchase status: %w", err)
	}

	newStatus, err := models.NextStatus(currentStatus, action)
	if err != nil {
		return nil, apperror.Conflict(err.Error(), nil)
	}

	now := time.Now()

	var updateQuery string
	switch action {
	case models.ActionReceive:
		updateQuery = "UPDATE purchases SET status = $1, received_by = $2, received_at = $3, updated_at = $3 WHERE id = $4"
	case models.ActionConfirm:
		updateQuery = "UPDATE purchases SET status = $1, confirmed_by = $2, confirmed_at = $3, updated_at = $3 WHERE id = $4"
	case models.ActionReturn:
		updateQuery = "UPDATE purchases SET status = $1, returned_by = $2, returned_at = $3, updated_at = $3 WHERE id = $4"
	default:
		return nil, apperror.Validation(fmt.Sprintf("unknown status action %q", action), nil)
	}

	if _, err := tx.ExecContext(ctx, updateQuery, newStatus, actorID, now, purchaseID); err != nil {
		return nil, fmt.Errorf("failed to update purchase status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	s.invalidate(ctx, purchaseID)

	if s.events != nil {
		if err := s.events.PublishPurchaseStatusChanged(purchaseID, currentStatus, newStatus, actorID); err != nil {
			s.log.WithError(err).WithField("purchase_id", purchaseID).Warn("failed to publish status change event")
		}
	}

	s.log.WithFields(map[string]interface{}{
		"purchase_id": purchaseID,
		"old_status":  currentStatus,
		"new_status":  newStatus,
		"actor_id":    actorID,
	}).Info("Purchase status updated")

	return s.GetPurchase(ctx, purchaseID)
}

// AddAdminNote записывает заметку администратора; статус покупки не важен.
func (s *PurchaseService) AddAdminNote(ctx context.Context, purchaseID, actorID uuid.UUID, note string) (*models.Purchase, error) {
	if note == "" {
		return nil, apperror.Validation("note is required", nil)
	}

	query := `
		UPDATE purchases
		SET admin_notes = $1, admin_note_by = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, note, actorID, time.Now(), purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to add admin note: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("purchase not found", nil)
	}

	s.invalidate(ctx, purchaseID)

	return s.GetPurchase(ctx, purchaseID)
}
