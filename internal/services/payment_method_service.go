package services

import (
	"context"
	"database/sql"
	"fmt"

	"store-system/internal/apperror"
	"store-system/internal/database"
	"store-system/internal/logger"
	"store-system/internal/models"

	"github.com/google/uuid"
)

// PaymentMethodService отдаёт способы оплаты магазина.
type PaymentMethodService struct {
	db  *database.DB
	log *logger.Logger
}

// NewPaymentMethodService создаёт сервис способов оплаты.
func NewPaymentMethodService(db *database.DB, log *logger.Logger) *PaymentMethodService {
	return &PaymentMethodService{
		db:  db,
		log: log,
	}
}

// ListActive возвращает активные способы оплаты.
func (s *PaymentMethodService) ListActive(ctx context.Context) ([]*models.PaymentMethod, error) {
	query := `
		SELECT id, name, number, active, created_at
		FROM payment_methods
		WHERE active = true
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	methods := []*models.PaymentMethod{}
	for rows.Next() {
		m := &models.PaymentMethod{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Number, &m.Active, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment methods: %w", err)
	}

	return methods, nil
}

// GetActive возвращает активный способ оплаты по идентификатору.
func (s *PaymentMethodService) GetActive(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	query := `
		SELECT id, name, number, active, created_at
		FROM payment_methods
		WHERE id = $1
	`

	m := &models.PaymentMethod{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Name, &m.Number, &m.Active, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("payment method not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	if !m.Active {
		return nil, apperror.Validation("payment method is not active", nil)
	}

	return m, nil
}
