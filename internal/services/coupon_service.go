package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"store-system/internal/apperror"
	"store-system/internal/database"
	"store-system/internal/logger"
	"store-system/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CouponService управляет одноразовыми купонами.
type CouponService struct {
	db  *database.DB
	log *logger.Logger
}

// NewCouponService создаёт сервис купонов.
func NewCouponService(db *database.DB, log *logger.Logger) *CouponService {
	return &CouponService{
		db:  db,
		log: log,
	}
}

// CreateCoupon создаёт новый купон.
func (s *CouponService) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error) {
	if req.Code == "" {
		return nil, apperror.Validation("coupon code is required", nil)
	}
	if req.Value <= 0 {
		return nil, apperror.Validation("coupon value must be positive", nil)
	}

	coupon := &models.Coupon{
		Code:           req.Code,
		Value:          req.Value,
		IsActive:       true,
		ExpirationDate: req.ExpirationDate,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	query := `
		INSERT INTO coupons (code, value, is_active, expiration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query, coupon.Code, coupon.Value, coupon.IsActive, coupon.ExpirationDate, coupon.CreatedAt, coupon.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperror.Conflict("coupon already exists", err)
		}
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	s.log.WithField("coupon_code", coupon.Code).Info("Coupon created")
	return coupon, nil
}

// GetCoupon возвращает купон по коду.
func (s *CouponService) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	query := `
		SELECT code, value, is_active, expiration_date, used_at, applied_to_purchase, used_by, created_at, updated_at
		FROM coupons
		WHERE code = $1
	`

	coupon := &models.Coupon{}
	if err := s.db.QueryRowContext(ctx, query, code).Scan(
		&coupon.Code, &coupon.Value, &coupon.IsActive, &coupon.ExpirationDate,
		&coupon.UsedAt, &coupon.AppliedToPurchase, &coupon.UsedBy, &coupon.CreatedAt, &coupon.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("coupon not found", err)
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return coupon, nil
}

// ListCoupons возвращает список купонов.
func (s *CouponService) ListCoupons(ctx context.Context, limit, offset int) ([]*models.Coupon, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT code, value, is_active, expiration_date, used_at, applied_to_purchase, used_by, created_at, updated_at
		FROM coupons
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*models.Coupon
	for rows.Next() {
		c := &models.Coupon{}
		if err := rows.Scan(&c.Code, &c.Value, &c.IsActive, &c.ExpirationDate, &c.UsedAt, &c.AppliedToPurchase, &c.UsedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}

	return coupons, nil
}

// UpdateCoupon обновляет параметры купона.
func (s *CouponService) UpdateCoupon(ctx context.Context, code string, req *models.UpdateCouponRequest) (*models.Coupon, error) {
	if req.Value <= 0 {
		return nil, apperror.Validation("coupon value must be positive", nil)
	}

	query := `
		UPDATE coupons
		SET value = $1, expiration_date = $2, is_active = $3, updated_at = $4
		WHERE code = $5
	`

	result, err := s.db.ExecContext(ctx, query, req.Value, req.ExpirationDate, req.IsActive, time.Now(), code)
	if err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("coupon not found", nil)
	}

	return s.GetCoupon(ctx, code)
}

// DeleteCoupon удаляет купон.
func (s *CouponService) DeleteCoupon(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM coupons WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("coupon not found", nil)
	}
	return nil
}

// Validate проверяет, что купон можно применить, и возвращает его.
func (s *CouponService) Validate(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.GetCoupon(ctx, code)
	if err != nil {
		return nil, err
	}
	if !coupon.IsActive {
		return nil, apperror.Conflict("coupon has already been used", nil)
	}
	if coupon.ExpirationDate != nil && coupon.ExpirationDate.Before(time.Now()) {
		return nil, apperror.Conflict("coupon has expired", nil)
	}
	return coupon, nil
}

// ConsumeWithTx потребляет купон в рамках транзакции оформления покупки:
// одноразовый затвор снимается, поля использования заполняются атомарно.
// Возвращает размер скидки.
func (s *CouponService) ConsumeWithTx(ctx context.Context, tx *sql.Tx, code string, purchaseID, userID uuid.UUID) (float64, error) {
	query := `
		SELECT value, is_active, expiration_date
		FROM coupons
		WHERE code = $1
		FOR UPDATE
	`

	var (
		value     float64
		active    bool
		expiresAt *time.Time
	)

	if err := tx.QueryRowContext(ctx, query, code).Scan(&value, &active, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("coupon not found", err)
		}
		return 0, fmt.Errorf("failed to get coupon: %w", err)
	}

	if !active {
		return 0, apperror.Conflict("coupon has already been used", nil)
	}

	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return 0, apperror.Conflict("coupon has expired", nil)
	}

	updateQuery := `
		UPDATE coupons
		SET is_active = false, used_at = $1, applied_to_purchase = $2, used_by = $3, updated_at = $1
		WHERE code = $4
	`
	if _, err := tx.ExecContext(ctx, updateQuery, time.Now(), purchaseID, userID, code); err != nil {
		return 0, fmt.Errorf("failed to consume coupon: %w", err)
	}

	return value, nil
}

// Reactivate возвращает купон в активное состояние и очищает поля
// использования. Вызывается при удалении подтверждённой покупки.
func (s *CouponService) Reactivate(ctx context.Context, code string) error {
	query := `
		UPDATE coupons
		SET is_active = true, used_at = NULL, applied_to_purchase = NULL, used_by = NULL, updated_at = $1
		WHERE code = $2
	`

	result, err := s.db.ExecContext(ctx, query, time.Now(), code)
	if err != nil {
		return fmt.Errorf("failed to reactivate coupon: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("coupon not found", nil)
	}

	s.log.WithField("coupon_code", code).Info("Coupon reactivated")
	return nil
}
