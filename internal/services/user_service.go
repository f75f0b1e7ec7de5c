package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"store-system/internal/apperror"
	"store-system/internal/database"
	"store-system/internal/logger"
	"store-system/internal/models"

	"github.com/google/uuid"
)

// UserService управляет пользователями и их агрегатами: статистикой
// покупок покупателя и месячным счётчиком подтверждений сотрудника.
type UserService struct {
	db  *database.DB
	log *logger.Logger
	loc *time.Location
}

// NewUserService создаёт сервис пользователей. Границы календарного месяца
// для счётчика подтверждений считаются в часовом поясе магазина.
func NewUserService(db *database.DB, log *logger.Logger, loc *time.Location) *UserService {
	if loc == nil {
		loc = time.UTC
	}
	return &UserService{
		db:  db,
		log: log,
		loc: loc,
	}
}

// GetUser возвращает пользователя по идентификатору.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, serial, name, email, role, number_of_purchases, total_spent_amount,
			monthly_confirmed_count, last_confirmed_count_update, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Serial, &user.Name, &user.Email, &user.Role,
		&user.NumberOfPurchases, &user.TotalSpentAmount,
		&user.MonthlyConfirmedCount, &user.LastConfirmedCountUpdate,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetMonthlyConfirmedCount возвращает количество покупок, подтверждённых
// сотрудником за текущий календарный месяц. Кешированное значение
// пересчитывается лениво, если отметка относится к другому календарному месяцу.
func (s *UserService) GetMonthlyConfirmedCount(ctx context.Context, staffID uuid.UUID) (*models.MonthlyConfirmedCount, error) {
	user, err := s.GetUser(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsStaff() {
		return nil, apperror.Validation("monthly confirmed count is only tracked for staff", nil)
	}

	if s.countIsStale(user.LastConfirmedCountUpdate) {
		count, err := s.RecomputeMonthlyConfirmedCount(ctx, staffID)
		if err != nil {
			return nil, err
		}
		return count, nil
	}

	return &models.MonthlyConfirmedCount{
		UserID:      user.ID,
		Count:       user.MonthlyConfirmedCount,
		LastUpdated: *user.LastConfirmedCountUpdate,
	}, nil
}

// RecomputeMonthlyConfirmedCount пересчитывает месячный счётчик по факту
// подтверждений и сохраняет результат. Операция идемпотентна, повторный
// вызов даёт то же значение.
func (s *UserService) RecomputeMonthlyConfirmedCount(ctx context.Context, staffID uuid.UUID) (*models.MonthlyConfirmedCount, error) {
	monthStart := s.currentMonthStart()
	monthEnd := monthStart.AddDate(0, 1, 0)

	var count int
	countQuery := `
		SELECT COUNT(*)
		FROM purchases
		WHERE confirmed_by = $1 AND status = 'confirmed'
			AND confirmed_at >= $2 AND confirmed_at < $3
	`
	if err := s.db.QueryRowContext(ctx, countQuery, staffID, monthStart, monthEnd).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count confirmed purchases: %w", err)
	}

	now := time.Now()
	updateQuery := `
		UPDATE users
		SET monthly_confirmed_count = $1, last_confirmed_count_update = $2, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, updateQuery, count, now, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to update monthly confirmed count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("user not found", nil)
	}

	s.log.WithField("staff_id", staffID).WithField("count", count).Debug("Monthly confirmed count recomputed")

	return &models.MonthlyConfirmedCount{
		UserID:      staffID,
		Count:       count,
		LastUpdated: now,
	}, nil
}

// IncrementPurchaseStats увеличивает счётчики покупателя после
// подтверждения его покупки.
func (s *UserService) IncrementPurchaseStats(ctx context.Context, userID uuid.UUID, total float64) error {
	return s.adjustPurchaseStats(ctx, userID, 1, total)
}

// DecrementPurchaseStats откатывает счётчики покупателя при возврате или
// удалении подтверждённой покупки.
func (s *UserService) DecrementPurchaseStats(ctx context.Context, userID uuid.UUID, total float64) error {
	return s.adjustPurchaseStats(ctx, userID, -1, -total)
}

func (s *UserService) adjustPurchaseStats(ctx context.Context, userID uuid.UUID, delta int, amount float64) error {
	query := `
		UPDATE users
		SET number_of_purchases = GREATEST(number_of_purchases + $1, 0),
			total_spent_amount = GREATEST(total_spent_amount + $2, 0),
			updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, delta, amount, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to adjust purchase stats: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user not found", nil)
	}
	return nil
}

func (s *UserService) currentMonthStart() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
}

// countIsStale сообщает, относится ли кешированный счётчик к другому
// календарному месяцу магазина. Отметка из будущего месяца тоже считается
// протухшей и требует пересчёта.
func (s *UserService) countIsStale(lastUpdate *time.Time) bool {
	if lastUpdate == nil {
		return true
	}
	now := time.Now().In(s.loc)
	last := lastUpdate.In(s.loc)
	return last.Year() != now.Year() || last.Month() != now.Month()
}
