package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole представляет роль пользователя
type UserRole string

const (
	UserRoleCustomer  UserRole = "customer"
	UserRoleModerator UserRole = "moderator"
	UserRoleSubadmin  UserRole = "subadmin"
	UserRoleAdmin     UserRole = "admin"
)

// User представляет пользователя магазина. Для покупателей ведётся
// статистика покупок, для сотрудников — кеш количества подтверждений
// за текущий календарный месяц.
type User struct {
	ID                       uuid.UUID  `json:"id" db:"id"`
	Serial                   string     `json:"serial" db:"serial"`
	Name                     string     `json:"name" db:"name"`
	Email                    string     `json:"email" db:"email"`
	Role                     UserRole   `json:"role" db:"role"`
	NumberOfPurchases        int        `json:"number_of_purchases" db:"number_of_purchases"`
	TotalSpentAmount         float64    `json:"total_spent_amount" db:"total_spent_amount"`
	MonthlyConfirmedCount    int        `json:"monthly_confirmed_count" db:"monthly_confirmed_count"`
	LastConfirmedCountUpdate *time.Time `json:"last_confirmed_count_update,omitempty" db:"last_confirmed_count_update"`
	CreatedAt                time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at" db:"updated_at"`
}

// IsStaff сообщает, относится ли роль к персоналу магазина.
func (r UserRole) IsStaff() bool {
	return r == UserRoleModerator || r == UserRoleSubadmin || r == UserRoleAdmin
}

// MonthlyConfirmedCount представляет ответ на запрос месячного счётчика
type MonthlyConfirmedCount struct {
	UserID      uuid.UUID `json:"user_id"`
	Count       int       `json:"count"`
	LastUpdated time.Time `json:"last_updated"`
}
