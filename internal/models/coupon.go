package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon представляет одноразовый купон с фиксированной скидкой.
// IsActive служит одноразовым затвором: потребление купона сбрасывает флаг
// и атомарно заполняет поля использования.
type Coupon struct {
	Code              string     `json:"code" db:"code"`
	Value             float64    `json:"value" db:"value"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty" db:"expiration_date"`
	UsedAt            *time.Time `json:"used_at,omitempty" db:"used_at"`
	AppliedToPurchase *uuid.UUID `json:"applied_to_purchase,omitempty" db:"applied_to_purchase"`
	UsedBy            *uuid.UUID `json:"used_by,omitempty" db:"used_by"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateCouponRequest описывает запрос на создание купона.
type CreateCouponRequest struct {
	Code           string     `json:"code"`
	Value          float64    `json:"value"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// UpdateCouponRequest описывает запрос на обновление купона.
type UpdateCouponRequest struct {
	Value          float64    `json:"value"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IsActive       bool       `json:"is_active"`
}
