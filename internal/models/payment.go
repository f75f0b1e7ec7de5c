package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod представляет способ оплаты (банковский счёт или кошелёк),
// на который покупатель переводит сумму перед оформлением.
type PaymentMethod struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Number    string    `json:"number" db:"number"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
