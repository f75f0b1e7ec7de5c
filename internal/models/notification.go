package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind представляет тип уведомления
type NotificationKind string

const (
	NotificationKindNewPurchase     NotificationKind = "new_purchase"
	NotificationKindPurchaseDeleted NotificationKind = "purchase_deleted"
)

// Notification представляет уведомление для сотрудника магазина
type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	RecipientID uuid.UUID        `json:"recipient_id" db:"recipient_id"`
	Kind        NotificationKind `json:"kind" db:"kind"`
	Message     string           `json:"message" db:"message"`
	PurchaseID  *uuid.UUID       `json:"purchase_id,omitempty" db:"purchase_id"`
	Read        bool             `json:"read" db:"read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}
