package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип события в Kafka
type EventType string

const (
	EventTypePurchaseCreated       EventType = "purchase.created"
	EventTypePurchaseStatusChanged EventType = "purchase.status_changed"
	EventTypePurchaseDeleted       EventType = "purchase.deleted"
	EventTypeEmailRequested        EventType = "notification.email_requested"
	EventTypeBell                  EventType = "notification.bell"
)

// Event представляет событие, публикуемое после коммита основной записи.
// Доставка best-effort: сбой публикации логируется и не откатывает запись.
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       EventType              `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}
