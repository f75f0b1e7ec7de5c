package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"store-system/internal/config"
	"store-system/internal/logger"
	"store-system/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует события покупок и уведомлений в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает нового продюсера Kafka
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("Successfully connected to Kafka")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// Close закрывает продюсера
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// publishEvent сериализует событие и отправляет его в топик
func (p *Producer) publishEvent(topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":     topic,
		"type":      event.Type,
		"partition": partition,
		"offset":    offset,
	}).Debug("Event published")

	return nil
}

func newEvent(eventType models.EventType, data map[string]interface{}) models.Event {
	return models.Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now(),
		Data:       data,
	}
}

// PublishPurchaseCreated публикует событие о новой покупке
func (p *Producer) PublishPurchaseCreated(purchase *models.Purchase) error {
	return p.publishEvent(p.topics.Purchases, newEvent(models.EventTypePurchaseCreated, map[string]interface{}{
		"purchase_id": purchase.ID.String(),
		"serial":      purchase.Serial,
		"user_id":     purchase.UserID.String(),
		"total":       purchase.Total,
	}))
}

// PublishPurchaseStatusChanged публикует событие смены статуса покупки
func (p *Producer) PublishPurchaseStatusChanged(purchaseID uuid.UUID, oldStatus, newStatus models.PurchaseStatus, actorID uuid.UUID) error {
	return p.publishEvent(p.topics.Purchases, newEvent(models.EventTypePurchaseStatusChanged, map[string]interface{}{
		"purchase_id": purchaseID.String(),
		"old_status":  string(oldStatus),
		"new_status":  string(newStatus),
		"actor_id":    actorID.String(),
	}))
}

// PublishPurchaseDeleted публикует событие удаления покупки
func (p *Producer) PublishPurchaseDeleted(purchaseID uuid.UUID, serial string) error {
	return p.publishEvent(p.topics.Purchases, newEvent(models.EventTypePurchaseDeleted, map[string]interface{}{
		"purchase_id": purchaseID.String(),
		"serial":      serial,
	}))
}

// PublishEmailRequested публикует запрос на отправку письма о покупке.
// Фактическую доставку выполняет внешний воркер топика уведомлений.
func (p *Producer) PublishEmailRequested(userID uuid.UUID, purchaseID uuid.UUID, serial string) error {
	return p.publishEvent(p.topics.Notifications, newEvent(models.EventTypeEmailRequested, map[string]interface{}{
		"user_id":     userID.String(),
		"purchase_id": purchaseID.String(),
		"serial":      serial,
	}))
}

// PublishBell публикует real-time событие "колокольчика" для админки
func (p *Producer) PublishBell(purchaseID uuid.UUID, message string) error {
	return p.publishEvent(p.topics.Notifications, newEvent(models.EventTypeBell, map[string]interface{}{
		"purchase_id": purchaseID.String(),
		"message":     message,
	}))
}
