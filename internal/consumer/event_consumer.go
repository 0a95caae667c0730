package consumer

import (
	"encoding/json"
	"log"

	"github.com/eventhub-gh/registration-service/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventConsumer keeps the local events table in sync with the catalog
// service, which owns event CRUD and publishes every change.
type EventConsumer struct {
	db *gorm.DB
}

func NewEventConsumer(db *gorm.DB) *EventConsumer {
	return &EventConsumer{db: db}
}

func (ec *EventConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			ec.handleMessage(msg)
		}
		log.Println("[EventConsumer] channel closed, stopping consumer")
	}()
}

func (ec *EventConsumer) handleMessage(msg amqp.Delivery) {
	var event models.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("[EventConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}

	// Upsert: the catalog service's ID is authoritative.
	result := ec.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "currency", "status", "published", "capacity", "updated_at"}),
	}).Create(&event)

	if result.Error != nil {
		log.Printf("[EventConsumer] failed to upsert event %d: %v", event.ID, result.Error)
		msg.Nack(false, true) // requeue
		return
	}

	log.Printf("[EventConsumer] synced event %d: %s", event.ID, event.Name)
	msg.Ack(false)
}
