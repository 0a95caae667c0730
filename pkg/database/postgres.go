package database

import (
	"log"

	"github.com/eventhub-gh/registration-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Event{}, &models.Registration{}); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Partial unique index: at most one confirmed registration per
	// (event, attendee). This is the backstop for the coordinator's
	// check-then-create race.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_registration_confirmed
		ON registrations (event_id, attendee_email)
		WHERE status = 'confirmed'
	`)

	// Gateway references are globally unique when present.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_registration_payment_reference
		ON registrations (payment_reference)
		WHERE payment_reference <> ''
	`)

	return db
}
