package models

import "time"

const EventStatusPublished = "published"

// Event is a local copy of the catalog service's event record, kept in
// sync through the event consumer. This service never mutates it.
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Price     float64   `gorm:"not null;default:0" json:"price"`
	Currency  string    `gorm:"type:varchar(3)" json:"currency"`
	Status    string    `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	Published bool      `gorm:"not null;default:false" json:"published"`
	Capacity  int       `gorm:"not null;default:0" json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Event) OpenForRegistration() bool {
	return e.Published && e.Status == EventStatusPublished
}

func (e *Event) IsFree() bool {
	return e.Price == 0
}
