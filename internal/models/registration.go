package models

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type RegistrationStatus string

const (
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
	StatusWaitlist  RegistrationStatus = "waitlist"
)

type TicketType string

const (
	TicketFree TicketType = "free"
	TicketPaid TicketType = "paid"
)

// Registration is one attendee's claim on one event. AttendeeEmail is
// stored lower-cased; (event_id, attendee_email) is unique among
// confirmed rows via a partial index created at migration time.
type Registration struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	EventID          uint               `gorm:"not null;index" json:"event_id"`
	AttendeeEmail    string             `gorm:"not null;index" json:"attendee_email"`
	AttendeeName     string             `json:"attendee_name,omitempty"`
	AttendeePhone    string             `json:"attendee_phone,omitempty"`
	Status           RegistrationStatus `gorm:"type:varchar(20);not null;default:'confirmed'" json:"status"`
	PaymentStatus    PaymentStatus      `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	TicketType       TicketType         `gorm:"type:varchar(10);not null" json:"ticket_type"`
	AmountPaid       float64            `gorm:"not null;default:0" json:"amount_paid"`
	Currency         string             `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentReference string             `json:"payment_reference,omitempty"`
	GatewayResponse  []byte             `gorm:"type:jsonb" json:"-"`
	CheckInTime      *time.Time         `json:"check_in_time,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}
