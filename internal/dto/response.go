package dto

import (
	"time"

	"github.com/eventhub-gh/registration-service/internal/models"
)

type RegistrationResponse struct {
	ID               uint                      `json:"id"`
	EventID          uint                      `json:"event_id"`
	AttendeeEmail    string                    `json:"attendee_email"`
	AttendeeName     string                    `json:"attendee_name,omitempty"`
	AttendeePhone    string                    `json:"attendee_phone,omitempty"`
	Status           models.RegistrationStatus `json:"status"`
	PaymentStatus    models.PaymentStatus      `json:"payment_status"`
	TicketType       models.TicketType         `json:"ticket_type"`
	AmountPaid       float64                   `json:"amount_paid"`
	Currency         string                    `json:"currency"`
	PaymentReference string                    `json:"payment_reference,omitempty"`
	CheckInTime      *time.Time                `json:"check_in_time,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// RegisterOutcomeResponse is the terminal outcome of one registration
// attempt: "succeeded", "already_registered" (lost the duplicate race
// but the attendee holds a seat), or "cancelled" (payer abandoned the
// gateway flow; safe to retry).
type RegisterOutcomeResponse struct {
	Outcome      string                `json:"outcome"`
	Registration *RegistrationResponse `json:"registration,omitempty"`
}

type EventStatusResponse struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	Published bool    `json:"published"`
	Capacity  int     `json:"capacity"`
	Confirmed int64   `json:"confirmed_count"`
}

type ErrorResponse struct {
	Message          string `json:"message"`
	PaymentReference string `json:"payment_reference,omitempty"`
}

func ToRegistrationResponse(r *models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:               r.ID,
		EventID:          r.EventID,
		AttendeeEmail:    r.AttendeeEmail,
		AttendeeName:     r.AttendeeName,
		AttendeePhone:    r.AttendeePhone,
		Status:           r.Status,
		PaymentStatus:    r.PaymentStatus,
		TicketType:       r.TicketType,
		AmountPaid:       r.AmountPaid,
		Currency:         r.Currency,
		PaymentReference: r.PaymentReference,
		CheckInTime:      r.CheckInTime,
		CreatedAt:        r.CreatedAt,
	}
}
