package dto

type RegisterRequest struct {
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email" validate:"required,email"`
	AttendeePhone string `json:"attendee_phone"`
}
