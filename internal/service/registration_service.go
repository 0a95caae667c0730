package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/eventhub-gh/registration-service/internal/models"
	"github.com/eventhub-gh/registration-service/internal/money"
	"github.com/eventhub-gh/registration-service/internal/payment"
	"github.com/eventhub-gh/registration-service/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationClosed   = errors.New("event is not open for registration")
	ErrAlreadyRegistered    = errors.New("attendee already has a confirmed registration for this event")
	ErrAlreadyCheckedIn     = errors.New("registration already checked in")
	ErrInvalidRequest       = errors.New("invalid registration request")
	ErrRetryableStore       = errors.New("registration store unavailable, try again shortly")
	ErrPaymentIndeterminate = errors.New("payment outcome unknown, contact support before retrying")
	ErrPaidButUnrecorded    = errors.New("payment captured but registration not recorded")
)

// PaidButUnrecordedError is the asymmetric failure this core exists to
// name: the gateway captured funds but the store write failed. It
// carries the gateway reference so support can reconcile the charge,
// and must never be surfaced like a clean payment failure.
type PaidButUnrecordedError struct {
	Reference string
	Cause     error
}

func (e *PaidButUnrecordedError) Error() string {
	return fmt.Sprintf("payment captured but registration not recorded (reference %s): %v", e.Reference, e.Cause)
}

func (e *PaidButUnrecordedError) Unwrap() error { return e.Cause }

func (e *PaidButUnrecordedError) Is(target error) bool { return target == ErrPaidButUnrecorded }

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Transition is one step of a registration attempt. The stream ends
// with the first non-Processing transition: Succeeded with the created
// (or, after losing a duplicate race, the existing) registration,
// Failed with a typed error, or Idle. A terminal Idle is either a
// pre-flight rejection (Err set, nothing happened) or a gateway
// cancellation (Err nil, the attendee may simply retry).
type Transition struct {
	State        State
	Registration *models.Registration
	Err          error
}

func (t Transition) Terminal() bool { return t.State != StateProcessing }

type AttendeeInfo struct {
	Name  string
	Email string
	Phone string
}

// Publisher pushes registration lifecycle messages to operator queues.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// ReconcileAlert is published whenever money moved without a durable
// registration, so support can reconcile against the gateway.
type ReconcileAlert struct {
	EventID          uint      `json:"event_id"`
	AttendeeEmail    string    `json:"attendee_email"`
	PaymentReference string    `json:"payment_reference"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	OccurredAt       time.Time `json:"occurred_at"`
}

type RegistrationService interface {
	Register(ctx context.Context, eventID uint, attendee AttendeeInfo) <-chan Transition
	GetRegistration(ctx context.Context, id uint) (*models.Registration, error)
	ListRegistrations(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error)
	EventStatus(ctx context.Context, eventID uint) (*models.Event, int64, error)
	CheckIn(ctx context.Context, id uint) (*models.Registration, error)
}

const (
	freePathAttempts = 3
	freePathBackoff  = 100 * time.Millisecond
)

type registrationService struct {
	regRepo         repository.RegistrationRepository
	eventRepo       repository.EventRepository
	adapter         *payment.Adapter
	publisher       Publisher
	defaultCurrency string
}

func NewRegistrationService(regRepo repository.RegistrationRepository, eventRepo repository.EventRepository, adapter *payment.Adapter, publisher Publisher, defaultCurrency string) RegistrationService {
	return &registrationService{
		regRepo:         regRepo,
		eventRepo:       eventRepo,
		adapter:         adapter,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
	}
}

// Register runs one attempt of the registration state machine and
// streams its transitions. The channel is buffered and always closed,
// so callers may drain it without a goroutine.
func (s *registrationService) Register(ctx context.Context, eventID uint, attendee AttendeeInfo) <-chan Transition {
	out := make(chan Transition, 4)
	go func() {
		defer close(out)
		s.register(ctx, eventID, attendee, out)
	}()
	return out
}

func (s *registrationService) register(ctx context.Context, eventID uint, attendee AttendeeInfo, out chan<- Transition) {
	email := NormalizeEmail(attendee.Email)
	if email == "" {
		out <- Transition{State: StateIdle, Err: fmt.Errorf("%w: attendee email is required", ErrInvalidRequest)}
		return
	}

	// Guard: the event must exist and be open. Rejections here happen
	// before the machine leaves Idle; nothing was attempted.
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out <- Transition{State: StateIdle, Err: ErrEventNotFound}
			return
		}
		out <- Transition{State: StateIdle, Err: fmt.Errorf("%w: %v", ErrRetryableStore, err)}
		return
	}
	if !event.OpenForRegistration() {
		out <- Transition{State: StateIdle, Err: ErrRegistrationClosed}
		return
	}

	// Duplicate guard. Best-effort: the partial unique index on
	// confirmed rows is the real backstop for the check/create race.
	existing, err := s.regRepo.FindConfirmed(ctx, event.ID, email)
	if err == nil && existing != nil {
		out <- Transition{State: StateIdle, Registration: existing, Err: ErrAlreadyRegistered}
		return
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		out <- Transition{State: StateIdle, Err: fmt.Errorf("%w: %v", ErrRetryableStore, err)}
		return
	}

	out <- Transition{State: StateProcessing}

	if event.IsFree() {
		s.registerFree(ctx, event, attendee, email, out)
		return
	}
	s.registerPaid(ctx, event, attendee, email, out)
}

func (s *registrationService) registerFree(ctx context.Context, event *models.Event, attendee AttendeeInfo, email string, out chan<- Transition) {
	reg := &models.Registration{
		EventID:       event.ID,
		AttendeeEmail: email,
		AttendeeName:  attendee.Name,
		AttendeePhone: attendee.Phone,
		Status:        models.StatusConfirmed,
		PaymentStatus: models.PaymentCompleted,
		TicketType:    models.TicketFree,
		AmountPaid:    0,
		Currency:      s.currencyFor(event),
	}

	err := s.createWithRetry(ctx, reg)
	switch {
	case err == nil:
		s.publishConfirmed(reg)
		out <- Transition{State: StateSucceeded, Registration: reg}
	case errors.Is(err, repository.ErrConflict):
		// Another request won the race; the attendee is registered
		// either way. Informational, not a failure.
		winner, findErr := s.regRepo.FindConfirmed(ctx, event.ID, email)
		if findErr != nil {
			winner = nil
		}
		out <- Transition{State: StateSucceeded, Registration: winner, Err: ErrAlreadyRegistered}
	default:
		out <- Transition{State: StateFailed, Err: fmt.Errorf("%w: %v", ErrRetryableStore, err)}
	}
}

// createWithRetry is free-path only: no money has moved, so a bounded
// number of automatic retries on transient store errors is safe.
func (s *registrationService) createWithRetry(ctx context.Context, reg *models.Registration) error {
	var err error
	for attempt := 1; attempt <= freePathAttempts; attempt++ {
		err = s.regRepo.Create(ctx, reg)
		if err == nil || !errors.Is(err, repository.ErrUnavailable) {
			return err
		}
		log.Printf("[Registration] free-path create attempt %d/%d failed: %v", attempt, freePathAttempts, err)
		select {
		case <-time.After(freePathBackoff):
		case <-ctx.Done():
			return err
		}
	}
	return err
}

func (s *registrationService) registerPaid(ctx context.Context, event *models.Event, attendee AttendeeInfo, email string, out chan<- Transition) {
	amountMinor, err := money.ToMinorUnits(event.Price)
	if err != nil {
		out <- Transition{State: StateFailed, Err: fmt.Errorf("%w: event price: %v", ErrInvalidRequest, err)}
		return
	}
	currency := s.currencyFor(event)

	outcome, err := s.adapter.Charge(ctx, payment.ChargeRequest{
		AmountMinor: amountMinor,
		Currency:    currency,
		PayerEmail:  email,
		Metadata: map[string]string{
			"event_id":       strconv.FormatUint(uint64(event.ID), 10),
			"event_name":     event.Name,
			"attendee_email": email,
		},
	})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidRequest) {
			out <- Transition{State: StateFailed, Err: fmt.Errorf("%w: %v", ErrInvalidRequest, err)}
			return
		}
		out <- Transition{State: StateFailed, Err: fmt.Errorf("%w: %v", ErrPaymentIndeterminate, err)}
		return
	}

	if outcome.Status == payment.StatusCancelled {
		// The payer abandoned the flow; no funds moved. Back to Idle
		// so a retry carries no error banner.
		out <- Transition{State: StateIdle}
		return
	}

	reg := &models.Registration{
		EventID:          event.ID,
		AttendeeEmail:    email,
		AttendeeName:     attendee.Name,
		AttendeePhone:    attendee.Phone,
		Status:           models.StatusConfirmed,
		PaymentStatus:    models.PaymentCompleted,
		TicketType:       models.TicketPaid,
		AmountPaid:       event.Price,
		Currency:         currency,
		PaymentReference: outcome.Reference,
		GatewayResponse:  outcome.Raw,
	}

	// Money has moved: no automatic retry on this write.
	if err := s.regRepo.Create(ctx, reg); err != nil {
		s.publishReconcile(event, email, outcome.Reference)
		out <- Transition{State: StateFailed, Err: &PaidButUnrecordedError{Reference: outcome.Reference, Cause: err}}
		return
	}

	s.publishConfirmed(reg)
	out <- Transition{State: StateSucceeded, Registration: reg}
}

func (s *registrationService) GetRegistration(ctx context.Context, id uint) (*models.Registration, error) {
	reg, err := s.regRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) ListRegistrations(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error) {
	return s.regRepo.FindByEventID(ctx, eventID, status)
}

// EventStatus returns the event and its confirmed count. The count is
// display-only; registration never rejects on capacity.
func (s *registrationService) EventStatus(ctx context.Context, eventID uint) (*models.Event, int64, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, 0, ErrEventNotFound
	}
	confirmed, err := s.regRepo.CountConfirmed(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	return event, confirmed, nil
}

func (s *registrationService) CheckIn(ctx context.Context, id uint) (*models.Registration, error) {
	reg, err := s.regRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	if reg.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("%w: only confirmed registrations can check in", ErrInvalidRequest)
	}

	updated, err := s.regRepo.SetCheckInTime(ctx, id, time.Now())
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, ErrAlreadyCheckedIn
	}
	return s.regRepo.FindByID(ctx, id)
}

func (s *registrationService) currencyFor(event *models.Event) string {
	if event.Currency != "" {
		return event.Currency
	}
	return s.defaultCurrency
}

func (s *registrationService) publishConfirmed(reg *models.Registration) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish("registration.confirmed", reg); err != nil {
		log.Printf("[Registration] publish confirmed for registration %d: %v", reg.ID, err)
	}
}

func (s *registrationService) publishReconcile(event *models.Event, email, reference string) {
	alert := ReconcileAlert{
		EventID:          event.ID,
		AttendeeEmail:    email,
		PaymentReference: reference,
		Amount:           event.Price,
		Currency:         s.currencyFor(event),
		OccurredAt:       time.Now().UTC(),
	}
	if s.publisher == nil {
		log.Printf("[Registration] UNRECORDED CHARGE reference=%s event=%d email=%s", reference, event.ID, email)
		return
	}
	if err := s.publisher.Publish("registration.reconcile", alert); err != nil {
		// Last resort: the charge must at least reach the logs.
		log.Printf("[Registration] UNRECORDED CHARGE reference=%s event=%d email=%s (publish failed: %v)", reference, event.ID, email, err)
	}
}

// NormalizeEmail lower-cases and trims; the de-duplication key is the
// normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
