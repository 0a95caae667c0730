//go:build integration

package integration

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eventhub-gh/registration-service/internal/models"
	"github.com/eventhub-gh/registration-service/internal/payment"
	"github.com/eventhub-gh/registration-service/internal/repository"
	"github.com/eventhub-gh/registration-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventIDCounter uint = 0

func nextEventID() uint {
	eventIDCounter++
	return eventIDCounter
}

func createTestEvent(t *testing.T, name string, price float64) *models.Event {
	t.Helper()
	event := &models.Event{
		ID:        nextEventID(),
		Name:      name,
		Price:     price,
		Currency:  "GHS",
		Status:    models.EventStatusPublished,
		Published: true,
		Capacity:  100,
	}
	require.NoError(t, testDB.Create(event).Error)
	return event
}

func newRegistrationService() service.RegistrationService {
	eventRepo := repository.NewEventRepository(testDB)
	regRepo := repository.NewRegistrationRepository(testDB)
	gateway := &payment.SandboxGateway{Delay: 5 * time.Millisecond}
	adapter := payment.NewAdapter(gateway, 5*time.Second)
	return service.NewRegistrationService(regRepo, eventRepo, adapter, nil, "GHS")
}

func registerOnce(t *testing.T, svc service.RegistrationService, eventID uint, email string) service.Transition {
	t.Helper()
	var final service.Transition
	for tr := range svc.Register(t.Context(), eventID, service.AttendeeInfo{Name: "Test Attendee", Email: email}) {
		final = tr
	}
	return final
}

// Free event: the registration is durable with amount 0, completed
// payment and no gateway reference.
func TestFreeRegistrationPersists(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Accra Tech Meetup", 0)
	svc := newRegistrationService()

	final := registerOnce(t, svc, event.ID, "a@x.com")

	require.Equal(t, service.StateSucceeded, final.State)

	var row models.Registration
	require.NoError(t, testDB.First(&row, final.Registration.ID).Error)
	assert.Equal(t, 0.0, row.AmountPaid)
	assert.Equal(t, models.PaymentCompleted, row.PaymentStatus)
	assert.Equal(t, models.StatusConfirmed, row.Status)
	assert.Equal(t, models.TicketFree, row.TicketType)
	assert.Empty(t, row.PaymentReference)
}

// Paid event through the sandbox gateway: the row carries the price and
// a gateway reference plus the raw response.
func TestPaidRegistrationPersists(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "DevCon Accra", 50.00)
	svc := newRegistrationService()

	final := registerOnce(t, svc, event.ID, "b@x.com")

	require.Equal(t, service.StateSucceeded, final.State)

	var row models.Registration
	require.NoError(t, testDB.First(&row, final.Registration.ID).Error)
	assert.Equal(t, 50.00, row.AmountPaid)
	assert.Equal(t, models.TicketPaid, row.TicketType)
	assert.NotEmpty(t, row.PaymentReference)
	assert.NotEmpty(t, row.GatewayResponse)
}

// Sequential duplicate: the second attempt observes AlreadyRegistered
// and the table still holds one row.
func TestDuplicateRegistrationPrevention(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Accra Tech Meetup", 0)
	svc := newRegistrationService()

	first := registerOnce(t, svc, event.ID, "dup@x.com")
	require.Equal(t, service.StateSucceeded, first.State)

	second := registerOnce(t, svc, event.ID, "dup@x.com")
	assert.ErrorIs(t, second.Err, service.ErrAlreadyRegistered)

	var count int64
	testDB.Model(&models.Registration{}).
		Where("event_id = ? AND attendee_email = ? AND status = ?", event.ID, "dup@x.com", models.StatusConfirmed).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

// Concurrent duplicates: the partial unique index is the backstop. No
// matter how the check/create races resolve, exactly one confirmed row
// exists and no attempt ends in a hard failure.
func TestConcurrentDuplicateRegistration(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Accra Tech Meetup", 0)
	svc := newRegistrationService()

	attempts := 10
	var wg sync.WaitGroup
	finals := make(chan service.Transition, attempts)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			finals <- registerOnce(t, svc, event.ID, "race@x.com")
		}()
	}
	wg.Wait()
	close(finals)

	for final := range finals {
		if final.Err != nil {
			assert.ErrorIs(t, final.Err, service.ErrAlreadyRegistered,
				"concurrent duplicates must resolve as AlreadyRegistered, got %v", final.Err)
		}
	}

	var count int64
	testDB.Model(&models.Registration{}).
		Where("event_id = ? AND attendee_email = ? AND status = ?", event.ID, "race@x.com", models.StatusConfirmed).
		Count(&count)
	assert.Equal(t, int64(1), count, "exactly one confirmed registration")
}

// Distinct attendees register concurrently; capacity is display-only so
// all of them land.
func TestConcurrentDistinctRegistrations(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Accra Tech Meetup", 0)
	svc := newRegistrationService()

	attendees := 20
	var wg sync.WaitGroup
	wg.Add(attendees)
	for i := 0; i < attendees; i++ {
		go func(n int) {
			defer wg.Done()
			final := registerOnce(t, svc, event.ID, fmt.Sprintf("user-%03d@x.com", n))
			assert.Equal(t, service.StateSucceeded, final.State)
		}(i)
	}
	wg.Wait()

	regRepo := repository.NewRegistrationRepository(testDB)
	count, err := regRepo.CountConfirmed(t.Context(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(attendees), count)
}

// The store's Create maps a unique violation to ErrConflict.
func TestCreateConflictMapping(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Accra Tech Meetup", 0)
	regRepo := repository.NewRegistrationRepository(testDB)

	reg := func() *models.Registration {
		return &models.Registration{
			EventID:       event.ID,
			AttendeeEmail: "c@x.com",
			Status:        models.StatusConfirmed,
			PaymentStatus: models.PaymentCompleted,
			TicketType:    models.TicketFree,
			Currency:      "GHS",
		}
	}

	require.NoError(t, regRepo.Create(t.Context(), reg()))

	err := regRepo.Create(t.Context(), reg())
	assert.True(t, errors.Is(err, repository.ErrConflict), "expected ErrConflict, got %v", err)
}

// A cancelled row does not block re-registration; the index only covers
// confirmed rows.
func TestCancelledRowDoesNotBlockReRegistration(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Accra Tech Meetup", 0)
	svc := newRegistrationService()

	require.NoError(t, testDB.Create(&models.Registration{
		EventID:       event.ID,
		AttendeeEmail: "back@x.com",
		Status:        models.StatusCancelled,
		PaymentStatus: models.PaymentRefunded,
		TicketType:    models.TicketFree,
		Currency:      "GHS",
	}).Error)

	final := registerOnce(t, svc, event.ID, "back@x.com")
	assert.Equal(t, service.StateSucceeded, final.State)
}

// Check-in is a separate mutation and must not disturb payment fields.
func TestCheckInLeavesPaymentFieldsAlone(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "DevCon Accra", 50.00)
	svc := newRegistrationService()

	final := registerOnce(t, svc, event.ID, "d@x.com")
	require.Equal(t, service.StateSucceeded, final.State)
	reference := final.Registration.PaymentReference

	checked, err := svc.CheckIn(t.Context(), final.Registration.ID)
	require.NoError(t, err)
	require.NotNil(t, checked.CheckInTime)
	assert.Equal(t, reference, checked.PaymentReference)
	assert.Equal(t, 50.00, checked.AmountPaid)
	assert.Equal(t, models.PaymentCompleted, checked.PaymentStatus)

	_, err = svc.CheckIn(t.Context(), final.Registration.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyCheckedIn)
}
