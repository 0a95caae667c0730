package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventhub-gh/registration-service/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrConflict signals a uniqueness violation: another confirmed
	// registration for the same (event, email) already exists.
	ErrConflict = errors.New("registration conflict")
	// ErrUnavailable wraps transient infrastructure failures.
	ErrUnavailable = errors.New("registration store unavailable")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id uint) (*models.Registration, error)
	FindConfirmed(ctx context.Context, eventID uint, email string) (*models.Registration, error)
	FindByEventID(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error)
	CountConfirmed(ctx context.Context, eventID uint) (int64, error)
	SetCheckInTime(ctx context.Context, id uint, at time.Time) (int64, error)
}

type registrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if err := r.db.WithContext(ctx).Create(reg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *registrationRepository) FindByID(ctx context.Context, id uint) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).First(&reg, id).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) FindConfirmed(ctx context.Context, eventID uint, email string) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND attendee_email = ? AND status = ?", eventID, email, models.StatusConfirmed).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) FindByEventID(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error) {
	var regs []models.Registration
	q := r.db.WithContext(ctx).Where("event_id = ?", eventID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("id ASC").Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *registrationRepository) CountConfirmed(ctx context.Context, eventID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", eventID, models.StatusConfirmed).
		Count(&count).Error
	return count, err
}

// SetCheckInTime records the check-in timestamp once; a second call
// matches no rows. Payment fields are never touched.
func (r *registrationRepository) SetCheckInTime(ctx context.Context, id uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ? AND check_in_time IS NULL", id).
		Update("check_in_time", at)
	return res.RowsAffected, res.Error
}
