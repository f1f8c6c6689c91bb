package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tourvanir/pricing-core/models"
	"gorm.io/gorm"
)

// ErrDuplicateSnapshot is returned when a price snapshot already exists for a
// booking. Snapshots are write-once; no update operation exists by design.
var ErrDuplicateSnapshot = errors.New("price snapshot already exists for booking")

// PriceSnapshotRepositoryImpl implements PriceSnapshotRepository interface
type PriceSnapshotRepositoryImpl struct {
	*BaseRepository[models.TourBookingPriceSnapshot, models.TourBookingPriceSnapshotFilter]
}

// NewPriceSnapshotRepository creates a new price snapshot repository
func NewPriceSnapshotRepository(db *gorm.DB) PriceSnapshotRepository {
	return &PriceSnapshotRepositoryImpl{
		BaseRepository: NewBaseRepository[models.TourBookingPriceSnapshot, models.TourBookingPriceSnapshotFilter](db),
	}
}

// Save persists a snapshot exactly once per booking. The unique index on
// booking_id is the backstop for races between the existence check and the
// insert.
func (r *PriceSnapshotRepositoryImpl) Save(ctx context.Context, snapshot *models.TourBookingPriceSnapshot) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	var count int64
	if err = db.Model(&models.TourBookingPriceSnapshot{}).
		Where("booking_id = ?", snapshot.BookingID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for existing snapshot: %w", err)
	}
	if count > 0 {
		err = ErrDuplicateSnapshot
		return err
	}

	if err = db.Create(snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = ErrDuplicateSnapshot
		}
		return err
	}

	return nil
}

// ByBookingID returns the stored snapshot verbatim, or nil when none exists
func (r *PriceSnapshotRepositoryImpl) ByBookingID(ctx context.Context, bookingID string) (*models.TourBookingPriceSnapshot, error) {
	db := r.getDB(ctx)
	var snapshot models.TourBookingPriceSnapshot
	err := db.Where("booking_id = ?", bookingID).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// ExistsForBooking reports whether a snapshot exists for the booking
func (r *PriceSnapshotRepositoryImpl) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.TourBookingPriceSnapshot{}).
		Where("booking_id = ?", bookingID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
