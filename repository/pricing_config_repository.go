package repository

import (
	"context"
	"errors"

	"github.com/tourvanir/pricing-core/models"
	"gorm.io/gorm"
)

// PricingConfigRepositoryImpl implements PricingConfigRepository. It is the
// read side of pricing reference data; rows are managed by back-office CRUD
// outside this core.
type PricingConfigRepositoryImpl struct {
	DB *gorm.DB
}

// NewPricingConfigRepository creates a new pricing config repository
func NewPricingConfigRepository(db *gorm.DB) PricingConfigRepository {
	return &PricingConfigRepositoryImpl{DB: db}
}

func (r *PricingConfigRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.DB
}

// HotelLevelByCode finds an active hotel level by its code
func (r *PricingConfigRepositoryImpl) HotelLevelByCode(ctx context.Context, code string) (*models.HotelLevel, error) {
	db := r.getDB(ctx)
	var level models.HotelLevel
	err := db.Where("code = ? AND is_active = ?", code, true).Last(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

// BaselineHotelLevel returns the level hotel differentials are measured against
func (r *PricingConfigRepositoryImpl) BaselineHotelLevel(ctx context.Context) (*models.HotelLevel, error) {
	db := r.getDB(ctx)
	var level models.HotelLevel
	err := db.Where("is_baseline = ? AND is_active = ?", true, true).Last(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

// RoomTypeByID finds an active room type
func (r *PricingConfigRepositoryImpl) RoomTypeByID(ctx context.Context, id uint) (*models.RoomType, error) {
	db := r.getDB(ctx)
	var room models.RoomType
	err := db.Where("id = ? AND is_active = ?", id, true).Last(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// OptionalTourByID finds an active optional side-trip
func (r *PricingConfigRepositoryImpl) OptionalTourByID(ctx context.Context, id uint) (*models.OptionalTour, error) {
	db := r.getDB(ctx)
	var tour models.OptionalTour
	err := db.Where("id = ? AND is_active = ?", id, true).Last(&tour).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tour, nil
}

// ChildAgeBandForAge returns the active band whose [min_age, max_age) range
// contains the given age
func (r *PricingConfigRepositoryImpl) ChildAgeBandForAge(ctx context.Context, age int) (*models.ChildAgeBand, error) {
	db := r.getDB(ctx)
	var band models.ChildAgeBand
	err := db.Where("min_age <= ? AND max_age > ? AND is_active = ?", age, age, true).
		Order("min_age DESC").
		First(&band).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &band, nil
}

// ListActiveHotelLevels returns all active hotel levels
func (r *PricingConfigRepositoryImpl) ListActiveHotelLevels(ctx context.Context) ([]*models.HotelLevel, error) {
	db := r.getDB(ctx)
	var levels []*models.HotelLevel
	err := db.Where("is_active = ?", true).Order("id ASC").Find(&levels).Error
	if err != nil {
		return nil, err
	}
	return levels, nil
}
