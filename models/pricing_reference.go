package models

import (
	"time"
)

// HotelLevel is pricing reference data: one hotel tier with its per-person,
// per-night price differential relative to the baseline tier. Managed by
// back-office CRUD; the pricing core only reads it.
type HotelLevel struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Name string `gorm:"size:100;not null" json:"name"`

	// PriceDiff is the per-person-per-night differential vs. the baseline level.
	PriceDiff  Money `gorm:"type:numeric(14,2);not null" json:"price_diff"`
	IsBaseline bool  `gorm:"not null;default:false" json:"is_baseline"`
	IsActive   bool  `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (HotelLevel) TableName() string {
	return "hotel_levels"
}

// RoomType is pricing reference data: one bookable room configuration.
type RoomType struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Name string `gorm:"size:100;not null" json:"name"`

	// BasePrice is charged per room per night.
	BasePrice Money `gorm:"type:numeric(14,2);not null" json:"base_price"`
	Capacity  int   `gorm:"not null;default:2" json:"capacity"`
	IsActive  bool  `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RoomType) TableName() string {
	return "room_types"
}

// OptionalTour is pricing reference data: an optional side-trip that can be
// added to a booking for a price difference.
type OptionalTour struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:255;not null" json:"name"`

	PriceDifference Money `gorm:"type:numeric(14,2);not null" json:"price_difference"`
	IsActive        bool  `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (OptionalTour) TableName() string {
	return "optional_tours"
}

// ChildAgeBand is pricing reference data: one child age band with its unit
// price. Bands are half-open [MinAge, MaxAge); children are priced
// individually against the band containing their age.
type ChildAgeBand struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"size:20;not null;uniqueIndex" json:"code"`

	MinAge    int   `gorm:"not null" json:"min_age"`
	MaxAge    int   `gorm:"not null" json:"max_age"`
	UnitPrice Money `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	IsActive  bool  `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ChildAgeBand) TableName() string {
	return "child_age_bands"
}

// Contains reports whether the band covers the given age.
func (b *ChildAgeBand) Contains(age int) bool {
	return b.IsActive && age >= b.MinAge && age < b.MaxAge
}
