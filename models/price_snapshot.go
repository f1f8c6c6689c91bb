package models

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ChildPriceDetail records how one child was priced. Children are priced
// individually by age band, never as a flat multiplier.
type ChildPriceDetail struct {
	Age        int    `json:"age"`
	BandCode   string `json:"band_code"`
	UnitPrice  Money  `json:"unit_price"`
	FinalPrice Money  `json:"final_price"`
}

// ChildPriceDetails is the jsonb-backed list of per-child pricing records.
type ChildPriceDetails []ChildPriceDetail

func (c ChildPriceDetails) Value() (driver.Value, error) { return jsonbValue(c) }
func (c *ChildPriceDetails) Scan(src any) error          { return jsonbScan(src, c) }

// RoomSelection records one booked room type with its fee contribution.
type RoomSelection struct {
	RoomTypeID uint   `json:"room_type_id"`
	Code       string `json:"code"`
	Count      int    `json:"count"`
	UnitPrice  Money  `json:"unit_price"`
	Fee        Money  `json:"fee"`
}

// RoomSelections is the jsonb-backed list of booked rooms.
type RoomSelections []RoomSelection

func (r RoomSelections) Value() (driver.Value, error) { return jsonbValue(r) }
func (r *RoomSelections) Scan(src any) error          { return jsonbScan(src, r) }

// OptionalTourCharge records one selected optional side-trip.
type OptionalTourCharge struct {
	OptionalTourID  uint   `json:"optional_tour_id"`
	Name            string `json:"name"`
	PriceDifference Money  `json:"price_difference"`
}

// OptionalTourCharges is the jsonb-backed list of optional-tour charges.
type OptionalTourCharges []OptionalTourCharge

func (o OptionalTourCharges) Value() (driver.Value, error) { return jsonbValue(o) }
func (o *OptionalTourCharges) Scan(src any) error          { return jsonbScan(src, o) }

// PricingConfigSnapshot captures the pricing reference configuration in effect
// at calculation time, so a booking's price is reconstructable from the
// snapshot row alone regardless of later configuration changes.
type PricingConfigSnapshot struct {
	HotelLevelCode    string          `json:"hotel_level_code"`
	HotelLevelDiff    Money           `json:"hotel_level_diff"`
	BaselineLevelCode string          `json:"baseline_level_code"`
	SingleRoomSuppl   Money           `json:"single_room_supplement"`
	DiscountRate      decimal.Decimal `json:"discount_rate"`
	DiscountSource    DiscountSource  `json:"discount_source"`
	DiscountLevelCode string          `json:"discount_level_code,omitempty"`
	CalculatedAt      time.Time       `json:"calculated_at"`
	ConfigVersionNote string          `json:"config_version_note,omitempty"`
}

func (p PricingConfigSnapshot) Value() (driver.Value, error) { return jsonbValue(p) }
func (p *PricingConfigSnapshot) Scan(src any) error          { return jsonbScan(src, p) }

// TourBookingPriceSnapshot is the write-once, one-to-one record of exactly how
// a booking's price was computed: every input and intermediate amount used to
// reach TotalPrice. No component may update or delete it.
type TourBookingPriceSnapshot struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	BookingID string `gorm:"size:64;not null;uniqueIndex:uk_price_snapshots_booking_id" json:"booking_id"`
	AgentID   uint   `gorm:"not null;index" json:"agent_id"`

	ProductType ProductType `gorm:"type:varchar(20);not null" json:"product_type"`
	ProductID   uint        `gorm:"not null" json:"product_id"`

	// Raw inputs
	BaseUnitPrice Money           `gorm:"type:numeric(14,2);not null" json:"base_unit_price"`
	DiscountRate  decimal.Decimal `gorm:"type:numeric(5,4);not null" json:"discount_rate"`
	AdultCount    int             `gorm:"not null" json:"adult_count"`
	ChildCount    int             `gorm:"not null" json:"child_count"`
	Nights        int             `gorm:"not null" json:"nights"`

	// Itemized sub-totals
	AdultTotal         Money `gorm:"type:numeric(14,2);not null" json:"adult_total"`
	ChildTotal         Money `gorm:"type:numeric(14,2);not null" json:"child_total"`
	HotelPriceDiff     Money `gorm:"type:numeric(14,2);not null" json:"hotel_price_diff"`
	RoomFees           Money `gorm:"type:numeric(14,2);not null" json:"room_fees"`
	SingleRoomSuppl    Money `gorm:"type:numeric(14,2);not null" json:"single_room_supplement"`
	OptionalToursTotal Money `gorm:"type:numeric(14,2);not null" json:"optional_tours_total"`

	TotalPrice    Money `gorm:"type:numeric(14,2);not null" json:"total_price"`
	NonAgentPrice Money `gorm:"type:numeric(14,2);not null" json:"non_agent_price"`

	// Structured sub-objects, one canonical codec, validated on write
	ChildrenDetails ChildPriceDetails     `gorm:"type:jsonb;not null;default:'[]'" json:"children_details"`
	Rooms           RoomSelections        `gorm:"type:jsonb;not null;default:'[]'" json:"rooms"`
	OptionalTours   OptionalTourCharges   `gorm:"type:jsonb;not null;default:'[]'" json:"optional_tours"`
	ConfigSnapshot  PricingConfigSnapshot `gorm:"type:jsonb;not null" json:"config_snapshot"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Agent Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}

func (TourBookingPriceSnapshot) TableName() string {
	return "tour_booking_price_snapshots"
}

// BeforeCreate ensures UUID is set and validates the structured sub-objects.
func (s *TourBookingPriceSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	return s.Validate()
}

// Validate checks internal consistency before the row is persisted.
func (s *TourBookingPriceSnapshot) Validate() error {
	if s.BookingID == "" {
		return errors.New("price snapshot requires a booking id")
	}
	if len(s.ChildrenDetails) != s.ChildCount {
		return errors.New("children details do not match child count")
	}
	sum := s.AdultTotal.
		Add(s.ChildTotal).
		Add(s.HotelPriceDiff).
		Add(s.RoomFees).
		Add(s.SingleRoomSuppl).
		Add(s.OptionalToursTotal).
		RoundMinor()
	if !sum.Equal(s.TotalPrice) {
		return errors.New("sub-totals do not sum to total price")
	}
	return nil
}

// TourBookingPriceSnapshotFilter represents filter criteria for snapshot queries
type TourBookingPriceSnapshotFilter struct {
	ID            *uint      `json:"id,omitempty"`
	BookingID     *string    `json:"booking_id,omitempty"`
	AgentID       *uint      `json:"agent_id,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
