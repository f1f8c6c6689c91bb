// Package dto contains request and response data transfer objects for the pricing and credit flows
package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tourvanir/pricing-core/models"
)

// ChildInput describes one child traveler; children are priced individually by age.
type ChildInput struct {
	Age int `json:"age" validate:"min=0,max=17"`
}

// RoomInput describes one requested room type with a count.
type RoomInput struct {
	RoomTypeID uint `json:"room_type_id" validate:"required"`
	Count      int  `json:"count" validate:"min=1"`
}

// CalculatePriceRequest represents the inputs of one price calculation
type CalculatePriceRequest struct {
	AgentID       uint         `json:"agent_id" validate:"required"`
	ProductType   string       `json:"product_type" validate:"required,oneof=day_tour group_tour"`
	ProductID     uint         `json:"product_id" validate:"required"`
	BaseUnitPrice models.Money `json:"base_unit_price" validate:"required"`

	AdultCount int          `json:"adult_count" validate:"min=1"`
	Children   []ChildInput `json:"children,omitempty" validate:"dive"`

	HotelLevelCode string `json:"hotel_level_code,omitempty"`
	Nights         int    `json:"nights" validate:"min=0"`

	Rooms           []RoomInput `json:"rooms,omitempty" validate:"dive"`
	OptionalTourIDs []uint      `json:"optional_tour_ids,omitempty"`
}

// PriceBreakdownDTO is the itemized result of one price calculation
type PriceBreakdownDTO struct {
	AdultTotal           models.Money `json:"adult_total"`
	ChildTotal           models.Money `json:"child_total"`
	HotelPriceDiff       models.Money `json:"hotel_price_diff"`
	RoomFees             models.Money `json:"room_fees"`
	SingleRoomSupplement models.Money `json:"single_room_supplement"`
	OptionalToursTotal   models.Money `json:"optional_tours_total"`

	TotalPrice    models.Money `json:"total_price"`
	NonAgentPrice models.Money `json:"non_agent_price"`

	DiscountRate   decimal.Decimal       `json:"discount_rate"`
	DiscountSource models.DiscountSource `json:"discount_source"`
	LevelCode      string                `json:"level_code,omitempty"`

	ChildrenDetails []models.ChildPriceDetail   `json:"children_details"`
	Rooms           []models.RoomSelection      `json:"rooms"`
	OptionalTours   []models.OptionalTourCharge `json:"optional_tours"`
}

// CalculatePriceResponse represents the result of a read-only price preview
type CalculatePriceResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`

	Breakdown      PriceBreakdownDTO     `json:"breakdown"`
	TotalPrice     models.Money          `json:"total_price"`
	NonAgentPrice  models.Money          `json:"non_agent_price"`
	DiscountSource models.DiscountSource `json:"discount_source"`
}

// ConfirmBookingPricingRequest recomputes and persists the booking price snapshot
type ConfirmBookingPricingRequest struct {
	BookingID string                `json:"booking_id" validate:"required,max=64"`
	Input     CalculatePriceRequest `json:"input" validate:"required"`

	// ExpectedPrice, when set, is compared against the fresh computation; a
	// difference beyond the configured epsilon flags PriceChanged without failing.
	ExpectedPrice *models.Money `json:"expected_price,omitempty"`
}

// ConfirmBookingPricingResponse represents the persisted snapshot outcome
type ConfirmBookingPricingResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`

	SnapshotID   string       `json:"snapshot_id"`
	BookingID    string       `json:"booking_id"`
	FinalPrice   models.Money `json:"final_price"`
	PriceChanged bool         `json:"price_changed"`
	ConfirmedAt  time.Time    `json:"confirmed_at"`
}
