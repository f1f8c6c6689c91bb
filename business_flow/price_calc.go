package businessflow

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/utils"
)

// PriceInput is the normalized input of one price calculation.
type PriceInput struct {
	ProductType   models.ProductType
	ProductID     uint
	BaseUnitPrice models.Money

	AdultCount int
	ChildAges  []int

	HotelLevelCode string
	Nights         int

	Rooms           []RoomRequest
	OptionalTourIDs []uint
}

// RoomRequest is one requested room type with a count.
type RoomRequest struct {
	RoomTypeID uint
	Count      int
}

// TotalGuests is the full party size, adults plus children.
func (in *PriceInput) TotalGuests() int {
	return in.AdultCount + len(in.ChildAges)
}

// priceReference carries the resolved reference rows the calculator consumes.
// The flow loads these before calling calculatePrice, which stays a pure
// function of its arguments.
type priceReference struct {
	hotelLevel    *models.HotelLevel // nil when no hotel upgrade is requested
	baselineLevel *models.HotelLevel
	roomTypes     map[uint]*models.RoomType
	optionalTours map[uint]*models.OptionalTour
	ageBands      []*models.ChildAgeBand

	singleRoomSupplement models.Money
}

func (r *priceReference) bandFor(age int) *models.ChildAgeBand {
	for _, b := range r.ageBands {
		if b.Contains(age) {
			return b
		}
	}
	return nil
}

// PriceBreakdown is the itemized result of one calculation. Each sub-total is
// rounded to the minor unit exactly once, when it is finalized; TotalPrice is
// the rounded sum of the six sub-totals.
type PriceBreakdown struct {
	AdultTotal         models.Money
	ChildTotal         models.Money
	HotelPriceDiff     models.Money
	RoomFees           models.Money
	SingleRoomSuppl    models.Money
	OptionalToursTotal models.Money

	TotalPrice    models.Money
	NonAgentPrice models.Money

	ChildrenDetails models.ChildPriceDetails
	Rooms           models.RoomSelections
	OptionalTours   models.OptionalTourCharges
}

// validatePriceInput rejects structurally impossible inputs before any
// reference data is consulted.
func validatePriceInput(in *PriceInput) error {
	if !in.ProductType.IsValid() {
		return NewBusinessError("PRICE_CALC_CONFIGURATION_ERROR", fmt.Sprintf("Unknown product type %q", in.ProductType), ErrUnknownProductType)
	}
	if in.AdultCount < 1 {
		return NewBusinessError("PRICE_CALC_VALIDATION_FAILED", "At least one adult is required", ErrInvalidAdultCount)
	}
	if in.Nights < 0 {
		return NewBusinessError("PRICE_CALC_VALIDATION_FAILED", "Nights cannot be negative", ErrNegativePartyCount)
	}
	for _, age := range in.ChildAges {
		if age < 0 {
			return NewBusinessError("PRICE_CALC_VALIDATION_FAILED", "Child age cannot be negative", ErrNegativePartyCount)
		}
	}
	for _, room := range in.Rooms {
		if room.Count < 1 {
			return NewBusinessError("PRICE_CALC_VALIDATION_FAILED", "Room count must be at least 1", ErrNegativePartyCount)
		}
	}
	if in.TotalGuests() > utils.MaxPartySize {
		return NewBusinessError("PRICE_CALC_VALIDATION_FAILED", fmt.Sprintf("Party size exceeds %d travelers", utils.MaxPartySize), ErrPartyTooLarge)
	}
	if (in.HotelLevelCode != "" || len(in.Rooms) > 0) && in.Nights < 1 {
		return NewBusinessError("PRICE_CALC_VALIDATION_FAILED", "Nights must be at least 1 when hotel or rooms are booked", ErrNightsRequired)
	}
	if in.BaseUnitPrice.IsNegative() {
		return NewBusinessError("PRICE_CALC_VALIDATION_FAILED", "Base unit price cannot be negative", ErrNegativePartyCount)
	}
	return nil
}

// calculatePrice prices one booking input under the given discount rate.
// The rate applies to the per-person tour price only; hotel differentials,
// room fees and optional tours are charged at face value.
func calculatePrice(in *PriceInput, rate decimal.Decimal, ref *priceReference) (*PriceBreakdown, error) {
	if err := validatePriceInput(in); err != nil {
		return nil, err
	}

	out := &PriceBreakdown{
		ChildrenDetails: models.ChildPriceDetails{},
		Rooms:           models.RoomSelections{},
		OptionalTours:   models.OptionalTourCharges{},
	}

	// Adults: discounted unit price rounded once, then multiplied by count.
	discountedUnit := in.BaseUnitPrice.MulRate(rate).RoundMinor()
	out.AdultTotal = discountedUnit.MulInt(int64(in.AdultCount))
	nonAgentAdult := in.BaseUnitPrice.RoundMinor().MulInt(int64(in.AdultCount))

	// Children: priced individually through their age band.
	childTotal := models.Zero
	nonAgentChild := models.Zero
	for _, age := range in.ChildAges {
		band := ref.bandFor(age)
		if band == nil {
			return nil, NewBusinessError("PRICE_CALC_CONFIGURATION_ERROR", fmt.Sprintf("No price band configured for age %d", age), ErrChildAgeBandNotFound)
		}
		final := band.UnitPrice.MulRate(rate).RoundMinor()
		childTotal = childTotal.Add(final)
		nonAgentChild = nonAgentChild.Add(band.UnitPrice.RoundMinor())
		out.ChildrenDetails = append(out.ChildrenDetails, models.ChildPriceDetail{
			Age:        age,
			BandCode:   band.Code,
			UnitPrice:  band.UnitPrice,
			FinalPrice: final,
		})
	}
	out.ChildTotal = childTotal

	// Hotel differential vs. the baseline tier, per person per night.
	if in.HotelLevelCode != "" {
		if ref.hotelLevel == nil {
			return nil, NewBusinessError("PRICE_CALC_VALIDATION_FAILED", fmt.Sprintf("Hotel level %q not found", in.HotelLevelCode), ErrHotelLevelNotFound)
		}
		if ref.baselineLevel == nil {
			return nil, NewBusinessError("PRICE_CALC_CONFIGURATION_ERROR", "Baseline hotel level is not configured", ErrBaselineLevelMissing)
		}
		diff := ref.hotelLevel.PriceDiff.Sub(ref.baselineLevel.PriceDiff)
		out.HotelPriceDiff = diff.MulInt(int64(in.TotalGuests())).MulInt(int64(in.Nights)).RoundMinor()
	}

	// Room fees per room per night, plus the single-room supplement when the
	// room selection leaves one traveler alone in a shared room.
	roomFees := models.Zero
	for _, room := range in.Rooms {
		rt, ok := ref.roomTypes[room.RoomTypeID]
		if !ok {
			return nil, NewBusinessError("PRICE_CALC_VALIDATION_FAILED", fmt.Sprintf("Room type %d not found", room.RoomTypeID), ErrRoomTypeNotFound)
		}
		fee := rt.BasePrice.MulInt(int64(room.Count)).MulInt(int64(in.Nights)).RoundMinor()
		roomFees = roomFees.Add(fee)
		out.Rooms = append(out.Rooms, models.RoomSelection{
			RoomTypeID: rt.ID,
			Code:       rt.Code,
			Count:      room.Count,
			UnitPrice:  rt.BasePrice,
			Fee:        fee,
		})
	}
	out.RoomFees = roomFees
	if loneSharedOccupancy(in, ref) {
		out.SingleRoomSuppl = ref.singleRoomSupplement.MulInt(int64(in.Nights)).RoundMinor()
	}

	// Optional side-trips at face value.
	optTotal := models.Zero
	for _, id := range in.OptionalTourIDs {
		ot, ok := ref.optionalTours[id]
		if !ok {
			return nil, NewBusinessError("PRICE_CALC_VALIDATION_FAILED", fmt.Sprintf("Optional tour %d not found", id), ErrOptionalTourNotFound)
		}
		optTotal = optTotal.Add(ot.PriceDifference)
		out.OptionalTours = append(out.OptionalTours, models.OptionalTourCharge{
			OptionalTourID:  ot.ID,
			Name:            ot.Name,
			PriceDifference: ot.PriceDifference,
		})
	}
	out.OptionalToursTotal = optTotal.RoundMinor()

	sharedCharges := out.HotelPriceDiff.
		Add(out.RoomFees).
		Add(out.SingleRoomSuppl).
		Add(out.OptionalToursTotal)

	out.TotalPrice = out.AdultTotal.
		Add(out.ChildTotal).
		Add(sharedCharges).
		RoundMinor()

	out.NonAgentPrice = nonAgentAdult.
		Add(nonAgentChild).
		Add(sharedCharges).
		RoundMinor()

	return out, nil
}

// loneSharedOccupancy reports whether the booked rooms leave exactly one
// traveler in a shared room. Travelers fill single rooms first, then shared
// rooms to capacity; a fully occupied or overflowing selection carries no
// supplement.
func loneSharedOccupancy(in *PriceInput, ref *priceReference) bool {
	remaining := in.TotalGuests()
	var shared []int
	for _, room := range in.Rooms {
		rt, ok := ref.roomTypes[room.RoomTypeID]
		if !ok {
			continue
		}
		for i := 0; i < room.Count; i++ {
			if rt.Capacity <= 1 {
				if remaining > 0 {
					remaining--
				}
			} else {
				shared = append(shared, rt.Capacity)
			}
		}
	}

	for _, capacity := range shared {
		switch {
		case remaining <= 0:
			return false
		case remaining == 1:
			return true
		case remaining < capacity:
			return false
		}
		remaining -= capacity
	}
	return false
}
