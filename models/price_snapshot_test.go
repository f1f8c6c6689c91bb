package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSnapshot() *TourBookingPriceSnapshot {
	return &TourBookingPriceSnapshot{
		BookingID:     "BK-1001",
		AgentID:       1,
		ProductType:   ProductTypeDayTour,
		ProductID:     7,
		BaseUnitPrice: MustMoney("200.00"),
		DiscountRate:  decimal.RequireFromString("0.85"),
		AdultCount:    2,
		ChildCount:    1,
		Nights:        1,

		AdultTotal:         MustMoney("340.00"),
		ChildTotal:         MustMoney("102.00"),
		HotelPriceDiff:     MustMoney("90.00"),
		RoomFees:           MustMoney("0.00"),
		SingleRoomSuppl:    MustMoney("0.00"),
		OptionalToursTotal: MustMoney("0.00"),
		TotalPrice:         MustMoney("532.00"),
		NonAgentPrice:      MustMoney("610.00"),

		ChildrenDetails: ChildPriceDetails{
			{Age: 8, BandCode: "child", UnitPrice: MustMoney("120.00"), FinalPrice: MustMoney("102.00")},
		},
	}
}

func TestSnapshotValidate(t *testing.T) {
	require.NoError(t, validSnapshot().Validate())
}

func TestSnapshotValidateRejectsMissingBookingID(t *testing.T) {
	s := validSnapshot()
	s.BookingID = ""
	assert.Error(t, s.Validate())
}

func TestSnapshotValidateRejectsChildCountMismatch(t *testing.T) {
	s := validSnapshot()
	s.ChildCount = 2
	assert.Error(t, s.Validate())
}

func TestSnapshotValidateRejectsSubTotalDrift(t *testing.T) {
	s := validSnapshot()
	s.TotalPrice = MustMoney("530.00")
	assert.Error(t, s.Validate())
}
