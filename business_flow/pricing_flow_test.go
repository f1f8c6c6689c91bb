package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourvanir/pricing-core/app/dto"
	"github.com/tourvanir/pricing-core/config"
	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/repository"
	"github.com/tourvanir/pricing-core/utils"
)

type fakeConfigRepo struct {
	hotelLevels   map[string]*models.HotelLevel
	baseline      *models.HotelLevel
	roomTypes     map[uint]*models.RoomType
	optionalTours map[uint]*models.OptionalTour
	ageBands      []*models.ChildAgeBand
}

func (r *fakeConfigRepo) HotelLevelByCode(ctx context.Context, code string) (*models.HotelLevel, error) {
	return r.hotelLevels[code], nil
}

func (r *fakeConfigRepo) BaselineHotelLevel(ctx context.Context) (*models.HotelLevel, error) {
	return r.baseline, nil
}

func (r *fakeConfigRepo) RoomTypeByID(ctx context.Context, id uint) (*models.RoomType, error) {
	return r.roomTypes[id], nil
}

func (r *fakeConfigRepo) OptionalTourByID(ctx context.Context, id uint) (*models.OptionalTour, error) {
	return r.optionalTours[id], nil
}

func (r *fakeConfigRepo) ChildAgeBandForAge(ctx context.Context, age int) (*models.ChildAgeBand, error) {
	for _, b := range r.ageBands {
		if b.Contains(age) {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeConfigRepo) ListActiveHotelLevels(ctx context.Context) ([]*models.HotelLevel, error) {
	out := []*models.HotelLevel{r.baseline}
	for _, l := range r.hotelLevels {
		out = append(out, l)
	}
	return out, nil
}

type fakeSnapshotRepo struct {
	byBooking map[string]*models.TourBookingPriceSnapshot
	saves     int
}

func (r *fakeSnapshotRepo) Save(ctx context.Context, s *models.TourBookingPriceSnapshot) error {
	if _, ok := r.byBooking[s.BookingID]; ok {
		return repository.ErrDuplicateSnapshot
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.UUID = uuid.New()
	r.byBooking[s.BookingID] = s
	r.saves++
	return nil
}

func (r *fakeSnapshotRepo) ByBookingID(ctx context.Context, bookingID string) (*models.TourBookingPriceSnapshot, error) {
	return r.byBooking[bookingID], nil
}

func (r *fakeSnapshotRepo) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	_, ok := r.byBooking[bookingID]
	return ok, nil
}

type fakeCalcAuditRepo struct {
	rows []*models.PriceCalculationAuditLog
}

func (r *fakeCalcAuditRepo) ByID(ctx context.Context, id uint) (*models.PriceCalculationAuditLog, error) {
	return nil, nil
}

func (r *fakeCalcAuditRepo) ByFilter(ctx context.Context, filter models.PriceCalculationAuditLogFilter, orderBy string, limit, offset int) ([]*models.PriceCalculationAuditLog, error) {
	return nil, nil
}

func (r *fakeCalcAuditRepo) Save(ctx context.Context, row *models.PriceCalculationAuditLog) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *fakeCalcAuditRepo) SaveBatch(ctx context.Context, rows []*models.PriceCalculationAuditLog) error {
	r.rows = append(r.rows, rows...)
	return nil
}

func (r *fakeCalcAuditRepo) ListSuspicious(ctx context.Context, limit, offset int) ([]*models.PriceCalculationAuditLog, error) {
	var out []*models.PriceCalculationAuditLog
	for _, row := range r.rows {
		if row.Suspicious {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeCalcAuditRepo) CountRecentByAgent(ctx context.Context, agentID uint, window time.Duration) (int64, error) {
	return 0, nil
}

type pricingHarness struct {
	flow      PricingFlow
	snapshots *fakeSnapshotRepo
	audits    *fakeCalcAuditRepo
	logs      *fakeDiscountLogRepo
}

func pricingFixtureConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{
		hotelLevels: map[string]*models.HotelLevel{
			"superior": {ID: 2, Code: "superior", PriceDiff: models.MustMoney("30.00"), IsActive: true},
		},
		baseline: &models.HotelLevel{ID: 1, Code: "standard", PriceDiff: models.MustMoney("0.00"), IsBaseline: true, IsActive: true},
		roomTypes: map[uint]*models.RoomType{
			10: {ID: 10, Code: "twin", BasePrice: models.MustMoney("0.00"), Capacity: 2, IsActive: true},
		},
		optionalTours: map[uint]*models.OptionalTour{},
		ageBands: []*models.ChildAgeBand{
			{Code: "child", MinAge: 2, MaxAge: 12, UnitPrice: models.MustMoney("120.00"), IsActive: true},
		},
	}
}

func testPricingConfig() *config.PricingConfig {
	return &config.PricingConfig{
		PriceEpsilon:            decimal.RequireFromString("0.01"),
		SuspiciousDiscountRatio: decimal.RequireFromString("0.5"),
		FrequencyWindow:         time.Minute,
		FrequencyLimit:          60,
		SingleRoomSupplement:    decimal.RequireFromString("25.00"),
	}
}

func newPricingHarness(t *testing.T) *pricingHarness {
	t.Helper()
	agents, levels, overrides, logs := discountFixture()
	discountFlow := newTestDiscountFlow(agents, levels, overrides, logs)

	snapshots := &fakeSnapshotRepo{byBooking: map[string]*models.TourBookingPriceSnapshot{}}
	audits := &fakeCalcAuditRepo{}

	flow := NewPricingFlow(discountFlow, pricingFixtureConfigRepo(), snapshots, audits, logs, nil, nil, testPricingConfig())
	return &pricingHarness{flow: flow, snapshots: snapshots, audits: audits, logs: logs}
}

// Agent 2 resolves to its default rate 0.90; agent 3 has no discount at all.
func workedExampleRequest(agentID uint) *dto.CalculatePriceRequest {
	return &dto.CalculatePriceRequest{
		AgentID:        agentID,
		ProductType:    "day_tour",
		ProductID:      7,
		BaseUnitPrice:  models.MustMoney("200.00"),
		AdultCount:     2,
		Children:       []dto.ChildInput{{Age: 8}},
		HotelLevelCode: "superior",
		Nights:         1,
		Rooms:          []dto.RoomInput{{RoomTypeID: 10, Count: 1}},
	}
}

func TestCalculatePriceFlow(t *testing.T) {
	h := newPricingHarness(t)
	actor := Actor{ID: "agent-3", Type: models.ActorTypeAgent, AgentID: utils.ToPtr(uint(3))}

	resp, err := h.flow.CalculatePrice(context.Background(), workedExampleRequest(3), actor, &ClientMetadata{IPAddress: "10.0.0.1", RequestID: "req-1"})
	require.NoError(t, err)

	// No discount: 2x200 + 120 + hotel 90 = 610
	assert.Equal(t, "610.00", resp.TotalPrice.String())
	assert.Equal(t, "610.00", resp.NonAgentPrice.String())
	assert.Equal(t, models.DiscountSourceNone, resp.DiscountSource)

	// Audit row written with the computed price
	require.Len(t, h.audits.rows, 1)
	row := h.audits.rows[0]
	assert.True(t, *row.Success)
	assert.Equal(t, "610.00", row.ComputedPrice.String())
	assert.Equal(t, "10.0.0.1", *row.IPAddress)

	// Discount log row written even for a no-discount resolution
	require.Len(t, h.logs.rows, 1)
	assert.Equal(t, models.DiscountSourceNone, h.logs.rows[0].Source)
}

func TestCalculatePriceFlowWithAgentDefaultDiscount(t *testing.T) {
	h := newPricingHarness(t)
	actor := Actor{ID: "agent-2", Type: models.ActorTypeAgent, AgentID: utils.ToPtr(uint(2))}

	resp, err := h.flow.CalculatePrice(context.Background(), workedExampleRequest(2), actor, nil)
	require.NoError(t, err)

	// 2x(200x0.90) + 120x0.90 + 90 = 360 + 108 + 90 = 558
	assert.Equal(t, "558.00", resp.TotalPrice.String())
	assert.Equal(t, "610.00", resp.NonAgentPrice.String())
	assert.Equal(t, models.DiscountSourceAgentDefault, resp.DiscountSource)
}

func TestCalculatePriceFlowAuditsFailures(t *testing.T) {
	h := newPricingHarness(t)
	actor := Actor{ID: "agent-3", Type: models.ActorTypeAgent, AgentID: utils.ToPtr(uint(3))}

	req := workedExampleRequest(3)
	req.AdultCount = 0

	_, err := h.flow.CalculatePrice(context.Background(), req, actor, nil)
	require.Error(t, err)

	require.Len(t, h.audits.rows, 1)
	row := h.audits.rows[0]
	assert.False(t, *row.Success)
	assert.NotNil(t, row.ErrorMessage)
	assert.Nil(t, row.ComputedPrice)
}

type brokenCalcAuditRepo struct {
	fakeCalcAuditRepo
}

func (r *brokenCalcAuditRepo) Save(ctx context.Context, row *models.PriceCalculationAuditLog) error {
	return errors.New("audit store unavailable")
}

func TestCalculatePriceFailsWhenAuditWriteFails(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	discountFlow := newTestDiscountFlow(agents, levels, overrides, logs)
	snapshots := &fakeSnapshotRepo{byBooking: map[string]*models.TourBookingPriceSnapshot{}}

	flow := NewPricingFlow(discountFlow, pricingFixtureConfigRepo(), snapshots, &brokenCalcAuditRepo{}, logs, nil, nil, testPricingConfig())
	actor := Actor{ID: "agent-3", Type: models.ActorTypeAgent, AgentID: utils.ToPtr(uint(3))}

	resp, err := flow.CalculatePrice(context.Background(), workedExampleRequest(3), actor, nil)
	require.Error(t, err)
	assert.Nil(t, resp)

	var bizErr *BusinessError
	require.True(t, errors.As(err, &bizErr))
	assert.Equal(t, "CALCULATION_AUDIT_WRITE_FAILED", bizErr.Code)
}

func TestConfirmBookingPricingWriteOnce(t *testing.T) {
	h := newPricingHarness(t)
	actor := Actor{ID: "agent-3", Type: models.ActorTypeAgent, AgentID: utils.ToPtr(uint(3))}

	req := &dto.ConfirmBookingPricingRequest{
		BookingID: "BK-3001",
		Input:     *workedExampleRequest(3),
	}

	first, err := h.flow.ConfirmBookingPricing(context.Background(), req, actor, nil)
	require.NoError(t, err)
	assert.Equal(t, "610.00", first.FinalPrice.String())
	assert.False(t, first.PriceChanged)
	assert.Equal(t, 1, h.snapshots.saves)

	// Second call is a no-op read of the same snapshot, even with changed input
	req.Input.AdultCount = 5
	second, err := h.flow.ConfirmBookingPricing(context.Background(), req, actor, nil)
	require.NoError(t, err)
	assert.Equal(t, first.SnapshotID, second.SnapshotID)
	assert.Equal(t, first.FinalPrice.String(), second.FinalPrice.String())
	assert.Equal(t, 1, h.snapshots.saves)
}

func TestConfirmBookingPricingPriceChangedSignal(t *testing.T) {
	h := newPricingHarness(t)
	actor := Actor{ID: "staff-1", Type: models.ActorTypeStaff}

	// Expected price differs by more than the epsilon: flagged, not failed
	expected := models.MustMoney("600.00")
	req := &dto.ConfirmBookingPricingRequest{
		BookingID:     "BK-3002",
		Input:         *workedExampleRequest(3),
		ExpectedPrice: &expected,
	}
	resp, err := h.flow.ConfirmBookingPricing(context.Background(), req, actor, nil)
	require.NoError(t, err)
	assert.True(t, resp.PriceChanged)
	assert.Equal(t, "610.00", resp.FinalPrice.String())

	// Difference within the epsilon is not flagged
	within := models.MustMoney("610.00")
	req2 := &dto.ConfirmBookingPricingRequest{
		BookingID:     "BK-3003",
		Input:         *workedExampleRequest(3),
		ExpectedPrice: &within,
	}
	resp2, err := h.flow.ConfirmBookingPricing(context.Background(), req2, actor, nil)
	require.NoError(t, err)
	assert.False(t, resp2.PriceChanged)
}

func TestConfirmBookingPricingSnapshotContents(t *testing.T) {
	h := newPricingHarness(t)
	actor := Actor{ID: "agent-2", Type: models.ActorTypeAgent, AgentID: utils.ToPtr(uint(2))}

	req := &dto.ConfirmBookingPricingRequest{
		BookingID: "BK-3004",
		Input:     *workedExampleRequest(2),
	}
	_, err := h.flow.ConfirmBookingPricing(context.Background(), req, actor, nil)
	require.NoError(t, err)

	s := h.snapshots.byBooking["BK-3004"]
	require.NotNil(t, s)
	assert.Equal(t, uint(2), s.AgentID)
	assert.Equal(t, 2, s.AdultCount)
	assert.Equal(t, 1, s.ChildCount)
	assert.Len(t, s.ChildrenDetails, 1)
	assert.Equal(t, "0.9", s.DiscountRate.String())
	assert.Equal(t, "superior", s.ConfigSnapshot.HotelLevelCode)
	assert.Equal(t, "standard", s.ConfigSnapshot.BaselineLevelCode)
	require.NoError(t, s.Validate())
}

func TestGetPriceSnapshotNotFound(t *testing.T) {
	h := newPricingHarness(t)
	_, err := h.flow.GetPriceSnapshot(context.Background(), "BK-missing")
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestGuardedRateCapClampsAggregateDiscount(t *testing.T) {
	cap := models.MustMoney("30.00")
	decision := &DiscountDecision{
		Rate:              decimal.RequireFromString("0.80"),
		Source:            models.DiscountSourceProductOverride,
		MaxDiscountAmount: &cap,
	}

	// 20% of 400 would be 80; the cap clamps the rate to 1 - 30/400 = 0.925
	rate, capApplied := guardedRate(decision, models.MustMoney("400.00"))
	assert.True(t, capApplied)
	assert.Equal(t, "0.925", rate.String())
}

func TestGuardedRateMinOrderDisablesDiscount(t *testing.T) {
	min := models.MustMoney("1000.00")
	decision := &DiscountDecision{
		Rate:           decimal.RequireFromString("0.80"),
		Source:         models.DiscountSourceProductOverride,
		MinOrderAmount: &min,
	}

	rate, capApplied := guardedRate(decision, models.MustMoney("400.00"))
	assert.False(t, capApplied)
	assert.True(t, rate.Equal(decimal.RequireFromString("1.00")))
}
