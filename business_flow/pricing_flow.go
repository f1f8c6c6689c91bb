package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/tourvanir/pricing-core/app/dto"
	"github.com/tourvanir/pricing-core/config"
	"github.com/tourvanir/pricing-core/metrics"
	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/repository"
	"github.com/tourvanir/pricing-core/utils"
)

// PricingFlow defines the external pricing operations
type PricingFlow interface {
	// CalculatePrice previews a booking price. It mutates no pricing state but
	// always records a calculation audit row, success or failure.
	CalculatePrice(ctx context.Context, req *dto.CalculatePriceRequest, actor Actor, metadata *ClientMetadata) (*dto.CalculatePriceResponse, error)
	// ConfirmBookingPricing recomputes the price and persists the write-once
	// booking snapshot. Repeat calls for the same booking return the stored
	// snapshot unchanged.
	ConfirmBookingPricing(ctx context.Context, req *dto.ConfirmBookingPricingRequest, actor Actor, metadata *ClientMetadata) (*dto.ConfirmBookingPricingResponse, error)
	// GetPriceSnapshot reads the stored snapshot for a booking.
	GetPriceSnapshot(ctx context.Context, bookingID string) (*models.TourBookingPriceSnapshot, error)
}

// PricingFlowImpl implements PricingFlow
type PricingFlowImpl struct {
	discountFlow    DiscountFlow
	configRepo      repository.PricingConfigRepository
	snapshotRepo    repository.PriceSnapshotRepository
	calcAuditRepo   repository.CalculationAuditLogRepository
	discountLogRepo repository.DiscountLogRepository
	rc              *redis.Client
	cacheConfig     *config.CacheConfig
	pricingConfig   *config.PricingConfig
	validate        *validator.Validate
}

// NewPricingFlow constructs a PricingFlow
func NewPricingFlow(
	discountFlow DiscountFlow,
	configRepo repository.PricingConfigRepository,
	snapshotRepo repository.PriceSnapshotRepository,
	calcAuditRepo repository.CalculationAuditLogRepository,
	discountLogRepo repository.DiscountLogRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	pricingConfig *config.PricingConfig,
) PricingFlow {
	return &PricingFlowImpl{
		discountFlow:    discountFlow,
		configRepo:      configRepo,
		snapshotRepo:    snapshotRepo,
		calcAuditRepo:   calcAuditRepo,
		discountLogRepo: discountLogRepo,
		rc:              rc,
		cacheConfig:     cacheConfig,
		pricingConfig:   pricingConfig,
		validate:        validator.New(),
	}
}

// computedPrice bundles everything one calculation produced.
type computedPrice struct {
	agentID   uint
	input     *PriceInput
	breakdown *PriceBreakdown
	decision  *DiscountDecision
	reference *priceReference
	// effectiveRate is the rate actually used after the min-order and cap
	// guards; it may differ from decision.Rate.
	effectiveRate   decimal.Decimal
	effectiveSource models.DiscountSource
	discountAmount  models.Money
	capApplied      bool
}

// CalculatePrice previews a price for an agent without touching booking state.
func (f *PricingFlowImpl) CalculatePrice(ctx context.Context, req *dto.CalculatePriceRequest, actor Actor, metadata *ClientMetadata) (*dto.CalculatePriceResponse, error) {
	started := time.Now()

	result, err := f.compute(ctx, req, nil)

	auditErr := f.recordCalculationAudit(ctx, req, actor, metadata, result, started, err)

	if err != nil {
		metrics.ObserveCalculation(req.ProductType, "failure", time.Since(started))
		return nil, err
	}
	if auditErr != nil {
		metrics.ObserveCalculation(req.ProductType, "failure", time.Since(started))
		return nil, NewBusinessError("CALCULATION_AUDIT_WRITE_FAILED", "Failed to record calculation audit", auditErr)
	}
	metrics.ObserveCalculation(req.ProductType, "success", time.Since(started))

	return &dto.CalculatePriceResponse{
		Message:        "Price calculated successfully",
		Success:        true,
		Breakdown:      breakdownDTO(result),
		TotalPrice:     result.breakdown.TotalPrice,
		NonAgentPrice:  result.breakdown.NonAgentPrice,
		DiscountSource: result.effectiveSource,
	}, nil
}

// ConfirmBookingPricing recomputes and persists the booking price snapshot.
func (f *PricingFlowImpl) ConfirmBookingPricing(ctx context.Context, req *dto.ConfirmBookingPricingRequest, actor Actor, metadata *ClientMetadata) (*dto.ConfirmBookingPricingResponse, error) {
	if err := f.validate.Struct(req); err != nil {
		return nil, NewBusinessError("CONFIRM_PRICING_VALIDATION_FAILED", "Invalid confirmation request", err)
	}

	existing, err := f.snapshotRepo.ByBookingID(ctx, req.BookingID)
	if err != nil {
		return nil, NewBusinessError("CONFIRM_PRICING_FAILED", "Failed to query existing snapshot", err)
	}
	if existing != nil {
		return snapshotResponse(existing, false), nil
	}

	started := time.Now()
	result, err := f.compute(ctx, &req.Input, &req.BookingID)
	auditErr := f.recordCalculationAudit(ctx, &req.Input, actor, metadata, result, started, err)
	if err != nil {
		metrics.ObserveCalculation(req.Input.ProductType, "failure", time.Since(started))
		return nil, err
	}
	if auditErr != nil {
		metrics.ObserveCalculation(req.Input.ProductType, "failure", time.Since(started))
		return nil, NewBusinessError("CALCULATION_AUDIT_WRITE_FAILED", "Failed to record calculation audit", auditErr)
	}
	metrics.ObserveCalculation(req.Input.ProductType, "success", time.Since(started))

	priceChanged := false
	if req.ExpectedPrice != nil {
		diff := result.breakdown.TotalPrice.Sub(*req.ExpectedPrice)
		if diff.IsNegative() {
			diff = diff.Neg()
		}
		priceChanged = diff.Decimal().GreaterThan(f.pricingConfig.PriceEpsilon)
	}

	snapshot := buildSnapshot(req.BookingID, result)
	if err := f.snapshotRepo.Save(ctx, snapshot); err != nil {
		// A concurrent confirmation may have won the race; the stored row is
		// the authoritative one either way.
		if errors.Is(err, repository.ErrDuplicateSnapshot) {
			stored, readErr := f.snapshotRepo.ByBookingID(ctx, req.BookingID)
			if readErr == nil && stored != nil {
				return snapshotResponse(stored, false), nil
			}
		}
		return nil, NewBusinessError("CONFIRM_PRICING_FAILED", "Failed to persist price snapshot", err)
	}

	resp := snapshotResponse(snapshot, priceChanged)
	resp.Message = "Booking price confirmed"
	return resp, nil
}

// GetPriceSnapshot reads the stored snapshot for a booking.
func (f *PricingFlowImpl) GetPriceSnapshot(ctx context.Context, bookingID string) (*models.TourBookingPriceSnapshot, error) {
	snapshot, err := f.snapshotRepo.ByBookingID(ctx, bookingID)
	if err != nil {
		return nil, NewBusinessError("GET_SNAPSHOT_FAILED", "Failed to read price snapshot", err)
	}
	if snapshot == nil {
		return nil, NewBusinessError("GET_SNAPSHOT_NOT_FOUND", "Price snapshot not found", ErrSnapshotNotFound)
	}
	return snapshot, nil
}

// compute validates the request, resolves the discount, loads reference data
// and runs the calculator. bookingID, when set, is attached to the discount log.
func (f *PricingFlowImpl) compute(ctx context.Context, req *dto.CalculatePriceRequest, bookingID *string) (*computedPrice, error) {
	if err := f.validate.Struct(req); err != nil {
		return nil, NewBusinessError("PRICE_CALC_VALIDATION_FAILED", "Invalid calculation request", err)
	}

	in := priceInputFromDTO(req)
	if err := validatePriceInput(in); err != nil {
		return nil, err
	}

	ref, err := f.loadReference(ctx, in)
	if err != nil {
		return nil, err
	}

	decision, err := f.discountFlow.Resolve(ctx, req.AgentID, in.ProductType, in.ProductID, utils.UTCNow())
	if err != nil {
		return nil, err
	}

	// First pass at face value; its tour sub-total drives the min-order and
	// cap guards before the discounted pass.
	base, err := calculatePrice(in, noDiscount, ref)
	if err != nil {
		return nil, err
	}
	tourSubtotal := base.AdultTotal.Add(base.ChildTotal)

	effectiveRate, capApplied := guardedRate(decision, tourSubtotal)

	breakdown := base
	if !effectiveRate.Equal(noDiscount) {
		breakdown, err = calculatePrice(in, effectiveRate, ref)
		if err != nil {
			return nil, err
		}
	}

	effectiveSource := decision.Source
	if effectiveRate.Equal(noDiscount) {
		effectiveSource = models.DiscountSourceNone
	}

	result := &computedPrice{
		agentID:         req.AgentID,
		input:           in,
		breakdown:       breakdown,
		decision:        decision,
		reference:       ref,
		effectiveRate:   effectiveRate,
		effectiveSource: effectiveSource,
		discountAmount:  breakdown.NonAgentPrice.Sub(breakdown.TotalPrice),
		capApplied:      capApplied,
	}

	if err := f.recordDiscountLog(ctx, req.AgentID, bookingID, result); err != nil {
		return nil, err
	}

	return result, nil
}

// guardedRate applies the override's min-order and cap constraints to the
// resolved rate. The cap clamps the rate so the aggregate discount on the tour
// sub-total cannot exceed the configured maximum.
func guardedRate(decision *DiscountDecision, tourSubtotal models.Money) (decimal.Decimal, bool) {
	rate := decision.Rate
	if decision.Source == models.DiscountSourceNone || rate.GreaterThanOrEqual(noDiscount) {
		return noDiscount, false
	}
	if decision.MinOrderAmount != nil && tourSubtotal.Cmp(*decision.MinOrderAmount) < 0 {
		return noDiscount, false
	}
	if decision.MaxDiscountAmount != nil && tourSubtotal.IsPositive() {
		prospective := tourSubtotal.MulRate(noDiscount.Sub(rate))
		if prospective.Cmp(*decision.MaxDiscountAmount) > 0 {
			clamped := noDiscount.Sub(decision.MaxDiscountAmount.Decimal().Div(tourSubtotal.Decimal()))
			return clamped, true
		}
	}
	return rate, false
}

func priceInputFromDTO(req *dto.CalculatePriceRequest) *PriceInput {
	ages := make([]int, 0, len(req.Children))
	for _, c := range req.Children {
		ages = append(ages, c.Age)
	}
	rooms := make([]RoomRequest, 0, len(req.Rooms))
	for _, r := range req.Rooms {
		rooms = append(rooms, RoomRequest{RoomTypeID: r.RoomTypeID, Count: r.Count})
	}
	return &PriceInput{
		ProductType:     models.ProductType(req.ProductType),
		ProductID:       req.ProductID,
		BaseUnitPrice:   req.BaseUnitPrice,
		AdultCount:      req.AdultCount,
		ChildAges:       ages,
		HotelLevelCode:  req.HotelLevelCode,
		Nights:          req.Nights,
		Rooms:           rooms,
		OptionalTourIDs: req.OptionalTourIDs,
	}
}

// loadReference resolves every reference row the calculator will need.
func (f *PricingFlowImpl) loadReference(ctx context.Context, in *PriceInput) (*priceReference, error) {
	ref := &priceReference{
		roomTypes:            make(map[uint]*models.RoomType),
		optionalTours:        make(map[uint]*models.OptionalTour),
		singleRoomSupplement: models.MoneyFromDecimal(f.pricingConfig.SingleRoomSupplement),
	}

	if in.HotelLevelCode != "" {
		level, err := f.configRepo.HotelLevelByCode(ctx, in.HotelLevelCode)
		if err != nil {
			return nil, NewBusinessError("PRICE_CALC_FAILED", "Failed to load hotel level", err)
		}
		ref.hotelLevel = level

		baseline, err := f.configRepo.BaselineHotelLevel(ctx)
		if err != nil {
			return nil, NewBusinessError("PRICE_CALC_FAILED", "Failed to load baseline hotel level", err)
		}
		ref.baselineLevel = baseline
	}

	for _, room := range in.Rooms {
		if _, ok := ref.roomTypes[room.RoomTypeID]; ok {
			continue
		}
		rt, err := f.configRepo.RoomTypeByID(ctx, room.RoomTypeID)
		if err != nil {
			return nil, NewBusinessError("PRICE_CALC_FAILED", "Failed to load room type", err)
		}
		if rt != nil {
			ref.roomTypes[room.RoomTypeID] = rt
		}
	}

	for _, id := range in.OptionalTourIDs {
		if _, ok := ref.optionalTours[id]; ok {
			continue
		}
		ot, err := f.configRepo.OptionalTourByID(ctx, id)
		if err != nil {
			return nil, NewBusinessError("PRICE_CALC_FAILED", "Failed to load optional tour", err)
		}
		if ot != nil {
			ref.optionalTours[id] = ot
		}
	}

	seen := make(map[int]bool)
	for _, age := range in.ChildAges {
		if age < 0 || seen[age] {
			continue
		}
		seen[age] = true
		band, err := f.configRepo.ChildAgeBandForAge(ctx, age)
		if err != nil {
			return nil, NewBusinessError("PRICE_CALC_FAILED", "Failed to load child age band", err)
		}
		if band != nil {
			ref.ageBands = append(ref.ageBands, band)
		}
	}

	return ref, nil
}

// recordDiscountLog appends the immutable record of the discount application.
func (f *PricingFlowImpl) recordDiscountLog(ctx context.Context, agentID uint, bookingID *string, result *computedPrice) error {
	row := &models.AgentDiscountLog{
		AgentID:        agentID,
		BookingID:      bookingID,
		ProductType:    result.input.ProductType,
		ProductID:      result.input.ProductID,
		OriginalPrice:  result.breakdown.NonAgentPrice,
		RateUsed:       result.effectiveRate,
		DiscountAmount: result.discountAmount,
		FinalPrice:     result.breakdown.TotalPrice,
		LevelCode:      result.decision.LevelCode,
		Source:         result.effectiveSource,
		CapApplied:     result.capApplied,
		CreatedAt:      utils.UTCNow(),
	}
	if err := f.discountLogRepo.Save(ctx, row); err != nil {
		return NewBusinessError("DISCOUNT_LOG_FAILED", "Failed to record discount application", err)
	}
	return nil
}

// recordCalculationAudit writes the per-attempt audit row and flags suspicious
// activity. A calculation does not count as successful until its audit row is
// durable, so the write error propagates to the caller.
func (f *PricingFlowImpl) recordCalculationAudit(ctx context.Context, req *dto.CalculatePriceRequest, actor Actor, metadata *ClientMetadata, result *computedPrice, started time.Time, calcErr error) error {
	inputJSON, _ := json.Marshal(req)

	row := &models.PriceCalculationAuditLog{
		AgentID:     utils.ToPtr(req.AgentID),
		ProductType: models.ProductType(req.ProductType),
		ProductID:   req.ProductID,
		InputParams: inputJSON,
		DurationMs:  time.Since(started).Milliseconds(),
		ActorID:     actor.ID,
		ActorType:   actor.Type,
		Success:     utils.ToPtr(calcErr == nil),
		CreatedAt:   utils.UTCNow(),
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			row.IPAddress = utils.ToPtr(metadata.IPAddress)
		}
		if metadata.RequestID != "" {
			row.RequestID = utils.ToPtr(metadata.RequestID)
		}
	}
	if calcErr != nil {
		row.ErrorMessage = utils.ToPtr(calcErr.Error())
	}

	if result != nil {
		row.ComputedPrice = utils.ToPtr(result.breakdown.TotalPrice)
		if reason := f.suspiciousReason(ctx, req.AgentID, result); reason != "" {
			row.Suspicious = true
			row.SuspiciousReason = utils.ToPtr(reason)
			metrics.ObserveSuspicious(reason)
		}
	}

	return f.calcAuditRepo.Save(ctx, row)
}

// suspiciousReason inspects a successful calculation for fraud signals.
func (f *PricingFlowImpl) suspiciousReason(ctx context.Context, agentID uint, result *computedPrice) string {
	if !result.breakdown.TotalPrice.IsPositive() {
		return models.SuspiciousReasonAbnormalPrice
	}

	if result.breakdown.NonAgentPrice.IsPositive() {
		ratio := result.discountAmount.Decimal().Div(result.breakdown.NonAgentPrice.Decimal())
		if ratio.GreaterThan(f.pricingConfig.SuspiciousDiscountRatio) {
			return models.SuspiciousReasonExcessiveRate
		}
	}

	if count := f.bumpCalculationFrequency(ctx, agentID); count > f.pricingConfig.FrequencyLimit {
		return models.SuspiciousReasonRequestFrequency
	}

	return ""
}

// bumpCalculationFrequency increments the per-agent sliding counter in Redis.
// Returns 0 when Redis is not wired or unavailable.
func (f *PricingFlowImpl) bumpCalculationFrequency(ctx context.Context, agentID uint) int64 {
	if f.rc == nil || f.cacheConfig == nil || !f.cacheConfig.Enabled {
		return 0
	}
	key := redisKey(*f.cacheConfig, fmt.Sprintf("%s:%d", utils.CalcFrequencyKeyPrefix, agentID))
	count, err := f.rc.Incr(ctx, key).Result()
	if err != nil {
		return 0
	}
	if count == 1 {
		_ = f.rc.Expire(ctx, key, f.pricingConfig.FrequencyWindow).Err()
	}
	return count
}

func breakdownDTO(result *computedPrice) dto.PriceBreakdownDTO {
	return dto.PriceBreakdownDTO{
		AdultTotal:           result.breakdown.AdultTotal,
		ChildTotal:           result.breakdown.ChildTotal,
		HotelPriceDiff:       result.breakdown.HotelPriceDiff,
		RoomFees:             result.breakdown.RoomFees,
		SingleRoomSupplement: result.breakdown.SingleRoomSuppl,
		OptionalToursTotal:   result.breakdown.OptionalToursTotal,
		TotalPrice:           result.breakdown.TotalPrice,
		NonAgentPrice:        result.breakdown.NonAgentPrice,
		DiscountRate:         result.effectiveRate,
		DiscountSource:       result.effectiveSource,
		LevelCode:            result.decision.LevelCode,
		ChildrenDetails:      result.breakdown.ChildrenDetails,
		Rooms:                result.breakdown.Rooms,
		OptionalTours:        result.breakdown.OptionalTours,
	}
}

func buildSnapshot(bookingID string, result *computedPrice) *models.TourBookingPriceSnapshot {
	b := result.breakdown
	in := result.input
	now := utils.UTCNow()

	snapshot := &models.TourBookingPriceSnapshot{
		BookingID:     bookingID,
		AgentID:       result.agentID,
		ProductType:   in.ProductType,
		ProductID:     in.ProductID,
		BaseUnitPrice: in.BaseUnitPrice,
		DiscountRate:  result.effectiveRate,
		AdultCount:    in.AdultCount,
		ChildCount:    len(in.ChildAges),
		Nights:        in.Nights,

		AdultTotal:         b.AdultTotal,
		ChildTotal:         b.ChildTotal,
		HotelPriceDiff:     b.HotelPriceDiff,
		RoomFees:           b.RoomFees,
		SingleRoomSuppl:    b.SingleRoomSuppl,
		OptionalToursTotal: b.OptionalToursTotal,
		TotalPrice:         b.TotalPrice,
		NonAgentPrice:      b.NonAgentPrice,

		ChildrenDetails: b.ChildrenDetails,
		Rooms:           b.Rooms,
		OptionalTours:   b.OptionalTours,
		ConfigSnapshot: models.PricingConfigSnapshot{
			HotelLevelCode:    in.HotelLevelCode,
			SingleRoomSuppl:   result.reference.singleRoomSupplement,
			DiscountRate:      result.effectiveRate,
			DiscountSource:    result.effectiveSource,
			DiscountLevelCode: result.decision.LevelCode,
			CalculatedAt:      now,
		},
		CreatedAt: now,
	}
	if result.reference.hotelLevel != nil {
		snapshot.ConfigSnapshot.HotelLevelDiff = result.reference.hotelLevel.PriceDiff
	}
	if result.reference.baselineLevel != nil {
		snapshot.ConfigSnapshot.BaselineLevelCode = result.reference.baselineLevel.Code
	}
	return snapshot
}

func snapshotResponse(s *models.TourBookingPriceSnapshot, priceChanged bool) *dto.ConfirmBookingPricingResponse {
	return &dto.ConfirmBookingPricingResponse{
		Message:      "Booking price already confirmed",
		Success:      true,
		SnapshotID:   s.UUID.String(),
		BookingID:    s.BookingID,
		FinalPrice:   s.TotalPrice,
		PriceChanged: priceChanged,
		ConfirmedAt:  s.CreatedAt,
	}
}
