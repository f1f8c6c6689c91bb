package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/tourvanir/pricing-core/config"
	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/repository"
	"github.com/tourvanir/pricing-core/utils"
)

// DiscountDecision is the outcome of resolving an agent's discount for one
// product at one point in time. Rate is a multiplier: 0.85 means the agent
// pays 85% of the original price; 1.00 means no discount.
type DiscountDecision struct {
	Rate              decimal.Decimal
	Source            models.DiscountSource
	LevelCode         string
	MinOrderAmount    *models.Money
	MaxDiscountAmount *models.Money
}

// AppliedDiscount is a DiscountDecision applied to a concrete price.
type AppliedDiscount struct {
	Decision       DiscountDecision
	OriginalPrice  models.Money
	DiscountAmount models.Money
	FinalPrice     models.Money
	CapApplied     bool
}

// DiscountFlow resolves and applies agent discounts
type DiscountFlow interface {
	Resolve(ctx context.Context, agentID uint, productType models.ProductType, productID uint, now time.Time) (*DiscountDecision, error)
	Apply(decision *DiscountDecision, originalPrice models.Money) *AppliedDiscount
	// ResolveAndApply resolves, applies, and records one immutable discount log row.
	ResolveAndApply(ctx context.Context, agentID uint, productType models.ProductType, productID uint, originalPrice models.Money, bookingID *string) (*AppliedDiscount, error)
}

// DiscountFlowImpl implements DiscountFlow
type DiscountFlowImpl struct {
	agentRepo    repository.AgentRepository
	levelRepo    repository.DiscountLevelRepository
	overrideRepo repository.ProductAgentDiscountRepository
	logRepo      repository.DiscountLogRepository
	rc           *redis.Client
	cacheConfig  *config.CacheConfig
}

// NewDiscountFlow constructs a DiscountFlow
func NewDiscountFlow(
	agentRepo repository.AgentRepository,
	levelRepo repository.DiscountLevelRepository,
	overrideRepo repository.ProductAgentDiscountRepository,
	logRepo repository.DiscountLogRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) DiscountFlow {
	return &DiscountFlowImpl{
		agentRepo:    agentRepo,
		levelRepo:    levelRepo,
		overrideRepo: overrideRepo,
		logRepo:      logRepo,
		rc:           rc,
		cacheConfig:  cacheConfig,
	}
}

var noDiscount = decimal.RequireFromString(utils.NoDiscountRate)

// validRate reports whether a configured multiplier lies in (0, 1].
func validRate(rate decimal.Decimal) bool {
	return rate.IsPositive() && rate.LessThanOrEqual(noDiscount)
}

// Resolve determines the discount rate for (agent, product) at the given time.
// Resolution order: product override for the agent's level, then the agent's
// default rate, then no discount. Disabled agents always resolve to no discount.
// A configured rate outside (0, 1] fails resolution as a configuration error.
func (f *DiscountFlowImpl) Resolve(ctx context.Context, agentID uint, productType models.ProductType, productID uint, now time.Time) (*DiscountDecision, error) {
	if !productType.IsValid() {
		return nil, NewBusinessError("DISCOUNT_RESOLVE_CONFIGURATION_ERROR", fmt.Sprintf("Unknown product type %q", productType), ErrUnknownProductType)
	}

	agent, err := f.agentRepo.ByID(ctx, agentID)
	if err != nil {
		return nil, NewBusinessError("DISCOUNT_RESOLVE_FAILED", "Failed to load agent", err)
	}
	if agent == nil {
		return nil, NewBusinessError("DISCOUNT_RESOLVE_NOT_FOUND", "Agent not found", ErrAgentNotFound)
	}

	if !agent.IsActive() {
		return &DiscountDecision{Rate: noDiscount, Source: models.DiscountSourceNone}, nil
	}

	if agent.DiscountLevelID != nil {
		level, err := f.levelByID(ctx, *agent.DiscountLevelID)
		if err != nil {
			return nil, NewBusinessError("DISCOUNT_RESOLVE_FAILED", "Failed to load discount level", err)
		}
		if level != nil && level.IsActive {
			override, err := f.overrideRepo.EffectiveOverride(ctx, productType, productID, level.ID, now)
			if err != nil {
				return nil, NewBusinessError("DISCOUNT_RESOLVE_FAILED", "Failed to query product overrides", err)
			}
			if override != nil {
				if !validRate(override.DiscountRate) {
					return nil, NewBusinessError("DISCOUNT_RESOLVE_CONFIGURATION_ERROR", fmt.Sprintf("Override rate %s is outside (0, 1]", override.DiscountRate), ErrDiscountRateOutOfRange)
				}
				return &DiscountDecision{
					Rate:              override.DiscountRate,
					Source:            models.DiscountSourceProductOverride,
					LevelCode:         level.Code,
					MinOrderAmount:    override.MinOrderAmount,
					MaxDiscountAmount: override.MaxDiscountAmount,
				}, nil
			}
			if agent.DefaultDiscountRate != nil {
				if !validRate(*agent.DefaultDiscountRate) {
					return nil, NewBusinessError("DISCOUNT_RESOLVE_CONFIGURATION_ERROR", fmt.Sprintf("Agent default rate %s is outside (0, 1]", *agent.DefaultDiscountRate), ErrDiscountRateOutOfRange)
				}
				return &DiscountDecision{
					Rate:      *agent.DefaultDiscountRate,
					Source:    models.DiscountSourceAgentDefault,
					LevelCode: level.Code,
				}, nil
			}
			return &DiscountDecision{Rate: noDiscount, Source: models.DiscountSourceNone, LevelCode: level.Code}, nil
		}
	}

	if agent.DefaultDiscountRate != nil {
		if !validRate(*agent.DefaultDiscountRate) {
			return nil, NewBusinessError("DISCOUNT_RESOLVE_CONFIGURATION_ERROR", fmt.Sprintf("Agent default rate %s is outside (0, 1]", *agent.DefaultDiscountRate), ErrDiscountRateOutOfRange)
		}
		return &DiscountDecision{Rate: *agent.DefaultDiscountRate, Source: models.DiscountSourceAgentDefault}, nil
	}

	return &DiscountDecision{Rate: noDiscount, Source: models.DiscountSourceNone}, nil
}

// Apply computes the discounted price. The discount amount is rounded to the
// minor unit once, then clamped to the override's cap if one is set. When the
// original price is below the override's minimum order amount the discount is
// withheld entirely.
func (f *DiscountFlowImpl) Apply(decision *DiscountDecision, originalPrice models.Money) *AppliedDiscount {
	applied := &AppliedDiscount{
		Decision:      *decision,
		OriginalPrice: originalPrice,
		FinalPrice:    originalPrice,
	}

	if decision.Source == models.DiscountSourceNone || decision.Rate.GreaterThanOrEqual(noDiscount) {
		applied.Decision.Rate = noDiscount
		return applied
	}

	if decision.MinOrderAmount != nil && originalPrice.Cmp(*decision.MinOrderAmount) < 0 {
		applied.Decision.Rate = noDiscount
		applied.Decision.Source = models.DiscountSourceNone
		return applied
	}

	discount := originalPrice.MulRate(noDiscount.Sub(decision.Rate)).RoundMinor()
	if decision.MaxDiscountAmount != nil && discount.Cmp(*decision.MaxDiscountAmount) > 0 {
		discount = *decision.MaxDiscountAmount
		applied.CapApplied = true
	}

	applied.DiscountAmount = discount
	applied.FinalPrice = originalPrice.Sub(discount)
	return applied
}

// ResolveAndApply runs Resolve then Apply and appends the immutable log row.
func (f *DiscountFlowImpl) ResolveAndApply(ctx context.Context, agentID uint, productType models.ProductType, productID uint, originalPrice models.Money, bookingID *string) (*AppliedDiscount, error) {
	decision, err := f.Resolve(ctx, agentID, productType, productID, utils.UTCNow())
	if err != nil {
		return nil, err
	}

	applied := f.Apply(decision, originalPrice)

	row := &models.AgentDiscountLog{
		AgentID:        agentID,
		BookingID:      bookingID,
		ProductType:    productType,
		ProductID:      productID,
		OriginalPrice:  applied.OriginalPrice,
		RateUsed:       applied.Decision.Rate,
		DiscountAmount: applied.DiscountAmount,
		FinalPrice:     applied.FinalPrice,
		LevelCode:      applied.Decision.LevelCode,
		Source:         applied.Decision.Source,
		CapApplied:     applied.CapApplied,
		CreatedAt:      utils.UTCNow(),
	}
	if err := f.logRepo.Save(ctx, row); err != nil {
		return nil, NewBusinessError("DISCOUNT_LOG_FAILED", "Failed to record discount application", err)
	}

	return applied, nil
}

// levelByID reads a discount level through the Redis cache when one is wired.
// Cache failures fall through to the database silently.
func (f *DiscountFlowImpl) levelByID(ctx context.Context, id uint) (*models.AgentDiscountLevel, error) {
	var key string
	if f.rc != nil && f.cacheConfig != nil && f.cacheConfig.Enabled {
		key = redisKey(*f.cacheConfig, fmt.Sprintf("%s:%d", utils.DiscountLevelCacheKey, id))
		if bs, err := f.rc.Get(ctx, key).Bytes(); err == nil && len(bs) > 0 {
			var level models.AgentDiscountLevel
			if err := json.Unmarshal(bs, &level); err == nil {
				return &level, nil
			}
		}
	}

	level, err := f.levelRepo.ByID(ctx, id)
	if err != nil || level == nil {
		return level, err
	}

	if key != "" {
		if bs, err := json.Marshal(level); err == nil {
			_ = f.rc.Set(ctx, key, bs, f.cacheConfig.DefaultTTL).Err()
		}
	}
	return level, nil
}
