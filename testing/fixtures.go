package testing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestDiscountLevel creates a discount level tier
func (tf *TestFixtures) CreateTestDiscountLevel(code string, sortOrder int) (*models.AgentDiscountLevel, error) {
	level := &models.AgentDiscountLevel{
		Code:      code,
		SortOrder: sortOrder,
		IsActive:  true,
	}
	if err := tf.DB.DB.Create(level).Error; err != nil {
		return nil, fmt.Errorf("failed to create test discount level: %w", err)
	}
	return level, nil
}

// CreateTestAgent creates an active agent, optionally assigned to a level with a default rate
func (tf *TestFixtures) CreateTestAgent(name string, levelID *uint, defaultRate *string) (*models.Agent, error) {
	agent := &models.Agent{
		Name:            name,
		Status:          models.AgentStatusActive,
		DiscountLevelID: levelID,
	}
	if defaultRate != nil {
		rate, err := decimal.NewFromString(*defaultRate)
		if err != nil {
			return nil, fmt.Errorf("invalid default rate %q: %w", *defaultRate, err)
		}
		agent.DefaultDiscountRate = &rate
	}
	if err := tf.DB.DB.Create(agent).Error; err != nil {
		return nil, fmt.Errorf("failed to create test agent: %w", err)
	}
	return agent, nil
}

// CreateTestOverride creates a product discount override effective for the given window
func (tf *TestFixtures) CreateTestOverride(productType models.ProductType, productID, levelID uint, rate string, validFrom, validUntil time.Time) (*models.ProductAgentDiscount, error) {
	override := &models.ProductAgentDiscount{
		ProductType:  productType,
		ProductID:    productID,
		LevelID:      levelID,
		DiscountRate: decimal.RequireFromString(rate),
		ValidFrom:    validFrom,
		ValidUntil:   validUntil,
		IsActive:     true,
	}
	if err := tf.DB.DB.Create(override).Error; err != nil {
		return nil, fmt.Errorf("failed to create test override: %w", err)
	}
	return override, nil
}

// CreateTestCredit creates a credit account with the given total and used amounts
func (tf *TestFixtures) CreateTestCredit(agentID uint, total, used string) (*models.AgentCredit, error) {
	credit := &models.AgentCredit{
		AgentID:         agentID,
		TotalCredit:     models.MustMoney(total),
		UsedCredit:      models.MustMoney(used),
		BillingCycleDay: 1,
	}
	credit.Recompute()
	if err := tf.DB.DB.Create(credit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test credit account: %w", err)
	}
	return credit, nil
}

// CreateTestHotelLevels creates a baseline tier plus one upgraded tier
func (tf *TestFixtures) CreateTestHotelLevels(baselineDiff, upgradedDiff string) (*models.HotelLevel, *models.HotelLevel, error) {
	baseline := &models.HotelLevel{
		Code:       "standard",
		Name:       "Standard",
		PriceDiff:  models.MustMoney(baselineDiff),
		IsBaseline: true,
		IsActive:   true,
	}
	if err := tf.DB.DB.Create(baseline).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create baseline hotel level: %w", err)
	}

	upgraded := &models.HotelLevel{
		Code:      "superior",
		Name:      "Superior",
		PriceDiff: models.MustMoney(upgradedDiff),
		IsActive:  true,
	}
	if err := tf.DB.DB.Create(upgraded).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create upgraded hotel level: %w", err)
	}

	return baseline, upgraded, nil
}

// CreateTestRoomType creates one bookable room configuration
func (tf *TestFixtures) CreateTestRoomType(code, basePrice string, capacity int) (*models.RoomType, error) {
	room := &models.RoomType{
		Code:      code,
		Name:      fmt.Sprintf("Room %s", code),
		BasePrice: models.MustMoney(basePrice),
		Capacity:  capacity,
		IsActive:  true,
	}
	if err := tf.DB.DB.Create(room).Error; err != nil {
		return nil, fmt.Errorf("failed to create test room type: %w", err)
	}
	return room, nil
}

// CreateTestOptionalTour creates one optional side-trip
func (tf *TestFixtures) CreateTestOptionalTour(name, priceDiff string) (*models.OptionalTour, error) {
	tour := &models.OptionalTour{
		Name:            name,
		PriceDifference: models.MustMoney(priceDiff),
		IsActive:        true,
	}
	if err := tf.DB.DB.Create(tour).Error; err != nil {
		return nil, fmt.Errorf("failed to create test optional tour: %w", err)
	}
	return tour, nil
}

// CreateTestChildAgeBands creates the standard infant/child band split
func (tf *TestFixtures) CreateTestChildAgeBands(infantPrice, childPrice string) error {
	bands := []*models.ChildAgeBand{
		{Code: "infant", MinAge: 0, MaxAge: 2, UnitPrice: models.MustMoney(infantPrice), IsActive: true},
		{Code: "child", MinAge: 2, MaxAge: 12, UnitPrice: models.MustMoney(childPrice), IsActive: true},
	}
	for _, band := range bands {
		if err := tf.DB.DB.Create(band).Error; err != nil {
			return fmt.Errorf("failed to create test age band %s: %w", band.Code, err)
		}
	}
	return nil
}

// DisableAgent flips an agent to disabled status
func (tf *TestFixtures) DisableAgent(agentID uint) error {
	return tf.DB.DB.Model(&models.Agent{}).
		Where("id = ?", agentID).
		Updates(map[string]any{"status": models.AgentStatusDisabled, "updated_at": utils.UTCNow()}).Error
}
