package tests

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	businessflow "github.com/tourvanir/pricing-core/business_flow"
	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/repository"
	testingutil "github.com/tourvanir/pricing-core/testing"
	"github.com/tourvanir/pricing-core/utils"
)

func TestEffectiveOverrideSelection(t *testing.T) {
	withTestDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewProductAgentDiscountRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		level, err := fixtures.CreateTestDiscountLevel("gold", 1)
		require.NoError(t, err)

		now := utils.UTCNow()
		productID := uint(42)

		t.Run("NoOverride", func(t *testing.T) {
			override, err := repo.EffectiveOverride(ctx, models.ProductTypeGroupTour, productID, level.ID, now)
			require.NoError(t, err)
			assert.Nil(t, override)
		})

		// Older window and a newer one, both containing now.
		_, err = fixtures.CreateTestOverride(models.ProductTypeGroupTour, productID, level.ID, "0.85",
			now.AddDate(0, 0, -30), now.AddDate(0, 0, 30))
		require.NoError(t, err)
		newer, err := fixtures.CreateTestOverride(models.ProductTypeGroupTour, productID, level.ID, "0.75",
			now.AddDate(0, 0, -2), now.AddDate(0, 0, 10))
		require.NoError(t, err)

		t.Run("LatestValidFromWins", func(t *testing.T) {
			override, err := repo.EffectiveOverride(ctx, models.ProductTypeGroupTour, productID, level.ID, now)
			require.NoError(t, err)
			require.NotNil(t, override)
			assert.Equal(t, newer.ID, override.ID)
			assert.Equal(t, "0.75", override.DiscountRate.String())
		})

		t.Run("HalfOpenWindow", func(t *testing.T) {
			// Expired exactly at valid_until: the window is [from, until).
			expired, err := fixtures.CreateTestOverride(models.ProductTypeGroupTour, 43, level.ID, "0.70",
				now.Add(-time.Hour), now)
			require.NoError(t, err)

			override, err := repo.EffectiveOverride(ctx, models.ProductTypeGroupTour, 43, level.ID, now)
			require.NoError(t, err)
			assert.Nil(t, override)

			// Still effective one second before the boundary.
			override, err = repo.EffectiveOverride(ctx, models.ProductTypeGroupTour, 43, level.ID, now.Add(-time.Second))
			require.NoError(t, err)
			require.NotNil(t, override)
			assert.Equal(t, expired.ID, override.ID)
		})

		t.Run("OtherLevelDoesNotMatch", func(t *testing.T) {
			otherLevel, err := fixtures.CreateTestDiscountLevel("silver", 2)
			require.NoError(t, err)
			override, err := repo.EffectiveOverride(ctx, models.ProductTypeGroupTour, productID, otherLevel.ID, now)
			require.NoError(t, err)
			assert.Nil(t, override)
		})
	})
}

func TestDiscountResolutionEndToEnd(t *testing.T) {
	withTestDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		flow := businessflow.NewDiscountFlow(
			repository.NewAgentRepository(testDB.DB),
			repository.NewDiscountLevelRepository(testDB.DB),
			repository.NewProductAgentDiscountRepository(testDB.DB),
			repository.NewDiscountLogRepository(testDB.DB),
			nil, nil,
		)

		level, err := fixtures.CreateTestDiscountLevel("gold", 1)
		require.NoError(t, err)
		defaultRate := "0.90"
		agent, err := fixtures.CreateTestAgent("Resolution Travel", &level.ID, &defaultRate)
		require.NoError(t, err)

		now := utils.UTCNow()
		productID := uint(7)

		t.Run("AgentDefaultWithoutOverride", func(t *testing.T) {
			decision, err := flow.Resolve(ctx, agent.ID, models.ProductTypeDayTour, productID, now)
			require.NoError(t, err)
			assert.Equal(t, models.DiscountSourceAgentDefault, decision.Source)
			assert.Equal(t, "0.9", decision.Rate.String())
		})

		t.Run("OverrideWinsOverDefault", func(t *testing.T) {
			_, err := fixtures.CreateTestOverride(models.ProductTypeDayTour, productID, level.ID, "0.80",
				now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
			require.NoError(t, err)

			decision, err := flow.Resolve(ctx, agent.ID, models.ProductTypeDayTour, productID, now)
			require.NoError(t, err)
			assert.Equal(t, models.DiscountSourceProductOverride, decision.Source)
			assert.Equal(t, "0.8", decision.Rate.String())
			assert.Equal(t, "gold", decision.LevelCode)
		})

		t.Run("DisabledAgentGetsNoDiscount", func(t *testing.T) {
			require.NoError(t, fixtures.DisableAgent(agent.ID))

			decision, err := flow.Resolve(ctx, agent.ID, models.ProductTypeDayTour, productID, now)
			require.NoError(t, err)
			assert.Equal(t, models.DiscountSourceNone, decision.Source)
			assert.Equal(t, "1", decision.Rate.String())
		})

		t.Run("ResolveAndApplyWritesLogRow", func(t *testing.T) {
			fresh, err := fixtures.CreateTestAgent("Logged Travel", &level.ID, &defaultRate)
			require.NoError(t, err)

			bookingID := "BK-LOG-1"
			applied, err := flow.ResolveAndApply(ctx, fresh.ID, models.ProductTypeDayTour, 99, models.MustMoney("200.00"), &bookingID)
			require.NoError(t, err)
			assert.True(t, applied.FinalPrice.Equal(models.MustMoney("180.00")))

			logRepo := repository.NewDiscountLogRepository(testDB.DB)
			rows, err := logRepo.ListByBooking(ctx, bookingID)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, fresh.ID, rows[0].AgentID)
			assert.Equal(t, models.DiscountSourceAgentDefault, rows[0].Source)
			assert.True(t, rows[0].FinalPrice.Equal(models.MustMoney("180.00")))
		})
	})
}

func snapshotForBooking(agentID uint, bookingID string) *models.TourBookingPriceSnapshot {
	return &models.TourBookingPriceSnapshot{
		BookingID:          bookingID,
		AgentID:            agentID,
		ProductType:        models.ProductTypeGroupTour,
		ProductID:          7,
		BaseUnitPrice:      models.MustMoney("200.00"),
		DiscountRate:       decimal.RequireFromString("0.85"),
		AdultCount:         2,
		ChildCount:         1,
		Nights:             4,
		AdultTotal:         models.MustMoney("340.00"),
		ChildTotal:         models.MustMoney("102.00"),
		HotelPriceDiff:     models.MustMoney("0.00"),
		RoomFees:           models.MustMoney("0.00"),
		SingleRoomSuppl:    models.MustMoney("0.00"),
		OptionalToursTotal: models.MustMoney("90.00"),
		TotalPrice:         models.MustMoney("532.00"),
		NonAgentPrice:      models.MustMoney("610.00"),
		ChildrenDetails: models.ChildPriceDetails{
			{Age: 5, BandCode: "child", UnitPrice: models.MustMoney("120.00"), FinalPrice: models.MustMoney("102.00")},
		},
		Rooms:         models.RoomSelections{},
		OptionalTours: models.OptionalTourCharges{},
		ConfigSnapshot: models.PricingConfigSnapshot{
			HotelLevelCode:    "standard",
			HotelLevelDiff:    models.MustMoney("0.00"),
			BaselineLevelCode: "standard",
			SingleRoomSuppl:   models.MustMoney("0.00"),
			DiscountRate:      decimal.RequireFromString("0.85"),
			DiscountSource:    models.DiscountSourceProductOverride,
			CalculatedAt:      utils.UTCNow(),
		},
		CreatedAt: utils.UTCNow(),
	}
}

func TestPriceSnapshotWriteOnce(t *testing.T) {
	withTestDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewPriceSnapshotRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		agent, err := fixtures.CreateTestAgent("Snapshot Travel", nil, nil)
		require.NoError(t, err)

		first := snapshotForBooking(agent.ID, "BK-SNAP-1")
		require.NoError(t, repo.Save(ctx, first))
		assert.NotZero(t, first.ID)

		t.Run("SecondSaveRejected", func(t *testing.T) {
			second := snapshotForBooking(agent.ID, "BK-SNAP-1")
			err := repo.Save(ctx, second)
			assert.ErrorIs(t, err, repository.ErrDuplicateSnapshot)
		})

		t.Run("StoredVerbatim", func(t *testing.T) {
			stored, err := repo.ByBookingID(ctx, "BK-SNAP-1")
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, first.ID, stored.ID)
			assert.True(t, stored.TotalPrice.Equal(models.MustMoney("532.00")))
			assert.True(t, stored.NonAgentPrice.Equal(models.MustMoney("610.00")))
			require.Len(t, stored.ChildrenDetails, 1)
			assert.Equal(t, "child", stored.ChildrenDetails[0].BandCode)
			assert.Equal(t, "standard", stored.ConfigSnapshot.HotelLevelCode)
			assert.Equal(t, "0.85", stored.ConfigSnapshot.DiscountRate.String())
			assert.NoError(t, stored.Validate())
		})

		t.Run("ExistsForBooking", func(t *testing.T) {
			exists, err := repo.ExistsForBooking(ctx, "BK-SNAP-1")
			require.NoError(t, err)
			assert.True(t, exists)

			exists, err = repo.ExistsForBooking(ctx, "BK-SNAP-MISSING")
			require.NoError(t, err)
			assert.False(t, exists)
		})

		t.Run("ByBookingIDNotFound", func(t *testing.T) {
			stored, err := repo.ByBookingID(ctx, "BK-SNAP-MISSING")
			require.NoError(t, err)
			assert.Nil(t, stored)
		})
	})
}

func TestAgentCreditRepository(t *testing.T) {
	withTestDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewAgentCreditRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		agent, err := fixtures.CreateTestAgent("Ledger Travel", nil, nil)
		require.NoError(t, err)
		created, err := fixtures.CreateTestCredit(agent.ID, "3000.00", "1200.00")
		require.NoError(t, err)

		t.Run("ByAgentID", func(t *testing.T) {
			credit, err := repo.ByAgentID(ctx, agent.ID)
			require.NoError(t, err)
			require.NotNil(t, credit)
			assert.Equal(t, created.ID, credit.ID)
			assert.True(t, credit.AvailableCredit.Equal(models.MustMoney("1800.00")))
		})

		t.Run("ByAgentIDNotFound", func(t *testing.T) {
			credit, err := repo.ByAgentID(ctx, agent.ID+999)
			require.NoError(t, err)
			assert.Nil(t, credit)
		})

		t.Run("Update", func(t *testing.T) {
			credit, err := repo.ByAgentID(ctx, agent.ID)
			require.NoError(t, err)
			credit.UsedCredit = models.MustMoney("1500.00")
			credit.Recompute()
			require.NoError(t, repo.Update(ctx, credit))

			reloaded, err := repo.ByAgentID(ctx, agent.ID)
			require.NoError(t, err)
			assert.True(t, reloaded.AvailableCredit.Equal(models.MustMoney("1500.00")))
		})
	})
}

func TestRepositoryByID(t *testing.T) {
	withTestDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewAgentRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		first, err := fixtures.CreateTestAgent("First Travel", nil, nil)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAgent("Second Travel", nil, nil)
		require.NoError(t, err)

		t.Run("Found", func(t *testing.T) {
			got, err := repo.ByID(ctx, first.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, first.ID, got.ID)
			assert.Equal(t, "First Travel", got.Name)
		})

		t.Run("Missing", func(t *testing.T) {
			got, err := repo.ByID(ctx, first.ID+999)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	})
}
