package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/utils"
)

type fakeAgentRepo struct {
	agents map[uint]*models.Agent
}

func (r *fakeAgentRepo) ByID(ctx context.Context, id uint) (*models.Agent, error) {
	return r.agents[id], nil
}

func (r *fakeAgentRepo) ByFilter(ctx context.Context, filter models.AgentFilter, orderBy string, limit, offset int) ([]*models.Agent, error) {
	return nil, nil
}

func (r *fakeAgentRepo) Save(ctx context.Context, agent *models.Agent) error {
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) SaveBatch(ctx context.Context, agents []*models.Agent) error {
	for _, a := range agents {
		r.agents[a.ID] = a
	}
	return nil
}

func (r *fakeAgentRepo) ByUUID(ctx context.Context, uuid string) (*models.Agent, error) {
	return nil, nil
}

type fakeLevelRepo struct {
	levels map[uint]*models.AgentDiscountLevel
}

func (r *fakeLevelRepo) ByID(ctx context.Context, id uint) (*models.AgentDiscountLevel, error) {
	return r.levels[id], nil
}

func (r *fakeLevelRepo) ByFilter(ctx context.Context, filter models.AgentDiscountLevelFilter, orderBy string, limit, offset int) ([]*models.AgentDiscountLevel, error) {
	return nil, nil
}

func (r *fakeLevelRepo) Save(ctx context.Context, level *models.AgentDiscountLevel) error {
	r.levels[level.ID] = level
	return nil
}

func (r *fakeLevelRepo) SaveBatch(ctx context.Context, levels []*models.AgentDiscountLevel) error {
	return nil
}

func (r *fakeLevelRepo) ByCode(ctx context.Context, code string) (*models.AgentDiscountLevel, error) {
	for _, l := range r.levels {
		if l.Code == code {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeLevelRepo) ListActive(ctx context.Context) ([]*models.AgentDiscountLevel, error) {
	var out []*models.AgentDiscountLevel
	for _, l := range r.levels {
		if l.IsActive {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeOverrideRepo struct {
	overrides []*models.ProductAgentDiscount
}

func (r *fakeOverrideRepo) ByID(ctx context.Context, id uint) (*models.ProductAgentDiscount, error) {
	for _, o := range r.overrides {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, nil
}

func (r *fakeOverrideRepo) ByFilter(ctx context.Context, filter models.ProductAgentDiscountFilter, orderBy string, limit, offset int) ([]*models.ProductAgentDiscount, error) {
	return nil, nil
}

func (r *fakeOverrideRepo) Save(ctx context.Context, o *models.ProductAgentDiscount) error {
	r.overrides = append(r.overrides, o)
	return nil
}

func (r *fakeOverrideRepo) SaveBatch(ctx context.Context, os []*models.ProductAgentDiscount) error {
	r.overrides = append(r.overrides, os...)
	return nil
}

// EffectiveOverride mirrors the production query: active rows whose window
// contains now, latest ValidFrom winning.
func (r *fakeOverrideRepo) EffectiveOverride(ctx context.Context, productType models.ProductType, productID, levelID uint, now time.Time) (*models.ProductAgentDiscount, error) {
	var winner *models.ProductAgentDiscount
	for _, o := range r.overrides {
		if o.ProductType != productType || o.ProductID != productID || o.LevelID != levelID {
			continue
		}
		if !o.IsEffectiveAt(now) {
			continue
		}
		if winner == nil || o.ValidFrom.After(winner.ValidFrom) {
			winner = o
		}
	}
	return winner, nil
}

func (r *fakeOverrideRepo) ListEffective(ctx context.Context, productType models.ProductType, productID uint, now time.Time) ([]*models.ProductAgentDiscount, error) {
	return nil, nil
}

type fakeDiscountLogRepo struct {
	rows []*models.AgentDiscountLog
}

func (r *fakeDiscountLogRepo) ByID(ctx context.Context, id uint) (*models.AgentDiscountLog, error) {
	return nil, nil
}

func (r *fakeDiscountLogRepo) ByFilter(ctx context.Context, filter models.AgentDiscountLogFilter, orderBy string, limit, offset int) ([]*models.AgentDiscountLog, error) {
	return nil, nil
}

func (r *fakeDiscountLogRepo) Save(ctx context.Context, row *models.AgentDiscountLog) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *fakeDiscountLogRepo) SaveBatch(ctx context.Context, rows []*models.AgentDiscountLog) error {
	r.rows = append(r.rows, rows...)
	return nil
}

func (r *fakeDiscountLogRepo) ListByAgent(ctx context.Context, agentID uint, limit, offset int) ([]*models.AgentDiscountLog, error) {
	return nil, nil
}

func (r *fakeDiscountLogRepo) ListByBooking(ctx context.Context, bookingID string) ([]*models.AgentDiscountLog, error) {
	return nil, nil
}

func newTestDiscountFlow(agents *fakeAgentRepo, levels *fakeLevelRepo, overrides *fakeOverrideRepo, logs *fakeDiscountLogRepo) DiscountFlow {
	return NewDiscountFlow(agents, levels, overrides, logs, nil, nil)
}

func discountFixture() (*fakeAgentRepo, *fakeLevelRepo, *fakeOverrideRepo, *fakeDiscountLogRepo) {
	defaultRate := decimal.RequireFromString("0.90")
	agents := &fakeAgentRepo{agents: map[uint]*models.Agent{
		1: {ID: 1, Name: "Acme Travel", Status: models.AgentStatusActive, DiscountLevelID: utils.ToPtr(uint(5)), DefaultDiscountRate: &defaultRate},
		2: {ID: 2, Name: "No Level Co", Status: models.AgentStatusActive, DefaultDiscountRate: &defaultRate},
		3: {ID: 3, Name: "Plain Agent", Status: models.AgentStatusActive},
		4: {ID: 4, Name: "Disabled Agent", Status: models.AgentStatusDisabled, DiscountLevelID: utils.ToPtr(uint(5)), DefaultDiscountRate: &defaultRate},
	}}
	levels := &fakeLevelRepo{levels: map[uint]*models.AgentDiscountLevel{
		5: {ID: 5, Code: "A", SortOrder: 1, IsActive: true},
	}}
	return agents, levels, &fakeOverrideRepo{}, &fakeDiscountLogRepo{}
}

func window(from, until time.Time) (time.Time, time.Time) { return from, until }

func TestResolveProductOverrideWins(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	now := utils.UTCNow()
	from, until := window(now.Add(-time.Hour), now.Add(time.Hour))
	overrides.overrides = append(overrides.overrides, &models.ProductAgentDiscount{
		ID: 1, ProductType: models.ProductTypeDayTour, ProductID: 7, LevelID: 5,
		DiscountRate: decimal.RequireFromString("0.80"),
		ValidFrom:    from, ValidUntil: until, IsActive: true,
	})

	flow := newTestDiscountFlow(agents, levels, overrides, logs)
	decision, err := flow.Resolve(context.Background(), 1, models.ProductTypeDayTour, 7, now)
	require.NoError(t, err)

	assert.Equal(t, models.DiscountSourceProductOverride, decision.Source)
	assert.Equal(t, "0.8", decision.Rate.String())
	assert.Equal(t, "A", decision.LevelCode)
}

func TestResolveLatestValidFromWins(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	now := utils.UTCNow()
	overrides.overrides = append(overrides.overrides,
		&models.ProductAgentDiscount{
			ID: 1, ProductType: models.ProductTypeDayTour, ProductID: 7, LevelID: 5,
			DiscountRate: decimal.RequireFromString("0.80"),
			ValidFrom:    now.Add(-48 * time.Hour), ValidUntil: now.Add(48 * time.Hour), IsActive: true,
		},
		&models.ProductAgentDiscount{
			ID: 2, ProductType: models.ProductTypeDayTour, ProductID: 7, LevelID: 5,
			DiscountRate: decimal.RequireFromString("0.75"),
			ValidFrom:    now.Add(-1 * time.Hour), ValidUntil: now.Add(48 * time.Hour), IsActive: true,
		},
	)

	flow := newTestDiscountFlow(agents, levels, overrides, logs)
	decision, err := flow.Resolve(context.Background(), 1, models.ProductTypeDayTour, 7, now)
	require.NoError(t, err)
	assert.Equal(t, "0.75", decision.Rate.String())
}

func TestResolveFallsBackToAgentDefault(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	flow := newTestDiscountFlow(agents, levels, overrides, logs)

	// Agent with a level but no matching override
	decision, err := flow.Resolve(context.Background(), 1, models.ProductTypeDayTour, 7, utils.UTCNow())
	require.NoError(t, err)
	assert.Equal(t, models.DiscountSourceAgentDefault, decision.Source)
	assert.Equal(t, "0.9", decision.Rate.String())

	// Agent without a level at all
	decision, err = flow.Resolve(context.Background(), 2, models.ProductTypeDayTour, 7, utils.UTCNow())
	require.NoError(t, err)
	assert.Equal(t, models.DiscountSourceAgentDefault, decision.Source)
}

func TestResolveNoDiscountForBareAgent(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	flow := newTestDiscountFlow(agents, levels, overrides, logs)

	decision, err := flow.Resolve(context.Background(), 3, models.ProductTypeGroupTour, 7, utils.UTCNow())
	require.NoError(t, err)
	assert.Equal(t, models.DiscountSourceNone, decision.Source)
	assert.Equal(t, "1", decision.Rate.String())
}

func TestResolveDisabledAgentGetsNoDiscount(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	flow := newTestDiscountFlow(agents, levels, overrides, logs)

	decision, err := flow.Resolve(context.Background(), 4, models.ProductTypeDayTour, 7, utils.UTCNow())
	require.NoError(t, err)
	assert.Equal(t, models.DiscountSourceNone, decision.Source)
	assert.True(t, decision.Rate.Equal(decimal.RequireFromString("1.00")))
}

func TestResolveRejectsOutOfRangeRate(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	flow := newTestDiscountFlow(agents, levels, overrides, logs)

	// A default rate above 1 would mark the price up instead of down.
	badDefault := decimal.RequireFromString("1.50")
	agents.agents[2].DefaultDiscountRate = &badDefault
	_, err := flow.Resolve(context.Background(), 2, models.ProductTypeDayTour, 7, utils.UTCNow())
	assert.True(t, errors.Is(err, ErrDiscountRateOutOfRange))
	assert.True(t, IsConfigurationError(err))

	// A zero override rate would make the product free.
	now := utils.UTCNow()
	overrides.overrides = append(overrides.overrides, &models.ProductAgentDiscount{
		ID: 1, ProductType: models.ProductTypeDayTour, ProductID: 7, LevelID: 5,
		DiscountRate: decimal.Zero,
		ValidFrom:    now.Add(-time.Hour), ValidUntil: now.Add(time.Hour), IsActive: true,
	})
	_, err = flow.Resolve(context.Background(), 1, models.ProductTypeDayTour, 7, now)
	assert.True(t, errors.Is(err, ErrDiscountRateOutOfRange))
}

func TestResolveUnknownAgent(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	flow := newTestDiscountFlow(agents, levels, overrides, logs)

	_, err := flow.Resolve(context.Background(), 99, models.ProductTypeDayTour, 7, utils.UTCNow())
	assert.True(t, errors.Is(err, ErrAgentNotFound))
}

func TestResolveUnknownProductType(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	flow := newTestDiscountFlow(agents, levels, overrides, logs)

	_, err := flow.Resolve(context.Background(), 1, "cruise", 7, utils.UTCNow())
	assert.True(t, errors.Is(err, ErrUnknownProductType))
}

func TestResolveIsDeterministic(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	now := utils.UTCNow()
	overrides.overrides = append(overrides.overrides, &models.ProductAgentDiscount{
		ID: 1, ProductType: models.ProductTypeDayTour, ProductID: 7, LevelID: 5,
		DiscountRate: decimal.RequireFromString("0.80"),
		ValidFrom:    now.Add(-time.Hour), ValidUntil: now.Add(time.Hour), IsActive: true,
	})
	flow := newTestDiscountFlow(agents, levels, overrides, logs)

	first, err := flow.Resolve(context.Background(), 1, models.ProductTypeDayTour, 7, now)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := flow.Resolve(context.Background(), 1, models.ProductTypeDayTour, 7, now)
		require.NoError(t, err)
		assert.True(t, first.Rate.Equal(again.Rate))
		assert.Equal(t, first.Source, again.Source)
	}
}

func TestApplyComputesDiscount(t *testing.T) {
	flow := &DiscountFlowImpl{}
	decision := &DiscountDecision{Rate: decimal.RequireFromString("0.85"), Source: models.DiscountSourceProductOverride}

	applied := flow.Apply(decision, models.MustMoney("200.00"))
	assert.Equal(t, "30.00", applied.DiscountAmount.String())
	assert.Equal(t, "170.00", applied.FinalPrice.String())
	assert.False(t, applied.CapApplied)
}

func TestApplyMinOrderWithholdsDiscount(t *testing.T) {
	flow := &DiscountFlowImpl{}
	min := models.MustMoney("500.00")
	decision := &DiscountDecision{
		Rate:           decimal.RequireFromString("0.85"),
		Source:         models.DiscountSourceProductOverride,
		MinOrderAmount: &min,
	}

	applied := flow.Apply(decision, models.MustMoney("200.00"))
	assert.Equal(t, "200.00", applied.FinalPrice.String())
	assert.Equal(t, models.DiscountSourceNone, applied.Decision.Source)
	assert.True(t, applied.DiscountAmount.IsZero())
}

func TestApplyCapClampsDiscount(t *testing.T) {
	flow := &DiscountFlowImpl{}
	cap := models.MustMoney("20.00")
	decision := &DiscountDecision{
		Rate:              decimal.RequireFromString("0.85"),
		Source:            models.DiscountSourceProductOverride,
		MaxDiscountAmount: &cap,
	}

	applied := flow.Apply(decision, models.MustMoney("200.00"))
	assert.True(t, applied.CapApplied)
	assert.Equal(t, "20.00", applied.DiscountAmount.String())
	assert.Equal(t, "180.00", applied.FinalPrice.String())
}

func TestResolveAndApplyWritesLog(t *testing.T) {
	agents, levels, overrides, logs := discountFixture()
	flow := newTestDiscountFlow(agents, levels, overrides, logs)

	bookingID := "BK-2001"
	applied, err := flow.ResolveAndApply(context.Background(), 1, models.ProductTypeDayTour, 7, models.MustMoney("200.00"), &bookingID)
	require.NoError(t, err)

	require.Len(t, logs.rows, 1)
	row := logs.rows[0]
	assert.Equal(t, uint(1), row.AgentID)
	assert.Equal(t, "BK-2001", *row.BookingID)
	assert.True(t, row.FinalPrice.Equal(applied.FinalPrice))
	assert.Equal(t, models.DiscountSourceAgentDefault, row.Source)
}
