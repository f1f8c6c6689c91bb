package repository

import (
	"context"
	"errors"

	"github.com/tourvanir/pricing-core/models"
	"gorm.io/gorm"
)

// AgentRepositoryImpl implements AgentRepository interface
type AgentRepositoryImpl struct {
	*BaseRepository[models.Agent, models.AgentFilter]
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &AgentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Agent, models.AgentFilter](db),
	}
}

// ByUUID finds an agent by UUID
func (r *AgentRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Agent, error) {
	db := r.getDB(ctx)
	var agent models.Agent
	err := db.Where("uuid = ?", uuid).Last(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &agent, nil
}

// ByFilter retrieves agents based on filter criteria
func (r *AgentRepositoryImpl) ByFilter(ctx context.Context, filter models.AgentFilter, orderBy string, limit, offset int) ([]*models.Agent, error) {
	db := r.getDB(ctx)
	var agents []*models.Agent

	query := r.applyFilter(db.Model(&models.Agent{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *AgentRepositoryImpl) applyFilter(db *gorm.DB, filter models.AgentFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.DiscountLevelID != nil {
		db = db.Where("discount_level_id = ?", *filter.DiscountLevelID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
