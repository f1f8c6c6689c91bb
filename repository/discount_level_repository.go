package repository

import (
	"context"
	"errors"

	"github.com/tourvanir/pricing-core/models"
	"gorm.io/gorm"
)

// DiscountLevelRepositoryImpl implements DiscountLevelRepository interface
type DiscountLevelRepositoryImpl struct {
	*BaseRepository[models.AgentDiscountLevel, models.AgentDiscountLevelFilter]
}

// NewDiscountLevelRepository creates a new discount level repository
func NewDiscountLevelRepository(db *gorm.DB) DiscountLevelRepository {
	return &DiscountLevelRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AgentDiscountLevel, models.AgentDiscountLevelFilter](db),
	}
}

// ByCode finds a discount level by its level code
func (r *DiscountLevelRepositoryImpl) ByCode(ctx context.Context, code string) (*models.AgentDiscountLevel, error) {
	db := r.getDB(ctx)
	var level models.AgentDiscountLevel
	err := db.Where("code = ?", code).Last(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

// ListActive returns all active levels ordered by tier (lower sort order = higher tier)
func (r *DiscountLevelRepositoryImpl) ListActive(ctx context.Context) ([]*models.AgentDiscountLevel, error) {
	db := r.getDB(ctx)
	var levels []*models.AgentDiscountLevel
	err := db.Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&levels).Error
	if err != nil {
		return nil, err
	}
	return levels, nil
}

// ByFilter retrieves discount levels based on filter criteria
func (r *DiscountLevelRepositoryImpl) ByFilter(ctx context.Context, filter models.AgentDiscountLevelFilter, orderBy string, limit, offset int) ([]*models.AgentDiscountLevel, error) {
	db := r.getDB(ctx)
	var levels []*models.AgentDiscountLevel

	query := db.Model(&models.AgentDiscountLevel{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Code != nil {
		query = query.Where("code = ?", *filter.Code)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}
