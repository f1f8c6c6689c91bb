package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tourvanir/pricing-core/models"
	"gorm.io/gorm"
)

// ProductAgentDiscountRepositoryImpl implements ProductAgentDiscountRepository interface
type ProductAgentDiscountRepositoryImpl struct {
	*BaseRepository[models.ProductAgentDiscount, models.ProductAgentDiscountFilter]
}

// NewProductAgentDiscountRepository creates a new product discount override repository
func NewProductAgentDiscountRepository(db *gorm.DB) ProductAgentDiscountRepository {
	return &ProductAgentDiscountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ProductAgentDiscount, models.ProductAgentDiscountFilter](db),
	}
}

// EffectiveOverride returns the active override for (productType, productID, levelID)
// whose [valid_from, valid_until) window contains now. When several windows match,
// the one with the latest valid_from wins (most recent override takes precedence).
func (r *ProductAgentDiscountRepositoryImpl) EffectiveOverride(ctx context.Context, productType models.ProductType, productID, levelID uint, now time.Time) (*models.ProductAgentDiscount, error) {
	db := r.getDB(ctx)
	var override models.ProductAgentDiscount
	err := db.Where("product_type = ? AND product_id = ? AND level_id = ?", productType, productID, levelID).
		Where("is_active = ?", true).
		Where("valid_from <= ? AND valid_until > ?", now, now).
		Order("valid_from DESC").
		First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

// ListEffective returns all active overrides for a product across levels at the given time
func (r *ProductAgentDiscountRepositoryImpl) ListEffective(ctx context.Context, productType models.ProductType, productID uint, now time.Time) ([]*models.ProductAgentDiscount, error) {
	db := r.getDB(ctx)
	var overrides []*models.ProductAgentDiscount
	err := db.Where("product_type = ? AND product_id = ?", productType, productID).
		Where("is_active = ?", true).
		Where("valid_from <= ? AND valid_until > ?", now, now).
		Order("level_id ASC, valid_from DESC").
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

// ByFilter retrieves overrides based on filter criteria
func (r *ProductAgentDiscountRepositoryImpl) ByFilter(ctx context.Context, filter models.ProductAgentDiscountFilter, orderBy string, limit, offset int) ([]*models.ProductAgentDiscount, error) {
	db := r.getDB(ctx)
	var overrides []*models.ProductAgentDiscount

	query := r.applyFilter(db.Model(&models.ProductAgentDiscount{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *ProductAgentDiscountRepositoryImpl) applyFilter(db *gorm.DB, filter models.ProductAgentDiscountFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.ProductType != nil {
		db = db.Where("product_type = ?", *filter.ProductType)
	}
	if filter.ProductID != nil {
		db = db.Where("product_id = ?", *filter.ProductID)
	}
	if filter.LevelID != nil {
		db = db.Where("level_id = ?", *filter.LevelID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.EffectiveAt != nil {
		db = db.Where("valid_from <= ? AND valid_until > ?", *filter.EffectiveAt, *filter.EffectiveAt)
	}
	return db
}
