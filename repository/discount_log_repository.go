package repository

import (
	"context"

	"github.com/tourvanir/pricing-core/models"
	"gorm.io/gorm"
)

// DiscountLogRepositoryImpl implements DiscountLogRepository interface.
// Discount logs are append-only; no update or delete methods exist.
type DiscountLogRepositoryImpl struct {
	*BaseRepository[models.AgentDiscountLog, models.AgentDiscountLogFilter]
}

// NewDiscountLogRepository creates a new discount log repository
func NewDiscountLogRepository(db *gorm.DB) DiscountLogRepository {
	return &DiscountLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AgentDiscountLog, models.AgentDiscountLogFilter](db),
	}
}

// ListByAgent returns discount logs for an agent, newest first
func (r *DiscountLogRepositoryImpl) ListByAgent(ctx context.Context, agentID uint, limit, offset int) ([]*models.AgentDiscountLog, error) {
	db := r.getDB(ctx)
	var logs []*models.AgentDiscountLog
	err := db.Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// ListByBooking returns all discount logs written for one booking
func (r *DiscountLogRepositoryImpl) ListByBooking(ctx context.Context, bookingID string) ([]*models.AgentDiscountLog, error) {
	db := r.getDB(ctx)
	var logs []*models.AgentDiscountLog
	err := db.Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// ByFilter retrieves discount logs based on filter criteria
func (r *DiscountLogRepositoryImpl) ByFilter(ctx context.Context, filter models.AgentDiscountLogFilter, orderBy string, limit, offset int) ([]*models.AgentDiscountLog, error) {
	db := r.getDB(ctx)
	var logs []*models.AgentDiscountLog

	query := db.Model(&models.AgentDiscountLog{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.BookingID != nil {
		query = query.Where("booking_id = ?", *filter.BookingID)
	}
	if filter.ProductType != nil {
		query = query.Where("product_type = ?", *filter.ProductType)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
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

	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
