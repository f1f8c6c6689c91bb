package repository

import (
	"context"
	"time"

	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/utils"
	"gorm.io/gorm"
)

// CalculationAuditLogRepositoryImpl implements CalculationAuditLogRepository interface.
// Calculation audit rows are append-only; no update or delete methods exist.
type CalculationAuditLogRepositoryImpl struct {
	*BaseRepository[models.PriceCalculationAuditLog, models.PriceCalculationAuditLogFilter]
}

// NewCalculationAuditLogRepository creates a new calculation audit log repository
func NewCalculationAuditLogRepository(db *gorm.DB) CalculationAuditLogRepository {
	return &CalculationAuditLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PriceCalculationAuditLog, models.PriceCalculationAuditLogFilter](db),
	}
}

// ListSuspicious returns flagged calculation attempts, newest first
func (r *CalculationAuditLogRepositoryImpl) ListSuspicious(ctx context.Context, limit, offset int) ([]*models.PriceCalculationAuditLog, error) {
	db := r.getDB(ctx)
	var logs []*models.PriceCalculationAuditLog
	err := db.Where("suspicious = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// CountRecentByAgent counts calculation attempts by an agent inside the given
// trailing window. Used as a fallback frequency source when the cache is down.
func (r *CalculationAuditLogRepositoryImpl) CountRecentByAgent(ctx context.Context, agentID uint, window time.Duration) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.PriceCalculationAuditLog{}).
		Where("agent_id = ? AND created_at >= ?", agentID, utils.UTCNow().Add(-window)).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ByFilter retrieves calculation audit rows based on filter criteria
func (r *CalculationAuditLogRepositoryImpl) ByFilter(ctx context.Context, filter models.PriceCalculationAuditLogFilter, orderBy string, limit, offset int) ([]*models.PriceCalculationAuditLog, error) {
	db := r.getDB(ctx)
	var logs []*models.PriceCalculationAuditLog

	query := db.Model(&models.PriceCalculationAuditLog{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.ProductType != nil {
		query = query.Where("product_type = ?", *filter.ProductType)
	}
	if filter.Suspicious != nil {
		query = query.Where("suspicious = ?", *filter.Suspicious)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
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
