package repository

import (
	"context"

	"github.com/tourvanir/pricing-core/models"
	"gorm.io/gorm"
)

// PaymentAuditLogRepositoryImpl implements PaymentAuditLogRepository interface.
// Audit rows are append-only; no update or delete methods exist.
type PaymentAuditLogRepositoryImpl struct {
	*BaseRepository[models.PaymentAuditLog, models.PaymentAuditLogFilter]
}

// NewPaymentAuditLogRepository creates a new payment audit log repository
func NewPaymentAuditLogRepository(db *gorm.DB) PaymentAuditLogRepository {
	return &PaymentAuditLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PaymentAuditLog, models.PaymentAuditLogFilter](db),
	}
}

// ListByAgent returns payment audit rows for an agent, newest first
func (r *PaymentAuditLogRepositoryImpl) ListByAgent(ctx context.Context, agentID uint, limit, offset int) ([]*models.PaymentAuditLog, error) {
	db := r.getDB(ctx)
	var logs []*models.PaymentAuditLog
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

// ListFailedActions returns rejected or errored mutation attempts, newest first
func (r *PaymentAuditLogRepositoryImpl) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.PaymentAuditLog, error) {
	db := r.getDB(ctx)
	var logs []*models.PaymentAuditLog
	err := db.Where("success = ?", false).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// ByFilter retrieves payment audit rows based on filter criteria
func (r *PaymentAuditLogRepositoryImpl) ByFilter(ctx context.Context, filter models.PaymentAuditLogFilter, orderBy string, limit, offset int) ([]*models.PaymentAuditLog, error) {
	db := r.getDB(ctx)
	var logs []*models.PaymentAuditLog

	query := db.Model(&models.PaymentAuditLog{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.BookingID != nil {
		query = query.Where("booking_id = ?", *filter.BookingID)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if filter.RequestID != nil {
		query = query.Where("request_id = ?", *filter.RequestID)
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
