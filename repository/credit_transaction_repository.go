package repository

import (
	"context"
	"errors"

	"github.com/tourvanir/pricing-core/models"
	"gorm.io/gorm"
)

// CreditTransactionRepositoryImpl implements CreditTransactionRepository interface.
// Ledger entries are append-only; no update or delete methods exist.
type CreditTransactionRepositoryImpl struct {
	*BaseRepository[models.CreditTransaction, models.CreditTransactionFilter]
}

// NewCreditTransactionRepository creates a new credit transaction repository
func NewCreditTransactionRepository(db *gorm.DB) CreditTransactionRepository {
	return &CreditTransactionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CreditTransaction, models.CreditTransactionFilter](db),
	}
}

// ByBookingAndType returns the existing ledger entry for the idempotency key
// (agentID, bookingID, type), or nil when no such entry exists
func (r *CreditTransactionRepositoryImpl) ByBookingAndType(ctx context.Context, agentID uint, bookingID string, txType models.CreditTransactionType) (*models.CreditTransaction, error) {
	db := r.getDB(ctx)
	var entry models.CreditTransaction
	err := db.Where("agent_id = ? AND booking_id = ? AND type = ?", agentID, bookingID, txType).
		Order("created_at ASC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListByAgent returns ledger entries for an agent, oldest first, so callers can
// replay balanceBefore/balanceAfter chains in order
func (r *CreditTransactionRepositoryImpl) ListByAgent(ctx context.Context, agentID uint, filter models.CreditTransactionFilter, limit, offset int) ([]*models.CreditTransaction, error) {
	db := r.getDB(ctx)
	var entries []*models.CreditTransaction

	query := r.applyFilter(db.Model(&models.CreditTransaction{}).Where("agent_id = ?", agentID), filter).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByAgent returns the number of ledger entries matching the filter
func (r *CreditTransactionRepositoryImpl) CountByAgent(ctx context.Context, agentID uint, filter models.CreditTransactionFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	query := r.applyFilter(db.Model(&models.CreditTransaction{}).Where("agent_id = ?", agentID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ByFilter retrieves ledger entries based on filter criteria
func (r *CreditTransactionRepositoryImpl) ByFilter(ctx context.Context, filter models.CreditTransactionFilter, orderBy string, limit, offset int) ([]*models.CreditTransaction, error) {
	db := r.getDB(ctx)
	var entries []*models.CreditTransaction

	query := r.applyFilter(db.Model(&models.CreditTransaction{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *CreditTransactionRepositoryImpl) applyFilter(db *gorm.DB, filter models.CreditTransactionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.AgentID != nil {
		db = db.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	if filter.BookingID != nil {
		db = db.Where("booking_id = ?", *filter.BookingID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
