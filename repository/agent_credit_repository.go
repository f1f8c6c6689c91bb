package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tourvanir/pricing-core/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgentCreditRepositoryImpl implements AgentCreditRepository interface
type AgentCreditRepositoryImpl struct {
	*BaseRepository[models.AgentCredit, models.AgentCreditFilter]
}

// NewAgentCreditRepository creates a new agent credit repository
func NewAgentCreditRepository(db *gorm.DB) AgentCreditRepository {
	return &AgentCreditRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AgentCredit, models.AgentCreditFilter](db),
	}
}

// ByAgentID finds the credit head row for an agent
func (r *AgentCreditRepositoryImpl) ByAgentID(ctx context.Context, agentID uint) (*models.AgentCredit, error) {
	db := r.getDB(ctx)
	var credit models.AgentCredit
	err := db.Where("agent_id = ?", agentID).Last(&credit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &credit, nil
}

// ByAgentIDForUpdate reads the credit head row under SELECT ... FOR UPDATE.
// Callers must run inside a transaction started via WithTransaction; two
// concurrent debits against the same agent serialize on this row lock.
func (r *AgentCreditRepositoryImpl) ByAgentIDForUpdate(ctx context.Context, agentID uint) (*models.AgentCredit, error) {
	tx, ok := ctx.Value(TxContextKey).(*gorm.DB)
	if !ok || tx == nil {
		return nil, fmt.Errorf("ByAgentIDForUpdate requires an enclosing transaction")
	}

	var credit models.AgentCredit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("agent_id = ?", agentID).
		Last(&credit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &credit, nil
}

// Update persists a mutated credit head row
func (r *AgentCreditRepositoryImpl) Update(ctx context.Context, credit *models.AgentCredit) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Save(credit).Error
	if err != nil {
		return fmt.Errorf("failed to update agent credit: %w", err)
	}

	return nil
}

// ByFilter retrieves credit accounts based on filter criteria
func (r *AgentCreditRepositoryImpl) ByFilter(ctx context.Context, filter models.AgentCreditFilter, orderBy string, limit, offset int) ([]*models.AgentCredit, error) {
	db := r.getDB(ctx)
	var credits []*models.AgentCredit

	query := db.Model(&models.AgentCredit{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.IsFrozen != nil {
		query = query.Where("is_frozen = ?", *filter.IsFrozen)
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

	if err := query.Find(&credits).Error; err != nil {
		return nil, err
	}
	return credits, nil
}
