// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/tourvanir/pricing-core/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
}

// AgentRepository defines operations for agents
type AgentRepository interface {
	Repository[models.Agent, models.AgentFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Agent, error)
}

// DiscountLevelRepository defines read operations for discount level reference data
type DiscountLevelRepository interface {
	Repository[models.AgentDiscountLevel, models.AgentDiscountLevelFilter]
	ByCode(ctx context.Context, code string) (*models.AgentDiscountLevel, error)
	ListActive(ctx context.Context) ([]*models.AgentDiscountLevel, error)
}

// ProductAgentDiscountRepository defines the read side of per-product discount overrides
type ProductAgentDiscountRepository interface {
	Repository[models.ProductAgentDiscount, models.ProductAgentDiscountFilter]
	// EffectiveOverride returns the active override for the lookup key whose
	// validity window contains now, preferring the latest ValidFrom when
	// several windows match. Returns nil when no override applies.
	EffectiveOverride(ctx context.Context, productType models.ProductType, productID, levelID uint, now time.Time) (*models.ProductAgentDiscount, error)
	ListEffective(ctx context.Context, productType models.ProductType, productID uint, now time.Time) ([]*models.ProductAgentDiscount, error)
}

// DiscountLogRepository defines append-only operations for discount application logs
type DiscountLogRepository interface {
	Repository[models.AgentDiscountLog, models.AgentDiscountLogFilter]
	ListByAgent(ctx context.Context, agentID uint, limit, offset int) ([]*models.AgentDiscountLog, error)
	ListByBooking(ctx context.Context, bookingID string) ([]*models.AgentDiscountLog, error)
}

// AgentCreditRepository defines operations for the per-agent credit ledger head
type AgentCreditRepository interface {
	Repository[models.AgentCredit, models.AgentCreditFilter]
	ByAgentID(ctx context.Context, agentID uint) (*models.AgentCredit, error)
	// ByAgentIDForUpdate reads the credit head row under a row-level exclusive
	// lock. Must be called inside a transaction started via WithTransaction.
	ByAgentIDForUpdate(ctx context.Context, agentID uint) (*models.AgentCredit, error)
	Update(ctx context.Context, credit *models.AgentCredit) error
}

// CreditTransactionRepository defines append-only operations for ledger entries
type CreditTransactionRepository interface {
	Repository[models.CreditTransaction, models.CreditTransactionFilter]
	// ByBookingAndType returns the existing entry for an idempotency key
	// (agentID, bookingID, type), or nil when none exists.
	ByBookingAndType(ctx context.Context, agentID uint, bookingID string, txType models.CreditTransactionType) (*models.CreditTransaction, error)
	ListByAgent(ctx context.Context, agentID uint, filter models.CreditTransactionFilter, limit, offset int) ([]*models.CreditTransaction, error)
	CountByAgent(ctx context.Context, agentID uint, filter models.CreditTransactionFilter) (int64, error)
}

// PaymentAuditLogRepository defines append-only operations for payment audit rows
type PaymentAuditLogRepository interface {
	Repository[models.PaymentAuditLog, models.PaymentAuditLogFilter]
	ListByAgent(ctx context.Context, agentID uint, limit, offset int) ([]*models.PaymentAuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.PaymentAuditLog, error)
}

// PriceSnapshotRepository defines write-once operations for booking price snapshots
type PriceSnapshotRepository interface {
	// Save persists a snapshot; it fails with ErrDuplicateSnapshot when a
	// snapshot already exists for the booking. No update operation exists.
	Save(ctx context.Context, snapshot *models.TourBookingPriceSnapshot) error
	ByBookingID(ctx context.Context, bookingID string) (*models.TourBookingPriceSnapshot, error)
	ExistsForBooking(ctx context.Context, bookingID string) (bool, error)
}

// CalculationAuditLogRepository defines append-only operations for calculation audit rows
type CalculationAuditLogRepository interface {
	Repository[models.PriceCalculationAuditLog, models.PriceCalculationAuditLogFilter]
	ListSuspicious(ctx context.Context, limit, offset int) ([]*models.PriceCalculationAuditLog, error)
	CountRecentByAgent(ctx context.Context, agentID uint, window time.Duration) (int64, error)
}

// PricingConfigRepository defines the read side of pricing reference data
// (hotel levels, room types, optional tours, child age bands)
type PricingConfigRepository interface {
	HotelLevelByCode(ctx context.Context, code string) (*models.HotelLevel, error)
	BaselineHotelLevel(ctx context.Context) (*models.HotelLevel, error)
	RoomTypeByID(ctx context.Context, id uint) (*models.RoomType, error)
	OptionalTourByID(ctx context.Context, id uint) (*models.OptionalTour, error)
	ChildAgeBandForAge(ctx context.Context, age int) (*models.ChildAgeBand, error)
	ListActiveHotelLevels(ctx context.Context) ([]*models.HotelLevel, error)
}
