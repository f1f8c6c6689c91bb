package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreditTransactionType represents the type of ledger entry
type CreditTransactionType string

const (
	CreditTransactionTypeDebit      CreditTransactionType = "debit"      // Charge against the credit line
	CreditTransactionTypeRefund     CreditTransactionType = "refund"     // Refund for a cancelled/amended booking
	CreditTransactionTypeGrant      CreditTransactionType = "grant"      // Credit line created or raised
	CreditTransactionTypeAdjustment CreditTransactionType = "adjustment" // Manual back-office correction
	CreditTransactionTypeSettlement CreditTransactionType = "settlement" // Billing-cycle settlement of used credit
)

// CreditTransaction is an append-only ledger entry against an agent's credit
// account. Amount is signed: positive restores credit (refund/grant), negative
// consumes it (debit). The sequence of entries for an agent must replay to the
// current AgentCredit.UsedCredit exactly.
type CreditTransaction struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	AgentID   uint                  `gorm:"not null;index" json:"agent_id"`
	Type      CreditTransactionType `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount    Money                 `gorm:"type:numeric(14,2);not null" json:"amount"`
	BookingID *string               `gorm:"size:64;index:idx_credit_transactions_booking" json:"booking_id,omitempty"`

	// Available-credit snapshots around the mutation (immutable)
	BalanceBefore Money `gorm:"type:numeric(14,2);not null" json:"balance_before"`
	BalanceAfter  Money `gorm:"type:numeric(14,2);not null" json:"balance_after"`

	Note      string `gorm:"type:text" json:"note"`
	CreatedBy string `gorm:"size:255;not null" json:"created_by"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`

	Agent Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// BeforeCreate ensures UUID is set
func (t *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	return nil
}

// IsDebit reports whether the entry consumed credit.
func (t *CreditTransaction) IsDebit() bool {
	return t.Type == CreditTransactionTypeDebit
}

// CreditTransactionFilter represents filter criteria for ledger entry queries
type CreditTransactionFilter struct {
	ID            *uint                  `json:"id,omitempty"`
	UUID          *uuid.UUID             `json:"uuid,omitempty"`
	AgentID       *uint                  `json:"agent_id,omitempty"`
	Type          *CreditTransactionType `json:"type,omitempty"`
	BookingID     *string                `json:"booking_id,omitempty"`
	CreatedAfter  *time.Time             `json:"created_after,omitempty"`
	CreatedBefore *time.Time             `json:"created_before,omitempty"`
}
