package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AgentCredit is the per-agent credit ledger head. Exactly one row exists per
// agent; it is created on the first credit grant, mutated only through the
// credit flow's serialized debit/credit operations, and never deleted.
// Invariant: AvailableCredit = TotalCredit - UsedCredit at all times; it goes
// negative only within the configured overdraft allowance.
type AgentCredit struct {
	ID      uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	AgentID uint      `gorm:"not null;uniqueIndex" json:"agent_id"`

	TotalCredit     Money `gorm:"type:numeric(14,2);not null" json:"total_credit"`
	UsedCredit      Money `gorm:"type:numeric(14,2);not null" json:"used_credit"`
	AvailableCredit Money `gorm:"type:numeric(14,2);not null" json:"available_credit"`
	DepositBalance  Money `gorm:"type:numeric(14,2);not null" json:"deposit_balance"`

	CreditRating    int             `gorm:"not null;default:0" json:"credit_rating"`
	InterestRate    decimal.Decimal `gorm:"type:numeric(5,4);not null;default:0" json:"interest_rate"`
	BillingCycleDay int             `gorm:"not null;default:1" json:"billing_cycle_day"`

	OverdraftCount     int        `gorm:"not null;default:0" json:"overdraft_count"`
	IsFrozen           bool       `gorm:"not null;default:false;index" json:"is_frozen"`
	LastSettlementDate *time.Time `json:"last_settlement_date,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Agent Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}

func (AgentCredit) TableName() string {
	return "agent_credits"
}

// BeforeCreate ensures UUID is set
func (c *AgentCredit) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	return nil
}

// Recompute re-derives AvailableCredit from TotalCredit and UsedCredit.
func (c *AgentCredit) Recompute() {
	c.AvailableCredit = c.TotalCredit.Sub(c.UsedCredit)
}

// AgentCreditFilter represents filter criteria for credit account queries
type AgentCreditFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	AgentID  *uint      `json:"agent_id,omitempty"`
	IsFrozen *bool      `json:"is_frozen,omitempty"`
}
