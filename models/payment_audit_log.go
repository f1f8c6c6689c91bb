package models

import (
	"encoding/json"
	"time"
)

// Payment audit action constants
const (
	PaymentAuditActionDebitCompleted    = "credit_debit_completed"
	PaymentAuditActionDebitRejected     = "credit_debit_rejected"
	PaymentAuditActionDebitDuplicate    = "credit_debit_duplicate"
	PaymentAuditActionRefundCompleted   = "credit_refund_completed"
	PaymentAuditActionRefundRejected    = "credit_refund_rejected"
	PaymentAuditActionGrantCompleted    = "credit_grant_completed"
	PaymentAuditActionGrantRejected     = "credit_grant_rejected"
	PaymentAuditActionAccountFrozen     = "credit_account_frozen"
	PaymentAuditActionAccountUnfrozen   = "credit_account_unfrozen"
	PaymentAuditActionSettlementApplied = "credit_settlement_applied"
)

// ActorType classifies who performed a ledger mutation.
type ActorType string

const (
	ActorTypeAgent  ActorType = "agent"
	ActorTypeStaff  ActorType = "staff"
	ActorTypeSystem ActorType = "system"
)

// PaymentAuditLog is the security/audit twin of CreditTransaction: it captures
// the same before/after balances plus the request and actor identity for
// non-repudiation. A row is written even when the underlying mutation fails,
// so rejected or erroring attempts remain forensically visible.
type PaymentAuditLog struct {
	ID      uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID *uint `gorm:"index:idx_payment_audit_agent_id" json:"agent_id,omitempty"`

	Action    string  `gorm:"size:50;not null;index:idx_payment_audit_action" json:"action"`
	BookingID *string `gorm:"size:64;index" json:"booking_id,omitempty"`

	// TransactionID is set only when a ledger entry was actually created.
	TransactionID *uint `gorm:"index" json:"transaction_id,omitempty"`

	Amount        *Money `gorm:"type:numeric(14,2)" json:"amount,omitempty"`
	BalanceBefore *Money `gorm:"type:numeric(14,2)" json:"balance_before,omitempty"`
	BalanceAfter  *Money `gorm:"type:numeric(14,2)" json:"balance_after,omitempty"`

	// Actor identity for non-repudiation
	ActorID   string    `gorm:"size:255;not null" json:"actor_id"`
	ActorType ActorType `gorm:"type:varchar(20);not null" json:"actor_type"`
	IPAddress *string   `gorm:"type:inet;index:idx_payment_audit_ip" json:"ip_address,omitempty"`
	RequestID *string   `gorm:"size:255;index:idx_payment_audit_request_id" json:"request_id,omitempty"`

	Success      *bool           `gorm:"default:true;index:idx_payment_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	Note         *string         `gorm:"type:text" json:"note,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_payment_audit_created_at" json:"created_at"`
}

func (PaymentAuditLog) TableName() string {
	return "payment_audit_log"
}

func (l *PaymentAuditLog) IsFailed() bool {
	return l.Success != nil && !*l.Success
}

// PaymentAuditLogFilter represents filter criteria for payment audit queries
type PaymentAuditLogFilter struct {
	ID            *uint      `json:"id,omitempty"`
	AgentID       *uint      `json:"agent_id,omitempty"`
	Action        *string    `json:"action,omitempty"`
	BookingID     *string    `json:"booking_id,omitempty"`
	Success       *bool      `json:"success,omitempty"`
	RequestID     *string    `json:"request_id,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
