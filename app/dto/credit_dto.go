package dto

import (
	"time"

	"github.com/tourvanir/pricing-core/models"
)

// ChargeCreditRequest debits an agent's credit line for a confirmed booking
type ChargeCreditRequest struct {
	AgentID   uint         `json:"agent_id" validate:"required"`
	BookingID string       `json:"booking_id" validate:"required,max=64"`
	Amount    models.Money `json:"amount" validate:"required"`
}

// RefundCreditRequest restores credit for a cancelled or amended booking
type RefundCreditRequest struct {
	AgentID   uint         `json:"agent_id" validate:"required"`
	BookingID string       `json:"booking_id" validate:"required,max=64"`
	Amount    models.Money `json:"amount" validate:"required"`
	Reason    string       `json:"reason" validate:"required,max=255"`
}

// GrantCreditRequest creates or raises an agent's credit line
type GrantCreditRequest struct {
	AgentID uint         `json:"agent_id" validate:"required"`
	Amount  models.Money `json:"amount" validate:"required"`
	Note    string       `json:"note,omitempty" validate:"max=255"`
}

// FreezeAccountRequest freezes or unfreezes an agent's credit account
type FreezeAccountRequest struct {
	AgentID uint   `json:"agent_id" validate:"required"`
	Reason  string `json:"reason" validate:"required,max=255"`
}

// CreditTransactionDTO represents one ledger entry in responses
type CreditTransactionDTO struct {
	UUID          string       `json:"uuid"`
	Type          string       `json:"type"`
	Amount        models.Money `json:"amount"`
	BookingID     *string      `json:"booking_id,omitempty"`
	BalanceBefore models.Money `json:"balance_before"`
	BalanceAfter  models.Money `json:"balance_after"`
	Note          string       `json:"note,omitempty"`
	CreatedBy     string       `json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
}

// CreditTransactionResponse wraps a single ledger mutation result
type CreditTransactionResponse struct {
	Message     string               `json:"message"`
	Success     bool                 `json:"success"`
	Duplicate   bool                 `json:"duplicate"`
	Transaction CreditTransactionDTO `json:"transaction"`
}

// CreditBalanceDTO represents the current state of an agent's credit account
type CreditBalanceDTO struct {
	AgentID         uint         `json:"agent_id"`
	TotalCredit     models.Money `json:"total_credit"`
	UsedCredit      models.Money `json:"used_credit"`
	AvailableCredit models.Money `json:"available_credit"`
	DepositBalance  models.Money `json:"deposit_balance"`
	OverdraftCount  int          `json:"overdraft_count"`
	IsFrozen        bool         `json:"is_frozen"`
}

// GetBalanceResponse wraps a balance read
type GetBalanceResponse struct {
	Message string           `json:"message"`
	Success bool             `json:"success"`
	Balance CreditBalanceDTO `json:"balance"`
}

// GetTransactionHistoryRequest represents the request to list ledger entries
type GetTransactionHistoryRequest struct {
	AgentID   uint       `json:"agent_id" validate:"required"`
	Page      uint       `json:"page" validate:"min=1"`
	PageSize  uint       `json:"page_size" validate:"min=1,max=100"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Type      *string    `json:"type,omitempty"`
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	CurrentPage uint `json:"current_page"`
	PageSize    uint `json:"page_size"`
	TotalItems  uint `json:"total_items"`
	TotalPages  uint `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// CreditSummary represents summary statistics for a transaction history
type CreditSummary struct {
	TotalDebits      models.Money `json:"total_debits"`
	TotalRefunds     models.Money `json:"total_refunds"`
	TotalGrants      models.Money `json:"total_grants"`
	TransactionCount uint         `json:"transaction_count"`
}

// TransactionHistoryResponse represents the paginated ledger listing
type TransactionHistoryResponse struct {
	Items      []CreditTransactionDTO `json:"items"`
	Pagination PaginationInfo         `json:"pagination"`
	Summary    CreditSummary          `json:"summary"`
}
