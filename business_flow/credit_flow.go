package businessflow

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/tourvanir/pricing-core/app/dto"
	"github.com/tourvanir/pricing-core/config"
	"github.com/tourvanir/pricing-core/metrics"
	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/repository"
	"github.com/tourvanir/pricing-core/utils"
	"gorm.io/gorm"
)

// CreditFlow defines the agent credit ledger operations
type CreditFlow interface {
	// ChargeAgentCredit debits the agent's credit line for a booking. A repeat
	// charge for the same (agent, booking) returns the prior entry as a no-op.
	ChargeAgentCredit(ctx context.Context, req *dto.ChargeCreditRequest, actor Actor, metadata *ClientMetadata) (*dto.CreditTransactionResponse, error)
	// RefundAgentCredit restores credit for a cancelled or amended booking.
	// Refunds are allowed while the account is frozen.
	RefundAgentCredit(ctx context.Context, req *dto.RefundCreditRequest, actor Actor, metadata *ClientMetadata) (*dto.CreditTransactionResponse, error)
	// GetBalance reads the current account state without locking.
	GetBalance(ctx context.Context, agentID uint) (*dto.GetBalanceResponse, error)
	// GrantCredit creates the credit account on first grant and raises the
	// credit line afterwards. Staff/system only.
	GrantCredit(ctx context.Context, req *dto.GrantCreditRequest, actor Actor, metadata *ClientMetadata) (*dto.CreditTransactionResponse, error)
	// GetTransactionHistory lists ledger entries with pagination and summary totals.
	GetTransactionHistory(ctx context.Context, req *dto.GetTransactionHistoryRequest, metadata *ClientMetadata) (*dto.TransactionHistoryResponse, error)
	// FreezeAccount blocks further debits; refunds stay allowed.
	FreezeAccount(ctx context.Context, req *dto.FreezeAccountRequest, actor Actor, metadata *ClientMetadata) error
	// UnfreezeAccount lifts a freeze.
	UnfreezeAccount(ctx context.Context, req *dto.FreezeAccountRequest, actor Actor, metadata *ClientMetadata) error
}

// CreditFlowImpl implements CreditFlow
type CreditFlowImpl struct {
	agentRepo    repository.AgentRepository
	creditRepo   repository.AgentCreditRepository
	txRepo       repository.CreditTransactionRepository
	auditRepo    repository.PaymentAuditLogRepository
	creditConfig *config.CreditConfig
	locks        *agentLocks
	validate     *validator.Validate
	db           *gorm.DB
}

// NewCreditFlow constructs a CreditFlow
func NewCreditFlow(
	agentRepo repository.AgentRepository,
	creditRepo repository.AgentCreditRepository,
	txRepo repository.CreditTransactionRepository,
	auditRepo repository.PaymentAuditLogRepository,
	creditConfig *config.CreditConfig,
	db *gorm.DB,
) CreditFlow {
	return &CreditFlowImpl{
		agentRepo:    agentRepo,
		creditRepo:   creditRepo,
		txRepo:       txRepo,
		auditRepo:    auditRepo,
		creditConfig: creditConfig,
		locks:        newAgentLocks(),
		validate:     validator.New(),
		db:           db,
	}
}

// ChargeAgentCredit runs the serialized debit critical section: read the
// locked balance, validate, write the new balance, append the ledger entry,
// all in one transaction. An audit row is written on success and on rejection.
func (f *CreditFlowImpl) ChargeAgentCredit(ctx context.Context, req *dto.ChargeCreditRequest, actor Actor, metadata *ClientMetadata) (*dto.CreditTransactionResponse, error) {
	metrics.LedgerInFlightInc()
	defer metrics.LedgerInFlightDec()

	if err := f.validate.Struct(req); err != nil {
		return nil, NewBusinessError("CHARGE_CREDIT_VALIDATION_FAILED", "Invalid charge request", err)
	}
	if !req.Amount.IsPositive() {
		return nil, NewBusinessError("CHARGE_CREDIT_VALIDATION_FAILED", "Amount must be positive", ErrNonPositiveAmount)
	}
	if !actor.CanActOn(req.AgentID) {
		return nil, NewBusinessError("CHARGE_CREDIT_FORBIDDEN", "Actor may only debit its own account", ErrActorNotAccountOwner)
	}

	f.locks.lock(req.AgentID)
	defer f.locks.unlock(req.AgentID)

	var entry *models.CreditTransaction
	duplicate := false

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		credit, err := f.creditRepo.ByAgentIDForUpdate(txCtx, req.AgentID)
		if err != nil {
			return err
		}
		if credit == nil {
			return ErrCreditAccountNotFound
		}
		if credit.IsFrozen {
			return ErrAccountFrozen
		}

		// Idempotency: a prior debit for this booking wins.
		prior, err := f.txRepo.ByBookingAndType(txCtx, req.AgentID, req.BookingID, models.CreditTransactionTypeDebit)
		if err != nil {
			return err
		}
		if prior != nil {
			entry = prior
			duplicate = true
			return recordPaymentAudit(txCtx, f.auditRepo, req.AgentID, models.PaymentAuditActionDebitDuplicate,
				utils.ToPtr(req.BookingID), utils.ToPtr(entry.ID), utils.ToPtr(req.Amount),
				utils.ToPtr(entry.BalanceBefore), utils.ToPtr(entry.BalanceAfter),
				actor, metadata, true, nil,
				utils.ToPtr("Duplicate debit returned prior transaction"))
		}

		remaining := credit.AvailableCredit.Sub(req.Amount)
		allowance := models.MoneyFromDecimal(f.creditConfig.OverdraftAllowance)
		if remaining.Cmp(allowance.Neg()) < 0 {
			return ErrInsufficientCredit
		}

		before := credit.AvailableCredit
		credit.UsedCredit = credit.UsedCredit.Add(req.Amount)
		credit.Recompute()
		if credit.AvailableCredit.IsNegative() {
			credit.OverdraftCount++
		}
		credit.UpdatedAt = utils.UTCNow()
		if err := f.creditRepo.Update(txCtx, credit); err != nil {
			return err
		}

		entry = &models.CreditTransaction{
			AgentID:       req.AgentID,
			Type:          models.CreditTransactionTypeDebit,
			Amount:        req.Amount.Neg(),
			BookingID:     utils.ToPtr(req.BookingID),
			BalanceBefore: before,
			BalanceAfter:  credit.AvailableCredit,
			Note:          fmt.Sprintf("Debit for booking %s", req.BookingID),
			CreatedBy:     actor.ID,
			CreatedAt:     utils.UTCNow(),
		}
		if err := f.txRepo.Save(txCtx, entry); err != nil {
			return err
		}
		// The audit row commits or rolls back with the debit itself.
		return recordPaymentAudit(txCtx, f.auditRepo, req.AgentID, models.PaymentAuditActionDebitCompleted,
			utils.ToPtr(req.BookingID), utils.ToPtr(entry.ID), utils.ToPtr(req.Amount),
			utils.ToPtr(entry.BalanceBefore), utils.ToPtr(entry.BalanceAfter),
			actor, metadata, true, nil, nil)
	})

	if err != nil {
		metrics.ObserveLedgerOperation("debit", "failure")
		if auditErr := f.auditRejectedDebit(ctx, req, actor, metadata, err); auditErr != nil {
			return nil, NewBusinessError("PAYMENT_AUDIT_WRITE_FAILED", "Failed to record payment audit", auditErr)
		}
		return nil, wrapChargeError(err)
	}

	if duplicate {
		metrics.ObserveLedgerOperation("debit", "duplicate")
		return creditTransactionResponse("Booking already charged", entry, true), nil
	}

	metrics.ObserveLedgerOperation("debit", "success")
	return creditTransactionResponse("Credit charged successfully", entry, false), nil
}

// RefundAgentCredit restores used credit. Symmetric to ChargeAgentCredit but
// permitted while the account is frozen.
func (f *CreditFlowImpl) RefundAgentCredit(ctx context.Context, req *dto.RefundCreditRequest, actor Actor, metadata *ClientMetadata) (*dto.CreditTransactionResponse, error) {
	metrics.LedgerInFlightInc()
	defer metrics.LedgerInFlightDec()

	if err := f.validate.Struct(req); err != nil {
		return nil, NewBusinessError("REFUND_CREDIT_VALIDATION_FAILED", "Invalid refund request", err)
	}
	if !req.Amount.IsPositive() {
		return nil, NewBusinessError("REFUND_CREDIT_VALIDATION_FAILED", "Amount must be positive", ErrNonPositiveAmount)
	}

	f.locks.lock(req.AgentID)
	defer f.locks.unlock(req.AgentID)

	var entry *models.CreditTransaction
	duplicate := false

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		credit, err := f.creditRepo.ByAgentIDForUpdate(txCtx, req.AgentID)
		if err != nil {
			return err
		}
		if credit == nil {
			return ErrCreditAccountNotFound
		}

		prior, err := f.txRepo.ByBookingAndType(txCtx, req.AgentID, req.BookingID, models.CreditTransactionTypeRefund)
		if err != nil {
			return err
		}
		if prior != nil {
			entry = prior
			duplicate = true
			return nil
		}

		before := credit.AvailableCredit
		credit.UsedCredit = credit.UsedCredit.Sub(req.Amount)
		credit.Recompute()
		credit.UpdatedAt = utils.UTCNow()
		if err := f.creditRepo.Update(txCtx, credit); err != nil {
			return err
		}

		entry = &models.CreditTransaction{
			AgentID:       req.AgentID,
			Type:          models.CreditTransactionTypeRefund,
			Amount:        req.Amount,
			BookingID:     utils.ToPtr(req.BookingID),
			BalanceBefore: before,
			BalanceAfter:  credit.AvailableCredit,
			Note:          req.Reason,
			CreatedBy:     actor.ID,
			CreatedAt:     utils.UTCNow(),
		}
		if err := f.txRepo.Save(txCtx, entry); err != nil {
			return err
		}
		return recordPaymentAudit(txCtx, f.auditRepo, req.AgentID, models.PaymentAuditActionRefundCompleted,
			utils.ToPtr(req.BookingID), utils.ToPtr(entry.ID), utils.ToPtr(req.Amount),
			utils.ToPtr(entry.BalanceBefore), utils.ToPtr(entry.BalanceAfter),
			actor, metadata, true, nil, utils.ToPtr(req.Reason))
	})

	if err != nil {
		metrics.ObserveLedgerOperation("refund", "failure")
		errMsg := err.Error()
		if auditErr := recordPaymentAudit(ctx, f.auditRepo, req.AgentID, models.PaymentAuditActionRefundRejected,
			utils.ToPtr(req.BookingID), nil, utils.ToPtr(req.Amount), nil, nil,
			actor, metadata, false, &errMsg, utils.ToPtr(req.Reason)); auditErr != nil {
			return nil, NewBusinessError("PAYMENT_AUDIT_WRITE_FAILED", "Failed to record payment audit", auditErr)
		}
		return nil, NewBusinessError("REFUND_CREDIT_FAILED", "Failed to refund credit", err)
	}

	if duplicate {
		metrics.ObserveLedgerOperation("refund", "duplicate")
		return creditTransactionResponse("Booking already refunded", entry, true), nil
	}

	metrics.ObserveLedgerOperation("refund", "success")
	return creditTransactionResponse("Credit refunded successfully", entry, false), nil
}

// GetBalance reads the account head row without taking any lock.
func (f *CreditFlowImpl) GetBalance(ctx context.Context, agentID uint) (*dto.GetBalanceResponse, error) {
	credit, err := f.creditRepo.ByAgentID(ctx, agentID)
	if err != nil {
		return nil, NewBusinessError("GET_BALANCE_FAILED", "Failed to read credit account", err)
	}
	if credit == nil {
		return nil, NewBusinessError("GET_BALANCE_NOT_FOUND", "Credit account not found", ErrCreditAccountNotFound)
	}

	return &dto.GetBalanceResponse{
		Message: "Balance retrieved successfully",
		Success: true,
		Balance: dto.CreditBalanceDTO{
			AgentID:         credit.AgentID,
			TotalCredit:     credit.TotalCredit,
			UsedCredit:      credit.UsedCredit,
			AvailableCredit: credit.AvailableCredit,
			DepositBalance:  credit.DepositBalance,
			OverdraftCount:  credit.OverdraftCount,
			IsFrozen:        credit.IsFrozen,
		},
	}, nil
}

// GrantCredit creates the account on first grant, raises TotalCredit afterwards.
func (f *CreditFlowImpl) GrantCredit(ctx context.Context, req *dto.GrantCreditRequest, actor Actor, metadata *ClientMetadata) (*dto.CreditTransactionResponse, error) {
	if err := f.validate.Struct(req); err != nil {
		return nil, NewBusinessError("GRANT_CREDIT_VALIDATION_FAILED", "Invalid grant request", err)
	}
	if !req.Amount.IsPositive() {
		return nil, NewBusinessError("GRANT_CREDIT_VALIDATION_FAILED", "Amount must be positive", ErrNonPositiveAmount)
	}

	agent, err := f.agentRepo.ByID(ctx, req.AgentID)
	if err != nil {
		return nil, NewBusinessError("GRANT_CREDIT_FAILED", "Failed to load agent", err)
	}
	if agent == nil {
		return nil, NewBusinessError("GRANT_CREDIT_NOT_FOUND", "Agent not found", ErrAgentNotFound)
	}

	f.locks.lock(req.AgentID)
	defer f.locks.unlock(req.AgentID)

	var entry *models.CreditTransaction

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		credit, err := f.creditRepo.ByAgentIDForUpdate(txCtx, req.AgentID)
		if err != nil {
			return err
		}

		before := models.Zero
		if credit == nil {
			credit = &models.AgentCredit{
				AgentID:         req.AgentID,
				TotalCredit:     req.Amount,
				BillingCycleDay: 1,
				CreatedAt:       utils.UTCNow(),
				UpdatedAt:       utils.UTCNow(),
			}
			credit.Recompute()
			if err := f.creditRepo.Save(txCtx, credit); err != nil {
				return err
			}
		} else {
			before = credit.AvailableCredit
			credit.TotalCredit = credit.TotalCredit.Add(req.Amount)
			credit.Recompute()
			credit.UpdatedAt = utils.UTCNow()
			if err := f.creditRepo.Update(txCtx, credit); err != nil {
				return err
			}
		}

		note := req.Note
		if note == "" {
			note = "Credit line granted"
		}
		entry = &models.CreditTransaction{
			AgentID:       req.AgentID,
			Type:          models.CreditTransactionTypeGrant,
			Amount:        req.Amount,
			BalanceBefore: before,
			BalanceAfter:  credit.AvailableCredit,
			Note:          note,
			CreatedBy:     actor.ID,
			CreatedAt:     utils.UTCNow(),
		}
		if err := f.txRepo.Save(txCtx, entry); err != nil {
			return err
		}
		return recordPaymentAudit(txCtx, f.auditRepo, req.AgentID, models.PaymentAuditActionGrantCompleted,
			nil, utils.ToPtr(entry.ID), utils.ToPtr(req.Amount),
			utils.ToPtr(entry.BalanceBefore), utils.ToPtr(entry.BalanceAfter),
			actor, metadata, true, nil, nil)
	})

	if err != nil {
		metrics.ObserveLedgerOperation("grant", "failure")
		errMsg := err.Error()
		if auditErr := recordPaymentAudit(ctx, f.auditRepo, req.AgentID, models.PaymentAuditActionGrantRejected,
			nil, nil, utils.ToPtr(req.Amount), nil, nil,
			actor, metadata, false, &errMsg, nil); auditErr != nil {
			return nil, NewBusinessError("PAYMENT_AUDIT_WRITE_FAILED", "Failed to record payment audit", auditErr)
		}
		return nil, NewBusinessError("GRANT_CREDIT_FAILED", "Failed to grant credit", err)
	}

	metrics.ObserveLedgerOperation("grant", "success")
	return creditTransactionResponse("Credit granted successfully", entry, false), nil
}

// GetTransactionHistory lists ledger entries oldest-first with summary totals.
func (f *CreditFlowImpl) GetTransactionHistory(ctx context.Context, req *dto.GetTransactionHistoryRequest, metadata *ClientMetadata) (*dto.TransactionHistoryResponse, error) {
	if err := f.validate.Struct(req); err != nil {
		return nil, NewBusinessError("TRANSACTION_HISTORY_VALIDATION_FAILED", "Invalid history request", err)
	}
	if req.StartDate != nil && req.EndDate != nil && req.StartDate.After(*req.EndDate) {
		return nil, NewBusinessError("TRANSACTION_HISTORY_VALIDATION_FAILED", "Start date cannot be after end date", ErrStartDateAfterEndDate)
	}

	filter := models.CreditTransactionFilter{
		AgentID:       utils.ToPtr(req.AgentID),
		CreatedAfter:  req.StartDate,
		CreatedBefore: req.EndDate,
	}
	if req.Type != nil {
		filter.Type = utils.ToPtr(models.CreditTransactionType(*req.Type))
	}

	total, err := f.txRepo.CountByAgent(ctx, req.AgentID, filter)
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_HISTORY_FAILED", "Failed to count ledger entries", err)
	}

	limit := int(req.PageSize)
	offset := int((req.Page - 1) * req.PageSize)
	rows, err := f.txRepo.ListByAgent(ctx, req.AgentID, filter, limit, offset)
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_HISTORY_FAILED", "Failed to list ledger entries", err)
	}

	items := make([]dto.CreditTransactionDTO, 0, len(rows))
	summary := dto.CreditSummary{}
	for _, row := range rows {
		items = append(items, transactionDTO(row))
		switch row.Type {
		case models.CreditTransactionTypeDebit:
			summary.TotalDebits = summary.TotalDebits.Add(row.Amount.Neg())
		case models.CreditTransactionTypeRefund:
			summary.TotalRefunds = summary.TotalRefunds.Add(row.Amount)
		case models.CreditTransactionTypeGrant:
			summary.TotalGrants = summary.TotalGrants.Add(row.Amount)
		}
	}
	summary.TransactionCount = uint(len(rows))

	totalPages := uint(0)
	if req.PageSize > 0 {
		totalPages = (uint(total) + req.PageSize - 1) / req.PageSize
	}

	return &dto.TransactionHistoryResponse{
		Items: items,
		Pagination: dto.PaginationInfo{
			CurrentPage: req.Page,
			PageSize:    req.PageSize,
			TotalItems:  uint(total),
			TotalPages:  totalPages,
			HasNext:     req.Page < totalPages,
			HasPrevious: req.Page > 1,
		},
		Summary: summary,
	}, nil
}

// FreezeAccount blocks further debits on the account.
func (f *CreditFlowImpl) FreezeAccount(ctx context.Context, req *dto.FreezeAccountRequest, actor Actor, metadata *ClientMetadata) error {
	return f.setFrozen(ctx, req, actor, metadata, true)
}

// UnfreezeAccount lifts a freeze.
func (f *CreditFlowImpl) UnfreezeAccount(ctx context.Context, req *dto.FreezeAccountRequest, actor Actor, metadata *ClientMetadata) error {
	return f.setFrozen(ctx, req, actor, metadata, false)
}

func (f *CreditFlowImpl) setFrozen(ctx context.Context, req *dto.FreezeAccountRequest, actor Actor, metadata *ClientMetadata, frozen bool) error {
	if err := f.validate.Struct(req); err != nil {
		return NewBusinessError("FREEZE_ACCOUNT_VALIDATION_FAILED", "Invalid freeze request", err)
	}

	f.locks.lock(req.AgentID)
	defer f.locks.unlock(req.AgentID)

	action := models.PaymentAuditActionAccountFrozen
	if !frozen {
		action = models.PaymentAuditActionAccountUnfrozen
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		credit, err := f.creditRepo.ByAgentIDForUpdate(txCtx, req.AgentID)
		if err != nil {
			return err
		}
		if credit == nil {
			return ErrCreditAccountNotFound
		}
		if credit.IsFrozen == frozen {
			if !frozen {
				return ErrAccountNotFrozen
			}
		} else {
			credit.IsFrozen = frozen
			credit.UpdatedAt = utils.UTCNow()
			if err := f.creditRepo.Update(txCtx, credit); err != nil {
				return err
			}
		}
		return recordPaymentAudit(txCtx, f.auditRepo, req.AgentID, action,
			nil, nil, nil, nil, nil, actor, metadata, true, nil, utils.ToPtr(req.Reason))
	})

	if err != nil {
		errMsg := err.Error()
		if auditErr := recordPaymentAudit(ctx, f.auditRepo, req.AgentID, action,
			nil, nil, nil, nil, nil, actor, metadata, false, &errMsg, utils.ToPtr(req.Reason)); auditErr != nil {
			return NewBusinessError("PAYMENT_AUDIT_WRITE_FAILED", "Failed to record payment audit", auditErr)
		}
		return NewBusinessError("FREEZE_ACCOUNT_FAILED", "Failed to update freeze state", err)
	}
	return nil
}

// auditRejectedDebit records a failed or rejected charge attempt.
func (f *CreditFlowImpl) auditRejectedDebit(ctx context.Context, req *dto.ChargeCreditRequest, actor Actor, metadata *ClientMetadata, cause error) error {
	errMsg := cause.Error()
	return recordPaymentAudit(ctx, f.auditRepo, req.AgentID, models.PaymentAuditActionDebitRejected,
		utils.ToPtr(req.BookingID), nil, utils.ToPtr(req.Amount), nil, nil,
		actor, metadata, false, &errMsg, nil)
}

func wrapChargeError(err error) error {
	switch err {
	case ErrInsufficientCredit:
		metrics.ObserveInsufficientCredit()
		return NewBusinessError("INSUFFICIENT_CREDIT", "Insufficient credit", err)
	case ErrAccountFrozen:
		return NewBusinessError("ACCOUNT_FROZEN", "Credit account is frozen", err)
	case ErrCreditAccountNotFound:
		return NewBusinessError("CREDIT_ACCOUNT_NOT_FOUND", "Credit account not found", err)
	default:
		return NewBusinessError("CHARGE_CREDIT_FAILED", "Failed to charge credit", err)
	}
}

func creditTransactionResponse(message string, entry *models.CreditTransaction, duplicate bool) *dto.CreditTransactionResponse {
	return &dto.CreditTransactionResponse{
		Message:     message,
		Success:     true,
		Duplicate:   duplicate,
		Transaction: transactionDTO(entry),
	}
}

func transactionDTO(entry *models.CreditTransaction) dto.CreditTransactionDTO {
	return dto.CreditTransactionDTO{
		UUID:          entry.UUID.String(),
		Type:          string(entry.Type),
		Amount:        entry.Amount,
		BookingID:     entry.BookingID,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		Note:          entry.Note,
		CreatedBy:     entry.CreatedBy,
		CreatedAt:     entry.CreatedAt,
	}
}
