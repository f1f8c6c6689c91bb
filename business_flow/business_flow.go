package businessflow

import (
	"context"

	"github.com/tourvanir/pricing-core/models"
	"github.com/tourvanir/pricing-core/repository"
	"github.com/tourvanir/pricing-core/utils"
)

// ClientMetadata carries the request-scoped identity attached to audit rows.
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	RequestID string `json:"request_id"`
}

// Actor identifies who initiated an operation. Agents may only act on their
// own account; staff and system actors are unrestricted.
type Actor struct {
	ID      string
	Type    models.ActorType
	AgentID *uint
}

func (a Actor) CanActOn(agentID uint) bool {
	if a.Type != models.ActorTypeAgent {
		return true
	}
	return a.AgentID != nil && *a.AgentID == agentID
}

// recordPaymentAudit persists a payment audit row. Operations do not report
// success until their audit row is written, so the caller must treat a write
// failure as its own failure.
func recordPaymentAudit(
	ctx context.Context,
	repo repository.PaymentAuditLogRepository,
	agentID uint,
	action string,
	bookingID *string,
	transactionID *uint,
	amount, balanceBefore, balanceAfter *models.Money,
	actor Actor,
	metadata *ClientMetadata,
	success bool,
	errorMessage *string,
	note *string,
) error {
	log := &models.PaymentAuditLog{
		AgentID:       utils.ToPtr(agentID),
		Action:        action,
		BookingID:     bookingID,
		TransactionID: transactionID,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		ActorID:       actor.ID,
		ActorType:     actor.Type,
		Success:       utils.ToPtr(success),
		ErrorMessage:  errorMessage,
		Note:          note,
		CreatedAt:     utils.UTCNow(),
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			log.IPAddress = utils.ToPtr(metadata.IPAddress)
		}
		if metadata.RequestID != "" {
			log.RequestID = utils.ToPtr(metadata.RequestID)
		}
	}
	return repo.Save(ctx, log)
}
