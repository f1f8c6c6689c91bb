// Package businessflow contains the core business logic and use cases for pricing and credit workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Agent-related errors
	ErrAgentNotFound = errors.New("agent not found")

	// Discount resolution errors
	ErrUnknownProductType     = errors.New("product type is not recognized")
	ErrDiscountRateOutOfRange = errors.New("discount rate must be between 0 and 1")

	// Price calculation errors
	ErrInvalidAdultCount    = errors.New("at least one adult is required")
	ErrNegativePartyCount   = errors.New("party counts cannot be negative")
	ErrPartyTooLarge        = errors.New("party size exceeds the allowed maximum")
	ErrHotelLevelNotFound   = errors.New("hotel level not found")
	ErrBaselineLevelMissing = errors.New("baseline hotel level is not configured")
	ErrRoomTypeNotFound     = errors.New("room type not found")
	ErrOptionalTourNotFound = errors.New("optional tour not found")
	ErrChildAgeBandNotFound = errors.New("no price band configured for child age")
	ErrNightsRequired       = errors.New("nights must be at least 1 when hotel or rooms are booked")

	// Snapshot errors
	ErrSnapshotNotFound = errors.New("price snapshot not found")

	// Credit ledger errors
	ErrCreditAccountNotFound = errors.New("credit account not found")
	ErrInsufficientCredit    = errors.New("insufficient credit")
	ErrAccountFrozen         = errors.New("credit account is frozen")
	ErrNonPositiveAmount     = errors.New("amount must be positive")
	ErrActorNotAccountOwner  = errors.New("actor may only debit its own account")
	ErrAccountNotFrozen      = errors.New("credit account is not frozen")

	// Filter errors
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError reports whether err is the caller's fault (bad input shape
// or range) and must never be retried.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidAdultCount),
		errors.Is(err, ErrNegativePartyCount),
		errors.Is(err, ErrPartyTooLarge),
		errors.Is(err, ErrNightsRequired),
		errors.Is(err, ErrNonPositiveAmount),
		errors.Is(err, ErrStartDateAfterEndDate):
		return true
	}
	return false
}

// IsConfigurationError reports whether err indicates missing or ambiguous
// pricing configuration that must be surfaced to operators.
func IsConfigurationError(err error) bool {
	switch {
	case errors.Is(err, ErrUnknownProductType),
		errors.Is(err, ErrDiscountRateOutOfRange),
		errors.Is(err, ErrBaselineLevelMissing),
		errors.Is(err, ErrChildAgeBandNotFound):
		return true
	}
	return false
}
