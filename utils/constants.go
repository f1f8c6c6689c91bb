package utils

import (
	"time"
)

// Pricing constants
const (
	// DefaultCurrency is the ISO currency code all amounts are denominated in.
	DefaultCurrency = "USD"

	// NoDiscountRate is the multiplier applied when no discount resolves (1.00).
	NoDiscountRate = "1.00"

	// MaxPartySize bounds the total number of travelers on one booking.
	MaxPartySize = 200
)

// Credit ledger constants
const (
	// CreditCacheTTL is how long resolved discount reference data may be served
	// from cache before a database re-read.
	CreditCacheTTL = 5 * time.Minute

	// StatementMaxRows bounds one exported statement workbook.
	StatementMaxRows = 10000
)

// Cache key fragments
const (
	DiscountLevelCacheKey  = "discount_levels"
	HotelLevelCacheKey     = "hotel_levels"
	CalcFrequencyKeyPrefix = "calc_freq"
)
