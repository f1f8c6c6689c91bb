package models

import (
	"encoding/json"
	"time"
)

// Suspicious-activity reason constants for price calculation audit entries
const (
	SuspiciousReasonAbnormalPrice    = "abnormal_price"
	SuspiciousReasonExcessiveRate    = "excessive_discount_ratio"
	SuspiciousReasonRequestFrequency = "high_request_frequency"
)

// PriceCalculationAuditLog records one price calculation attempt, whether or
// not it led to a booking. Used for fraud monitoring; written exactly once and
// immutable thereafter.
type PriceCalculationAuditLog struct {
	ID      uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID *uint `gorm:"index:idx_price_calc_audit_agent_id" json:"agent_id,omitempty"`

	ProductType ProductType `gorm:"type:varchar(20);not null" json:"product_type"`
	ProductID   uint        `gorm:"not null" json:"product_id"`

	// Raw input parameters as submitted by the caller
	InputParams json.RawMessage `gorm:"type:jsonb;not null" json:"input_params"`

	ComputedPrice *Money `gorm:"type:numeric(14,2)" json:"computed_price,omitempty"`
	DurationMs    int64  `gorm:"not null" json:"duration_ms"`

	Suspicious       bool    `gorm:"not null;default:false;index:idx_price_calc_audit_suspicious" json:"suspicious"`
	SuspiciousReason *string `gorm:"size:100" json:"suspicious_reason,omitempty"`

	// Requester identity
	ActorID   string    `gorm:"size:255;not null" json:"actor_id"`
	ActorType ActorType `gorm:"type:varchar(20);not null" json:"actor_type"`
	IPAddress *string   `gorm:"type:inet" json:"ip_address,omitempty"`
	RequestID *string   `gorm:"size:255;index" json:"request_id,omitempty"`

	Success      *bool   `gorm:"default:true" json:"success"`
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_price_calc_audit_created_at" json:"created_at"`
}

func (PriceCalculationAuditLog) TableName() string {
	return "price_calculation_audit_log"
}

// PriceCalculationAuditLogFilter represents filter criteria for calculation audit queries
type PriceCalculationAuditLogFilter struct {
	ID            *uint        `json:"id,omitempty"`
	AgentID       *uint        `json:"agent_id,omitempty"`
	ProductType   *ProductType `json:"product_type,omitempty"`
	Suspicious    *bool        `json:"suspicious,omitempty"`
	Success       *bool        `json:"success,omitempty"`
	CreatedAfter  *time.Time   `json:"created_after,omitempty"`
	CreatedBefore *time.Time   `json:"created_before,omitempty"`
}
