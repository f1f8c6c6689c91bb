package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountSource identifies where a resolved discount rate came from.
type DiscountSource string

const (
	DiscountSourceProductOverride DiscountSource = "product_override"
	DiscountSourceAgentDefault    DiscountSource = "agent_default"
	DiscountSourceNone            DiscountSource = "none"
)

// AgentDiscountLog is the immutable record of one discount resolution and
// application. Written once per priced line item, never updated or deleted.
type AgentDiscountLog struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	AgentID     uint        `gorm:"not null;index" json:"agent_id"`
	BookingID   *string     `gorm:"size:64;index" json:"booking_id,omitempty"`
	ProductType ProductType `gorm:"type:varchar(20);not null" json:"product_type"`
	ProductID   uint        `gorm:"not null" json:"product_id"`

	OriginalPrice  Money           `gorm:"type:numeric(14,2);not null" json:"original_price"`
	RateUsed       decimal.Decimal `gorm:"type:numeric(5,4);not null" json:"rate_used"`
	DiscountAmount Money           `gorm:"type:numeric(14,2);not null" json:"discount_amount"`
	FinalPrice     Money           `gorm:"type:numeric(14,2);not null" json:"final_price"`

	LevelCode  string         `gorm:"size:10" json:"level_code"`
	Source     DiscountSource `gorm:"type:varchar(20);not null" json:"source"`
	CapApplied bool           `gorm:"not null;default:false" json:"cap_applied"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`

	Agent Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}

func (AgentDiscountLog) TableName() string {
	return "agent_discount_logs"
}

// BeforeCreate ensures UUID is set
func (l *AgentDiscountLog) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	return nil
}

// AgentDiscountLogFilter represents filter criteria for discount log queries
type AgentDiscountLogFilter struct {
	ID            *uint        `json:"id,omitempty"`
	AgentID       *uint        `json:"agent_id,omitempty"`
	BookingID     *string      `json:"booking_id,omitempty"`
	ProductType   *ProductType `json:"product_type,omitempty"`
	ProductID     *uint        `json:"product_id,omitempty"`
	CreatedAfter  *time.Time   `json:"created_after,omitempty"`
	CreatedBefore *time.Time   `json:"created_before,omitempty"`
}
