package models

import (
	"time"
)

// AgentDiscountLevel is a discount tier (e.g. A/B/C). Immutable reference data
// managed by back-office CRUD; agents are assigned a level externally.
type AgentDiscountLevel struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"size:10;not null;uniqueIndex" json:"code"`

	// SortOrder orders tiers; lower means a higher tier.
	SortOrder int  `gorm:"not null;default:0" json:"sort_order"`
	IsActive  bool `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AgentDiscountLevel) TableName() string {
	return "agent_discount_levels"
}

// AgentDiscountLevelFilter represents filter criteria for discount level queries
type AgentDiscountLevelFilter struct {
	ID       *uint   `json:"id,omitempty"`
	Code     *string `json:"code,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}
