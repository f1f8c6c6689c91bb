// Package models contains domain entities and business models for the pricing and credit system
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AgentStatus represents the lifecycle status of a reselling agent
type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "active"
	AgentStatusDisabled AgentStatus = "disabled"
)

// Agent represents a reselling partner booking tours on behalf of end travelers.
// An agent owns zero-or-one AgentCredit account and is assigned a discount level
// externally by back-office staff.
type Agent struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	Name   string      `gorm:"size:255;not null" json:"name"`
	Status AgentStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	// DiscountLevelID links the agent to its discount tier; nil means no tier.
	DiscountLevelID *uint `gorm:"index" json:"discount_level_id,omitempty"`

	// DefaultDiscountRate applies when no product override matches; nil means
	// the agent gets no discount at all (rate 1.00).
	DefaultDiscountRate *decimal.Decimal `gorm:"type:numeric(5,4)" json:"default_discount_rate,omitempty"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	DiscountLevel *AgentDiscountLevel `gorm:"foreignKey:DiscountLevelID" json:"discount_level,omitempty"`
	Credit        *AgentCredit        `gorm:"foreignKey:AgentID" json:"credit,omitempty"`
}

func (Agent) TableName() string {
	return "agents"
}

// BeforeCreate ensures UUID is set
func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	return nil
}

// IsActive returns true if the agent may place bookings.
func (a *Agent) IsActive() bool {
	return a.Status == AgentStatusActive
}

// AgentFilter represents filter criteria for agent queries
type AgentFilter struct {
	ID              *uint        `json:"id,omitempty"`
	UUID            *uuid.UUID   `json:"uuid,omitempty"`
	Status          *AgentStatus `json:"status,omitempty"`
	DiscountLevelID *uint        `json:"discount_level_id,omitempty"`
	CreatedAfter    *time.Time   `json:"created_after,omitempty"`
	CreatedBefore   *time.Time   `json:"created_before,omitempty"`
}
