package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductType enumerates the bookable product kinds the discount engine knows.
type ProductType string

const (
	ProductTypeDayTour   ProductType = "day_tour"
	ProductTypeGroupTour ProductType = "group_tour"
)

// IsValid reports whether the product type is one of the recognized values.
func (p ProductType) IsValid() bool {
	return p == ProductTypeDayTour || p == ProductTypeGroupTour
}

// ProductAgentDiscount is a per-product discount override for one discount level.
// Multiple rows may exist for the same (productType, productId, levelId) key only
// across non-overlapping validity windows [ValidFrom, ValidUntil).
type ProductAgentDiscount struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	ProductType ProductType `gorm:"type:varchar(20);not null;index:idx_product_agent_discounts_key" json:"product_type"`
	ProductID   uint        `gorm:"not null;index:idx_product_agent_discounts_key" json:"product_id"`
	LevelID     uint        `gorm:"not null;index:idx_product_agent_discounts_key" json:"level_id"`

	// DiscountRate is the multiplier applied to the original price (0.85 = 15% off).
	DiscountRate decimal.Decimal `gorm:"type:numeric(5,4);not null" json:"discount_rate"`

	// MinOrderAmount is a threshold below which no discount is granted at all.
	MinOrderAmount *Money `gorm:"type:numeric(14,2)" json:"min_order_amount,omitempty"`
	// MaxDiscountAmount caps the absolute discount granted by this row.
	MaxDiscountAmount *Money `gorm:"type:numeric(14,2)" json:"max_discount_amount,omitempty"`

	ValidFrom  time.Time `gorm:"not null;index" json:"valid_from"`
	ValidUntil time.Time `gorm:"not null" json:"valid_until"`
	IsActive   bool      `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Level AgentDiscountLevel `gorm:"foreignKey:LevelID" json:"level,omitempty"`
}

func (ProductAgentDiscount) TableName() string {
	return "product_agent_discounts"
}

// BeforeCreate ensures UUID is set
func (d *ProductAgentDiscount) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	return nil
}

// IsEffectiveAt reports whether the override's validity window contains t.
// The window is half-open: ValidFrom inclusive, ValidUntil exclusive.
func (d *ProductAgentDiscount) IsEffectiveAt(t time.Time) bool {
	return d.IsActive && !t.Before(d.ValidFrom) && t.Before(d.ValidUntil)
}

// ProductAgentDiscountFilter represents filter criteria for override queries
type ProductAgentDiscountFilter struct {
	ID          *uint        `json:"id,omitempty"`
	UUID        *uuid.UUID   `json:"uuid,omitempty"`
	ProductType *ProductType `json:"product_type,omitempty"`
	ProductID   *uint        `json:"product_id,omitempty"`
	LevelID     *uint        `json:"level_id,omitempty"`
	IsActive    *bool        `json:"is_active,omitempty"`
	EffectiveAt *time.Time   `json:"effective_at,omitempty"`
}
