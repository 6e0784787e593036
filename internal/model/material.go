package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Material is a consumable tracked in inventory (creams, dyes, neutralizer…).
// Stock is only changed through the inventory ledger.
type Material struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name      string          `gorm:"not null;index"`
	Unit      string          `gorm:"type:varchar(20);not null;default:'ml'"`
	Stock     decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Material) BeforeCreate(_ *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// MovementType is the direction of an inventory movement.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// InventoryMovement is an append-only audit row. Rows are never updated or
// deleted; corrections are recorded as new movements.
// IN and OUT rows carry a positive Quantity and Type gives the direction.
// ADJUSTMENT rows carry the signed delta that was applied.
type InventoryMovement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	MaterialID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type        MovementType    `gorm:"type:varchar(20);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	ReferenceID *uuid.UUID      `gorm:"type:uuid;index"` // sale id for checkout deductions
	Note        string
	CreatedAt   time.Time

	Material *Material `gorm:"foreignKey:MaterialID"`
}

func (m *InventoryMovement) BeforeCreate(_ *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// TableName keeps the audit table name explicit.
func (InventoryMovement) TableName() string { return "inventory_movements" }
