package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role: "owner" | "branch"
type Role string

const (
	RoleOwner  Role = "owner"
	RoleBranch Role = "branch"
)

// Account is a login. Branch accounts always carry a BranchID; owner
// accounts never do.
type Account struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Role         Role       `gorm:"type:varchar(20);not null"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index"`
	Active       bool       `gorm:"not null;default:true"`
	CreatedAt    time.Time

	Branch *Branch `gorm:"foreignKey:BranchID"`
}

func (a *Account) BeforeCreate(_ *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// AllModels lists every persisted model in dependency order for migrations.
func AllModels() []interface{} {
	return []interface{}{
		&Branch{},
		&Staff{},
		&Customer{},
		&Material{},
		&Service{},
		&ServiceMaterial{},
		&AddOn{},
		&Sale{},
		&SaleService{},
		&SaleAddOn{},
		&SaleMaterial{},
		&InventoryMovement{},
		&Account{},
	}
}
