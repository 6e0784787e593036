package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Branch is one salon location. Sessions are owned by exactly one branch.
type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Address   string
	CreatedAt time.Time
}

func (b *Branch) BeforeCreate(_ *gorm.DB) error {
	assignID(&b.ID)
	return nil
}

// Staff is a person working at a branch.
// Role: "CASHIER" | "STAFF"
type Staff struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Role      string    `gorm:"type:varchar(20);not null;default:'STAFF'"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (s *Staff) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

func (Staff) TableName() string { return "staff" }

type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Phone     *string
	CreatedAt time.Time
}

func (c *Customer) BeforeCreate(_ *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Service is a catalog entry. Price is the suggested price; the sold price
// lives on SaleService. A nil BranchID makes the service available everywhere.
type Service struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BranchID      *uuid.UUID      `gorm:"type:uuid;index"`
	Name          string          `gorm:"not null"`
	Category      string          `gorm:"not null;default:'general'"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DurationMin   int             `gorm:"not null;default:30"`
	UsesMaterials bool            `gorm:"not null;default:false"`
	Active        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Materials []ServiceMaterial `gorm:"foreignKey:ServiceID"`
}

func (s *Service) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// ServiceMaterial is one row of a service's default material recipe.
type ServiceMaterial struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ServiceID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity   decimal.Decimal `gorm:"type:decimal(12,3);not null"`

	Material *Material `gorm:"foreignKey:MaterialID"`
}

func (m *ServiceMaterial) BeforeCreate(_ *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

type AddOn struct {
	ID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name   string          `gorm:"not null"`
	Price  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Active bool            `gorm:"not null;default:true"`
}

func (a *AddOn) BeforeCreate(_ *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

func (AddOn) TableName() string { return "add_ons" }
