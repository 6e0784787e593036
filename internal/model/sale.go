package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleStatus is the lifecycle state of a session.
// DRAFT is the only mutable state; COMPLETED and CANCELLED are terminal.
type SaleStatus string

const (
	SaleStatusDraft     SaleStatus = "DRAFT"
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusCancelled SaleStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed.
func (s SaleStatus) IsTerminal() bool {
	return s == SaleStatusCompleted || s == SaleStatusCancelled
}

// Sale is the session aggregate: a draft sale while DRAFT, an immutable
// record of the sale once completed or cancelled.
// BasePrice, AddOnsTotal and Total are always derived from the child rows.
type Sale struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey"`
	BranchID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_sales_branch_status"`
	StaffID      uuid.UUID        `gorm:"type:uuid;not null"`
	CustomerID   *uuid.UUID       `gorm:"type:uuid"`
	Name         *string          `gorm:"type:varchar(120)"`
	Status       SaleStatus       `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_sales_branch_status"`
	BasePrice    decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	AddOnsTotal  decimal.Decimal  `gorm:"column:add_ons_total;type:decimal(12,2);not null;default:0"`
	Total        decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	CashReceived *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ChangeGiven  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	EndedAt      *time.Time `gorm:"index"`

	Branch    *Branch        `gorm:"foreignKey:BranchID"`
	Staff     *Staff         `gorm:"foreignKey:StaffID"`
	Customer  *Customer      `gorm:"foreignKey:CustomerID"`
	Services  []SaleService  `gorm:"foreignKey:SaleID"`
	AddOns    []SaleAddOn    `gorm:"foreignKey:SaleID"`
	Materials []SaleMaterial `gorm:"foreignKey:SaleID"`
}

func (s *Sale) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// SaleService is one line item: a service sold with a price snapshot taken
// when it was added. Later catalog price changes never touch it.
type SaleService struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ServiceID uuid.UUID       `gorm:"type:uuid;not null"`
	Qty       int             `gorm:"not null;default:1"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time

	Service *Service `gorm:"foreignKey:ServiceID"`
}

func (s *SaleService) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// SaleAddOn is a supplementary charge, summed separately into AddOnsTotal.
type SaleAddOn struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	AddOnID   uuid.UUID       `gorm:"type:uuid;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time

	AddOn *AddOn `gorm:"foreignKey:AddOnID"`
}

func (a *SaleAddOn) BeforeCreate(_ *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// SaleMaterial is the quantity of a material consumed by the session.
// SaleServiceID links the row to the line item it was added for; rows
// written before the link existed have it nil and are matched by recipe.
type SaleMaterial struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleServiceID *uuid.UUID      `gorm:"type:uuid;index"`
	MaterialID    uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	CreatedAt     time.Time

	Material *Material `gorm:"foreignKey:MaterialID"`
}

func (m *SaleMaterial) BeforeCreate(_ *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
