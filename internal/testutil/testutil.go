// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"testing"

	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
// A single connection is kept so that the database lives as long as the test
// and transactions serialize the same way row locks would on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

// Fixture is a small salon: two branches, staff for each, a haircut with no
// materials and a rebond that uses cream and neutralizer.
type Fixture struct {
	Branch      model.Branch
	OtherBranch model.Branch
	Staff       model.Staff
	OtherStaff  model.Staff
	Customer    model.Customer

	Haircut model.Service
	Rebond  model.Service
	AddOn   model.AddOn

	Cream       model.Material
	Neutralizer model.Material
}

func Dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Seed inserts the fixture.
func Seed(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()
	f := &Fixture{
		Branch:      model.Branch{Name: "Vanity Main", Address: "1 Main St"},
		OtherBranch: model.Branch{Name: "Vanity North", Address: "9 North Ave"},
		Customer:    model.Customer{Name: "Ana"},
		Cream:       model.Material{Name: "Rebond Cream", Unit: "ml", Stock: Dec("5000")},
		Neutralizer: model.Material{Name: "Neutralizer", Unit: "ml", Stock: Dec("3000")},
		AddOn:       model.AddOn{Name: "Hair mask", Price: Dec("80")},
	}
	require.NoError(t, db.Create(&f.Branch).Error)
	require.NoError(t, db.Create(&f.OtherBranch).Error)
	require.NoError(t, db.Create(&f.Customer).Error)
	require.NoError(t, db.Create(&f.Cream).Error)
	require.NoError(t, db.Create(&f.Neutralizer).Error)
	require.NoError(t, db.Create(&f.AddOn).Error)

	f.Staff = model.Staff{BranchID: f.Branch.ID, Name: "Bea", Role: "STAFF"}
	f.OtherStaff = model.Staff{BranchID: f.OtherBranch.ID, Name: "Cora", Role: "STAFF"}
	require.NoError(t, db.Create(&f.Staff).Error)
	require.NoError(t, db.Create(&f.OtherStaff).Error)

	f.Haircut = model.Service{Name: "Haircut", Category: "hair", Price: Dec("250"), DurationMin: 30}
	f.Rebond = model.Service{Name: "Rebond", Category: "hair", Price: Dec("1500"), DurationMin: 180, UsesMaterials: true}
	require.NoError(t, db.Omit("Materials").Create(&f.Haircut).Error)
	require.NoError(t, db.Omit("Materials").Create(&f.Rebond).Error)
	require.NoError(t, db.Create(&[]model.ServiceMaterial{
		{ServiceID: f.Rebond.ID, MaterialID: f.Cream.ID, Quantity: Dec("50")},
		{ServiceID: f.Rebond.ID, MaterialID: f.Neutralizer.ID, Quantity: Dec("30")},
	}).Error)
	return f
}

// Stock reads the current stock of a material.
func Stock(t *testing.T, db *gorm.DB, m model.Material) decimal.Decimal {
	t.Helper()
	var got model.Material
	require.NoError(t, db.Where("id = ?", m.ID).Take(&got).Error)
	return got.Stock
}

// Movements returns all movements of a material, oldest first.
func Movements(t *testing.T, db *gorm.DB, m model.Material) []model.InventoryMovement {
	t.Helper()
	var rows []model.InventoryMovement
	require.NoError(t, db.Where("material_id = ?", m.ID).Order("created_at ASC").Find(&rows).Error)
	return rows
}
