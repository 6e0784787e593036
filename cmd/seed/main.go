// cmd/seed loads demo branches, staff, services, materials and accounts.
// Running it twice leaves the data unchanged; account passwords are reset.
//
// Usage: go run ./cmd/seed
package main

import (
	"os"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/config"
	"github.com/JaroldEnderez/Vanity/internal/infra"
	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedBranch struct {
	name, address, login string
	staff                [][2]string // name, CASHIER | STAFF
}

var branches = []seedBranch{
	{"Downtown Plaza", "123 Main Street, Downtown District", "downtown", [][2]string{
		{"Maria Santos", "STAFF"}, {"James Rodriguez", "CASHIER"}, {"Sophia Chen", "STAFF"},
	}},
	{"Mall of Elegance", "456 Fashion Avenue, Shopping Center", "mall", [][2]string{
		{"David Kim", "STAFF"}, {"Emma Wilson", "CASHIER"}, {"Michael Brown", "STAFF"},
	}},
	{"Riverside Salon", "789 River Road, Waterfront Area", "riverside", [][2]string{
		{"Isabella Garcia", "STAFF"}, {"Alexander Taylor", "CASHIER"}, {"Olivia Martinez", "STAFF"},
	}},
}

var materials = []model.Material{
	{Name: "Rebond Cream", Unit: "ml", Stock: decimal.NewFromInt(5000)},
	{Name: "Neutralizer", Unit: "ml", Stock: decimal.NewFromInt(3000)},
	{Name: "Hair Color", Unit: "ml", Stock: decimal.NewFromInt(2000)},
	{Name: "Developer", Unit: "ml", Stock: decimal.NewFromInt(2000)},
	{Name: "Nail Polish", Unit: "ml", Stock: decimal.NewFromInt(600)},
	{Name: "Spa Mask", Unit: "g", Stock: decimal.NewFromInt(1500)},
}

type seedService struct {
	name, category string
	price          int64
	durationMin    int
	recipe         map[string]int64 // material name -> quantity
}

var services = []seedService{
	{"Haircut", "hair", 250, 30, nil},
	{"Rebond", "hair", 1500, 180, map[string]int64{"Rebond Cream": 50, "Neutralizer": 30}},
	{"Hair Coloring", "hair", 1500, 120, map[string]int64{"Hair Color": 60, "Developer": 60}},
	{"Manicure", "nails", 300, 45, map[string]int64{"Nail Polish": 5}},
	{"Pedicure", "nails", 350, 60, map[string]int64{"Nail Polish": 5}},
	{"Hair Spa", "hair", 800, 90, map[string]int64{"Spa Mask": 40}},
}

var addOns = []model.AddOn{
	{Name: "Hair mask", Price: decimal.NewFromInt(80)},
	{Name: "Blow dry", Price: decimal.NewFromInt(150)},
	{Name: "Scalp massage", Price: decimal.NewFromInt(120)},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "vanity2026"
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	if err := db.Transaction(func(tx *gorm.DB) error { return seed(tx, string(hash)) }); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Str("password", password).Msg("seed complete")
}

func seed(tx *gorm.DB, hash string) error {
	mats := make(map[string]model.Material, len(materials))
	for _, m := range materials {
		if err := tx.Where(model.Material{Name: m.Name}).Attrs(m).FirstOrCreate(&m).Error; err != nil {
			return err
		}
		mats[m.Name] = m
	}

	for _, s := range services {
		svc := model.Service{
			Name:          s.name,
			Category:      s.category,
			Price:         decimal.NewFromInt(s.price),
			DurationMin:   s.durationMin,
			UsesMaterials: len(s.recipe) > 0,
		}
		if err := tx.Where("name = ? AND branch_id IS NULL", s.name).Attrs(svc).FirstOrCreate(&svc).Error; err != nil {
			return err
		}
		for name, qty := range s.recipe {
			row := model.ServiceMaterial{ServiceID: svc.ID, MaterialID: mats[name].ID, Quantity: decimal.NewFromInt(qty)}
			if err := tx.Where(model.ServiceMaterial{ServiceID: svc.ID, MaterialID: row.MaterialID}).
				Attrs(row).FirstOrCreate(&row).Error; err != nil {
				return err
			}
		}
	}

	for _, a := range addOns {
		if err := tx.Where(model.AddOn{Name: a.Name}).Attrs(a).FirstOrCreate(&a).Error; err != nil {
			return err
		}
	}

	if err := upsertAccount(tx, "owner@vanity.local", hash, model.RoleOwner, nil); err != nil {
		return err
	}

	for _, b := range branches {
		branch := model.Branch{Name: b.name, Address: b.address}
		if err := tx.Where(model.Branch{Name: b.name}).Attrs(branch).FirstOrCreate(&branch).Error; err != nil {
			return err
		}
		for _, st := range b.staff {
			row := model.Staff{BranchID: branch.ID, Name: st[0], Role: st[1]}
			if err := tx.Where(model.Staff{BranchID: branch.ID, Name: st[0]}).Attrs(row).FirstOrCreate(&row).Error; err != nil {
				return err
			}
		}
		if err := upsertAccount(tx, b.login+"@vanity.local", hash, model.RoleBranch, &branch.ID); err != nil {
			return err
		}
		log.Info().Str("branch", branch.Name).Str("login", b.login+"@vanity.local").Msg("branch seeded")
	}
	return nil
}

func upsertAccount(tx *gorm.DB, email, hash string, role model.Role, branchID *uuid.UUID) error {
	acc := model.Account{Email: email, PasswordHash: hash, Role: role, BranchID: branchID, Active: true}
	if err := tx.Where(model.Account{Email: email}).Attrs(acc).FirstOrCreate(&acc).Error; err != nil {
		return err
	}
	return tx.Model(&acc).Updates(map[string]interface{}{"password_hash": hash, "active": true}).Error
}
