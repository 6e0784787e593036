package infra

import (
	"fmt"

	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the postgres connection pool, installs query tracing and
// brings the schema up to date.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		log.Warn().Err(err).Msg("db connected but otelgorm plugin not installed")
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table, then applies the postgres
// patches AutoMigrate cannot express. Also used by integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL. Each statement checks for the
// object first so re-running on a patched database is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"sales status check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sales_status') THEN
    ALTER TABLE sales ADD CONSTRAINT chk_sales_status
      CHECK (status IN ('DRAFT', 'COMPLETED', 'CANCELLED'));
  END IF;
END $$`},
		// Terminal sessions always carry ended_at.
		{"sales ended_at check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sales_ended_at') THEN
    ALTER TABLE sales ADD CONSTRAINT chk_sales_ended_at
      CHECK ((status = 'DRAFT') = (ended_at IS NULL));
  END IF;
END $$`},
		{"movement type check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventory_movements_type') THEN
    ALTER TABLE inventory_movements ADD CONSTRAINT chk_inventory_movements_type
      CHECK (type IN ('IN', 'OUT', 'ADJUSTMENT'));
  END IF;
END $$`},
		// Open tabs per branch: the hot query of every terminal.
		{"partial index on open sessions",
			`CREATE INDEX IF NOT EXISTS idx_sales_open_by_branch
			   ON sales (branch_id, created_at) WHERE status = 'DRAFT'`},
		{"index for owner revenue windows",
			`CREATE INDEX IF NOT EXISTS idx_sales_completed_ended_at
			   ON sales (ended_at, branch_id) WHERE status = 'COMPLETED'`},
		{"index for movement history",
			`CREATE INDEX IF NOT EXISTS idx_inventory_movements_material_created
			   ON inventory_movements (material_id, created_at DESC)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
