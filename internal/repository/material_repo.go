package repository

import (
	"context"

	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaterialRepository is the data access contract for consumables.
// Stock is only ever changed through AddStockTx so that concurrent writers
// never read-modify-write the column.
type MaterialRepository interface {
	List(ctx context.Context) ([]model.Material, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Material, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Material, error)
	LowStock(ctx context.Context, threshold decimal.Decimal) ([]model.Material, error)

	// AddStockTx applies stock = stock + delta in a single statement and
	// reports whether the material existed. Use a negative delta to deduct.
	AddStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) (bool, error)

	DB() *gorm.DB
}

type materialRepo struct{ db *gorm.DB }

func NewMaterialRepository(db *gorm.DB) MaterialRepository { return &materialRepo{db: db} }

func (r *materialRepo) DB() *gorm.DB { return r.db }

func (r *materialRepo) List(ctx context.Context) ([]model.Material, error) {
	var mats []model.Material
	err := r.db.WithContext(ctx).Order("name ASC").Find(&mats).Error
	return mats, err
}

func (r *materialRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Material, error) {
	var m model.Material
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error
	return &m, err
}

func (r *materialRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Material, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var mats []model.Material
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&mats).Error
	return mats, err
}

func (r *materialRepo) LowStock(ctx context.Context, threshold decimal.Decimal) ([]model.Material, error) {
	var mats []model.Material
	err := r.db.WithContext(ctx).Where("stock <= ?", threshold).Order("stock ASC, name ASC").Find(&mats).Error
	return mats, err
}

func (r *materialRepo) AddStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	res := db.WithContext(ctx).Model(&model.Material{}).Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", delta))
	return res.RowsAffected == 1, res.Error
}
