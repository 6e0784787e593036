package repository

import (
	"context"

	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter defines filters for listing inventory movements.
type MovementFilter struct {
	MaterialID  *uuid.UUID
	ReferenceID *uuid.UUID
	Type        string
	Page        int
	Limit       int
}

// MovementRepository appends to and reads the inventory audit trail.
// There is no update or delete.
type MovementRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, rows []model.InventoryMovement) error
	List(ctx context.Context, filter MovementFilter) ([]model.InventoryMovement, int64, error)
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepo{db: db}
}

func (r *movementRepo) CreateTx(ctx context.Context, tx *gorm.DB, rows []model.InventoryMovement) error {
	if len(rows) == 0 {
		return nil
	}
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Omit("Material").Create(&rows).Error
}

func (r *movementRepo) List(ctx context.Context, filter MovementFilter) ([]model.InventoryMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryMovement{})
	if filter.MaterialID != nil {
		q = q.Where("material_id = ?", *filter.MaterialID)
	}
	if filter.ReferenceID != nil {
		q = q.Where("reference_id = ?", *filter.ReferenceID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := pageBounds(filter.Page, filter.Limit, 100, 500)

	var rows []model.InventoryMovement
	err := q.Preload("Material").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}
