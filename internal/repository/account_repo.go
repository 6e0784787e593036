package repository

import (
	"context"

	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountRepository interface {
	Create(ctx context.Context, a *model.Account) error
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

type accountRepo struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &accountRepo{db: db} }

func (r *accountRepo) Create(ctx context.Context, a *model.Account) error {
	return r.db.WithContext(ctx).Omit("Branch").Create(a).Error
}

// FindByEmail matches case-insensitively and only returns active accounts.
func (r *accountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	err := r.db.WithContext(ctx).
		Preload("Branch").
		Where("LOWER(email) = LOWER(?) AND active = ?", email, true).
		Take(&a).Error
	return &a, err
}

func (r *accountRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var a model.Account
	err := r.db.WithContext(ctx).Preload("Branch").Where("id = ?", id).Take(&a).Error
	return &a, err
}
