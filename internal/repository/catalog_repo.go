package repository

import (
	"context"

	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository reads branches, staff and services with their recipes.
type CatalogRepository interface {
	ListServices(ctx context.Context, branchID uuid.UUID) ([]model.Service, error)
	FindService(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Service, error)
	FindRecipe(ctx context.Context, tx *gorm.DB, serviceID uuid.UUID) ([]model.ServiceMaterial, error)

	ListStaff(ctx context.Context, branchID uuid.UUID) ([]model.Staff, error)
	FindStaff(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Staff, error)
	FindCustomer(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Customer, error)

	ListBranches(ctx context.Context) ([]model.Branch, error)
	FindBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	CountBranches(ctx context.Context) (int64, error)

	// MaterialIDsForBranch returns the distinct materials referenced by the
	// recipes of services the branch can sell.
	MaterialIDsForBranch(ctx context.Context, branchID uuid.UUID) ([]uuid.UUID, error)
}

type catalogRepo struct{ db *gorm.DB }

func NewCatalogRepository(db *gorm.DB) CatalogRepository { return &catalogRepo{db: db} }

func (r *catalogRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *catalogRepo) ListServices(ctx context.Context, branchID uuid.UUID) ([]model.Service, error) {
	var services []model.Service
	err := r.db.WithContext(ctx).
		Preload("Materials.Material").
		Where("active = ?", true).
		Where("branch_id = ? OR branch_id IS NULL", branchID).
		Order("category ASC, name ASC").
		Find(&services).Error
	return services, err
}

func (r *catalogRepo) FindService(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Service, error) {
	var s model.Service
	err := r.conn(ctx, tx).Where("id = ?", id).Take(&s).Error
	return &s, err
}

func (r *catalogRepo) FindRecipe(ctx context.Context, tx *gorm.DB, serviceID uuid.UUID) ([]model.ServiceMaterial, error) {
	var rows []model.ServiceMaterial
	err := r.conn(ctx, tx).Where("service_id = ?", serviceID).Find(&rows).Error
	return rows, err
}

func (r *catalogRepo) ListStaff(ctx context.Context, branchID uuid.UUID) ([]model.Staff, error) {
	var staff []model.Staff
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND active = ?", branchID, true).
		Order("name ASC").
		Find(&staff).Error
	return staff, err
}

func (r *catalogRepo) FindStaff(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Staff, error) {
	var s model.Staff
	err := r.conn(ctx, tx).Where("id = ?", id).Take(&s).Error
	return &s, err
}

func (r *catalogRepo) FindCustomer(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	err := r.conn(ctx, tx).Where("id = ?", id).Take(&c).Error
	return &c, err
}

func (r *catalogRepo) ListBranches(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	err := r.db.WithContext(ctx).Order("name ASC").Find(&branches).Error
	return branches, err
}

func (r *catalogRepo) FindBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var b model.Branch
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&b).Error
	return &b, err
}

func (r *catalogRepo) CountBranches(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Branch{}).Count(&n).Error
	return n, err
}

func (r *catalogRepo) MaterialIDsForBranch(ctx context.Context, branchID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.ServiceMaterial{}).
		Joins("JOIN services ON services.id = service_materials.service_id").
		Where("services.branch_id = ? OR services.branch_id IS NULL", branchID).
		Distinct().
		Pluck("service_materials.material_id", &ids).Error
	return ids, err
}
