package repository

import (
	"context"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SessionRepository persists sessions (sales) and their child rows.
//
// Every method that takes a tx runs on it when it is non-nil and on the
// repository's own connection otherwise. Mutations of a draft are expected to
// run inside one transaction that starts with TouchDraft.
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	// FindHeader loads the sale row only, without children.
	FindHeader(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	ListDrafts(ctx context.Context, branchID uuid.UUID) ([]model.Sale, error)
	ListFinalized(ctx context.Context, branchID uuid.UUID, filter dto.SaleFilter) ([]model.Sale, int64, error)

	// TouchDraft bumps updated_at on a DRAFT session of the branch and
	// reports whether a row matched. On postgres the row stays locked until
	// the surrounding transaction ends.
	TouchDraft(ctx context.Context, tx *gorm.DB, id, branchID uuid.UUID) (bool, error)
	UpdateMeta(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	UpdateTotals(ctx context.Context, tx *gorm.DB, id uuid.UUID, base, addOns, total decimal.Decimal) error

	// Finalize moves a DRAFT session to status. fields are written in the
	// same statement. Returns false when the session was no longer DRAFT.
	Finalize(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.SaleStatus, endedAt time.Time, fields map[string]interface{}) (bool, error)

	// Line items
	CreateLineItem(ctx context.Context, tx *gorm.DB, item *model.SaleService) error
	FindLineItem(ctx context.Context, tx *gorm.DB, saleID, itemID uuid.UUID) (*model.SaleService, error)
	DeleteLineItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error
	ListLineItems(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) ([]model.SaleService, error)
	ListAddOns(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) ([]model.SaleAddOn, error)

	// Material usages
	CreateMaterialUsages(ctx context.Context, tx *gorm.DB, rows []model.SaleMaterial) error
	ListMaterialUsages(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) ([]model.SaleMaterial, error)
	DeleteMaterialUsagesForItem(ctx context.Context, tx *gorm.DB, saleID, itemID uuid.UUID) (int64, error)
	DeleteUnlinkedMaterialUsages(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, materialIDs []uuid.UUID) (int64, error)
	FindMaterialUsage(ctx context.Context, tx *gorm.DB, saleID, materialID uuid.UUID, itemID *uuid.UUID) (*model.SaleMaterial, error)
	UpdateMaterialUsageQty(ctx context.Context, tx *gorm.DB, usageID uuid.UUID, qty decimal.Decimal) error

	// DeleteDraft removes a DRAFT session and all its child rows.
	// Returns false when the session was no longer DRAFT.
	DeleteDraft(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)

	DB() *gorm.DB
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) DB() *gorm.DB { return r.db }

func (r *sessionRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// preloadSale loads everything a session response needs.
func preloadSale(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Branch").
		Preload("Staff").
		Preload("Customer").
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Services.Service").
		Preload("AddOns", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("AddOns.AddOn").
		Preload("Materials", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Materials.Material")
}

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error {
	return r.conn(ctx, tx).Omit("Branch", "Staff", "Customer", "Services", "AddOns", "Materials").Create(s).Error
}

func (r *sessionRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := preloadSale(r.conn(ctx, tx)).Where("id = ?", id).Take(&s).Error
	return &s, err
}

func (r *sessionRepo) FindHeader(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.conn(ctx, tx).Where("id = ?", id).Take(&s).Error
	return &s, err
}

func (r *sessionRepo) ListDrafts(ctx context.Context, branchID uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	err := preloadSale(r.db.WithContext(ctx)).
		Where("branch_id = ? AND status = ?", branchID, model.SaleStatusDraft).
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}

func (r *sessionRepo) ListFinalized(ctx context.Context, branchID uuid.UUID, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Sale{}).Where("branch_id = ?", branchID)

	switch filter.Status {
	case "all":
		q = q.Where("status IN ?", []model.SaleStatus{model.SaleStatusCompleted, model.SaleStatusCancelled})
	case string(model.SaleStatusCancelled):
		q = q.Where("status = ?", model.SaleStatusCancelled)
	default:
		q = q.Where("status = ?", model.SaleStatusCompleted)
	}
	if from, ok := parseDay(filter.From); ok {
		q = q.Where("ended_at >= ?", from)
	}
	if to, ok := parseDay(filter.To); ok {
		q = q.Where("ended_at < ?", to.AddDate(0, 0, 1))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := pageBounds(filter.Page, filter.Limit, 50, 200)
	var sales []model.Sale
	err := preloadSale(q).
		Order("ended_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sales).Error
	return sales, total, err
}

func (r *sessionRepo) TouchDraft(ctx context.Context, tx *gorm.DB, id, branchID uuid.UUID) (bool, error) {
	res := r.conn(ctx, tx).Model(&model.Sale{}).
		Where("id = ? AND branch_id = ? AND status = ?", id, branchID, model.SaleStatusDraft).
		Update("updated_at", time.Now())
	return res.RowsAffected == 1, res.Error
}

func (r *sessionRepo) UpdateMeta(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.conn(ctx, tx).Model(&model.Sale{}).Where("id = ?", id).Updates(fields).Error
}

func (r *sessionRepo) UpdateTotals(ctx context.Context, tx *gorm.DB, id uuid.UUID, base, addOns, total decimal.Decimal) error {
	return r.conn(ctx, tx).Model(&model.Sale{}).Where("id = ?", id).Updates(map[string]interface{}{
		"base_price":    base,
		"add_ons_total": addOns,
		"total":         total,
	}).Error
}

func (r *sessionRepo) Finalize(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.SaleStatus, endedAt time.Time, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"ended_at":   endedAt,
		"updated_at": endedAt,
	}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.conn(ctx, tx).Model(&model.Sale{}).
		Where("id = ? AND status = ?", id, model.SaleStatusDraft).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// ── Line items ───────────────────────────────────────────────────────────────

func (r *sessionRepo) CreateLineItem(ctx context.Context, tx *gorm.DB, item *model.SaleService) error {
	return r.conn(ctx, tx).Omit("Service").Create(item).Error
}

func (r *sessionRepo) FindLineItem(ctx context.Context, tx *gorm.DB, saleID, itemID uuid.UUID) (*model.SaleService, error) {
	var item model.SaleService
	err := r.conn(ctx, tx).Where("id = ? AND sale_id = ?", itemID, saleID).Take(&item).Error
	return &item, err
}

func (r *sessionRepo) DeleteLineItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
	return r.conn(ctx, tx).Where("id = ?", itemID).Delete(&model.SaleService{}).Error
}

func (r *sessionRepo) ListLineItems(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) ([]model.SaleService, error) {
	var items []model.SaleService
	err := r.conn(ctx, tx).Where("sale_id = ?", saleID).Order("created_at ASC, id ASC").Find(&items).Error
	return items, err
}

func (r *sessionRepo) ListAddOns(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) ([]model.SaleAddOn, error) {
	var addOns []model.SaleAddOn
	err := r.conn(ctx, tx).Where("sale_id = ?", saleID).Order("created_at ASC, id ASC").Find(&addOns).Error
	return addOns, err
}

// ── Material usages ──────────────────────────────────────────────────────────

func (r *sessionRepo) CreateMaterialUsages(ctx context.Context, tx *gorm.DB, rows []model.SaleMaterial) error {
	if len(rows) == 0 {
		return nil
	}
	return r.conn(ctx, tx).Omit("Material").Create(&rows).Error
}

func (r *sessionRepo) ListMaterialUsages(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) ([]model.SaleMaterial, error) {
	var rows []model.SaleMaterial
	err := r.conn(ctx, tx).Where("sale_id = ?", saleID).Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *sessionRepo) DeleteMaterialUsagesForItem(ctx context.Context, tx *gorm.DB, saleID, itemID uuid.UUID) (int64, error) {
	res := r.conn(ctx, tx).
		Where("sale_id = ? AND sale_service_id = ?", saleID, itemID).
		Delete(&model.SaleMaterial{})
	return res.RowsAffected, res.Error
}

func (r *sessionRepo) DeleteUnlinkedMaterialUsages(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, materialIDs []uuid.UUID) (int64, error) {
	if len(materialIDs) == 0 {
		return 0, nil
	}
	res := r.conn(ctx, tx).
		Where("sale_id = ? AND sale_service_id IS NULL AND material_id IN ?", saleID, materialIDs).
		Delete(&model.SaleMaterial{})
	return res.RowsAffected, res.Error
}

// FindMaterialUsage returns the earliest usage row of materialID in the sale,
// restricted to one line item when itemID is set. It returns (nil, nil) when
// no row matches.
func (r *sessionRepo) FindMaterialUsage(ctx context.Context, tx *gorm.DB, saleID, materialID uuid.UUID, itemID *uuid.UUID) (*model.SaleMaterial, error) {
	q := r.conn(ctx, tx).Where("sale_id = ? AND material_id = ?", saleID, materialID)
	if itemID != nil {
		q = q.Where("sale_service_id = ?", *itemID)
	}
	var rows []model.SaleMaterial
	if err := q.Order("created_at ASC, id ASC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *sessionRepo) UpdateMaterialUsageQty(ctx context.Context, tx *gorm.DB, usageID uuid.UUID, qty decimal.Decimal) error {
	return r.conn(ctx, tx).Model(&model.SaleMaterial{}).Where("id = ?", usageID).Update("quantity", qty).Error
}

func (r *sessionRepo) DeleteDraft(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	db := r.conn(ctx, tx)
	if err := db.Where("sale_id = ?", id).Delete(&model.SaleMaterial{}).Error; err != nil {
		return false, err
	}
	if err := db.Where("sale_id = ?", id).Delete(&model.SaleAddOn{}).Error; err != nil {
		return false, err
	}
	if err := db.Where("sale_id = ?", id).Delete(&model.SaleService{}).Error; err != nil {
		return false, err
	}
	res := db.Where("id = ? AND status = ?", id, model.SaleStatusDraft).Delete(&model.Sale{})
	return res.RowsAffected == 1, res.Error
}

// ── helpers ──────────────────────────────────────────────────────────────────

// parseDay parses a YYYY-MM-DD filter value as local midnight.
func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func pageBounds(page, limit, defLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defLimit
	}
	return page, limit
}
