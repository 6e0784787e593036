package repository

import (
	"context"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RevenueRow is the completed-sales aggregate of one branch in a window.
type RevenueRow struct {
	BranchID uuid.UUID
	Revenue  decimal.Decimal
	Count    int64
}

// ReportRepository aggregates completed sales by ended_at.
// Windows are half-open: [from, to).
type ReportRepository interface {
	Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, int64, error)
	RevenueByBranch(ctx context.Context, from, to time.Time) (map[uuid.UUID]RevenueRow, error)
	BranchRevenue(ctx context.Context, branchID uuid.UUID, from, to time.Time) (decimal.Decimal, int64, error)

	// BranchSales returns ended_at and total of the branch's completed sales,
	// oldest first.
	BranchSales(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]model.Sale, error)
}

type reportRepo struct{ db *gorm.DB }

func NewReportRepository(db *gorm.DB) ReportRepository { return &reportRepo{db: db} }

func (r *reportRepo) completed(ctx context.Context, from, to time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("status = ? AND ended_at >= ? AND ended_at < ?", model.SaleStatusCompleted, from, to)
}

func (r *reportRepo) Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Revenue decimal.NullDecimal
		Count   int64
	}
	err := r.completed(ctx, from, to).
		Select("SUM(total) AS revenue, COUNT(*) AS count").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return nullToZero(row.Revenue), row.Count, nil
}

func (r *reportRepo) RevenueByBranch(ctx context.Context, from, to time.Time) (map[uuid.UUID]RevenueRow, error) {
	var rows []struct {
		BranchID uuid.UUID
		Revenue  decimal.NullDecimal
		Count    int64
	}
	err := r.completed(ctx, from, to).
		Select("branch_id, SUM(total) AS revenue, COUNT(*) AS count").
		Group("branch_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]RevenueRow, len(rows))
	for _, r := range rows {
		out[r.BranchID] = RevenueRow{BranchID: r.BranchID, Revenue: nullToZero(r.Revenue), Count: r.Count}
	}
	return out, nil
}

func (r *reportRepo) BranchRevenue(ctx context.Context, branchID uuid.UUID, from, to time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Revenue decimal.NullDecimal
		Count   int64
	}
	err := r.completed(ctx, from, to).
		Where("branch_id = ?", branchID).
		Select("SUM(total) AS revenue, COUNT(*) AS count").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return nullToZero(row.Revenue), row.Count, nil
}

func (r *reportRepo) BranchSales(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.completed(ctx, from, to).
		Where("branch_id = ?", branchID).
		Select("id", "ended_at", "total").
		Order("ended_at ASC").
		Find(&sales).Error
	return sales, err
}

func nullToZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
