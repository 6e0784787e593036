package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/cache"
	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const summaryCacheKey = "owner:summary"

// OwnerService is the read-only, cross-branch view for owner accounts.
type OwnerService interface {
	Summary(ctx context.Context) (*dto.OwnerSummaryResponse, error)
	Branches(ctx context.Context) ([]dto.BranchStatusResponse, error)
	BranchDetail(ctx context.Context, branchID uuid.UUID) (*dto.BranchDetailResponse, error)
	BranchSales(ctx context.Context, branchID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	ExportBranchSales(ctx context.Context, branchID uuid.UUID, filter dto.SaleFilter, w io.Writer) error
	BranchInventory(ctx context.Context, branchID uuid.UUID) ([]dto.MaterialResponse, error)
}

// OwnerConfig holds the tunables of the owner view.
type OwnerConfig struct {
	SummaryTTL   time.Duration
	OnlineWindow time.Duration
}

type ownerService struct {
	reports   repository.ReportRepository
	catalog   repository.CatalogRepository
	sessions  repository.SessionRepository
	materials repository.MaterialRepository
	summary   cache.SummaryCache
	activity  cache.BranchActivity
	cfg       OwnerConfig
	now       func() time.Time
}

func NewOwnerService(
	reports repository.ReportRepository,
	catalog repository.CatalogRepository,
	sessions repository.SessionRepository,
	materials repository.MaterialRepository,
	summary cache.SummaryCache,
	activity cache.BranchActivity,
	cfg OwnerConfig,
) OwnerService {
	if summary == nil {
		summary = cache.NoopSummaryCache{}
	}
	if cfg.OnlineWindow <= 0 {
		cfg.OnlineWindow = 5 * time.Minute
	}
	return &ownerService{
		reports:   reports,
		catalog:   catalog,
		sessions:  sessions,
		materials: materials,
		summary:   summary,
		activity:  activity,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ── Summary ──────────────────────────────────────────────────────────────────

func (s *ownerService) Summary(ctx context.Context) (*dto.OwnerSummaryResponse, error) {
	if cached, ok, err := s.summary.Get(ctx, summaryCacheKey); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("owner summary cache read failed")
	}

	w := windowsAt(s.now())
	resp := &dto.OwnerSummaryResponse{}
	var err error
	if resp.TotalRevenueToday, resp.TransactionCountToday, err = s.reports.Revenue(ctx, w.dayStart, w.dayEnd); err != nil {
		return nil, err
	}
	if resp.TotalRevenueThisWeek, resp.TransactionCountThisWeek, err = s.reports.Revenue(ctx, w.weekStart, w.weekEnd); err != nil {
		return nil, err
	}
	if resp.TotalRevenueThisMonth, resp.TransactionCountThisMonth, err = s.reports.Revenue(ctx, w.monthStart, w.monthEnd); err != nil {
		return nil, err
	}
	if resp.BranchCount, err = s.catalog.CountBranches(ctx); err != nil {
		return nil, err
	}

	if s.cfg.SummaryTTL > 0 {
		if err := s.summary.Set(ctx, summaryCacheKey, resp, s.cfg.SummaryTTL); err != nil {
			log.Warn().Err(err).Msg("owner summary cache write failed")
		}
	}
	return resp, nil
}

// ── Branches ─────────────────────────────────────────────────────────────────

func (s *ownerService) Branches(ctx context.Context) ([]dto.BranchStatusResponse, error) {
	branches, err := s.catalog.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	w := windowsAt(now)
	today, err := s.reports.RevenueByBranch(ctx, w.dayStart, w.dayEnd)
	if err != nil {
		return nil, err
	}
	week, err := s.reports.RevenueByBranch(ctx, w.weekStart, w.weekEnd)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(branches))
	for i, b := range branches {
		ids[i] = b.ID
	}
	last := map[uuid.UUID]time.Time{}
	if s.activity != nil {
		if last, err = s.activity.LastActive(ctx, ids); err != nil {
			log.Warn().Err(err).Msg("branch activity read failed")
			last = map[uuid.UUID]time.Time{}
		}
	}

	out := make([]dto.BranchStatusResponse, len(branches))
	for i, b := range branches {
		st := dto.BranchStatusResponse{
			ID:                 b.ID.String(),
			Name:               b.Name,
			Address:            b.Address,
			SalesCountToday:    today[b.ID].Count,
			SalesCountThisWeek: week[b.ID].Count,
			RevenueToday:       today[b.ID].Revenue,
			RevenueThisWeek:    week[b.ID].Revenue,
		}
		if t, ok := last[b.ID]; ok {
			ts := t.Format(time.RFC3339)
			st.LastActiveAt = &ts
			st.IsOnline = now.Sub(t) < s.cfg.OnlineWindow
		}
		out[i] = st
	}
	return out, nil
}

// ── Branch drill-down ────────────────────────────────────────────────────────

// BranchDetail is the status of one branch plus its month totals.
func (s *ownerService) BranchDetail(ctx context.Context, branchID uuid.UUID) (*dto.BranchDetailResponse, error) {
	b, err := s.catalog.FindBranch(ctx, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBranchNotFound
		}
		return nil, err
	}
	now := s.now()
	w := windowsAt(now)
	resp := &dto.BranchDetailResponse{BranchStatusResponse: dto.BranchStatusResponse{
		ID: b.ID.String(), Name: b.Name, Address: b.Address,
	}}
	if resp.RevenueToday, resp.SalesCountToday, err = s.reports.BranchRevenue(ctx, branchID, w.dayStart, w.dayEnd); err != nil {
		return nil, err
	}
	if resp.RevenueThisWeek, resp.SalesCountThisWeek, err = s.reports.BranchRevenue(ctx, branchID, w.weekStart, w.weekEnd); err != nil {
		return nil, err
	}
	if resp.RevenueThisMonth, resp.SalesCountThisMonth, err = s.reports.BranchRevenue(ctx, branchID, w.monthStart, w.monthEnd); err != nil {
		return nil, err
	}

	if s.activity != nil {
		last, err := s.activity.LastActive(ctx, []uuid.UUID{branchID})
		if err != nil {
			log.Warn().Err(err).Str("branch_id", branchID.String()).Msg("branch activity read failed")
		} else if t, ok := last[branchID]; ok {
			ts := t.Format(time.RFC3339)
			resp.LastActiveAt = &ts
			resp.IsOnline = now.Sub(t) < s.cfg.OnlineWindow
		}
	}
	return resp, nil
}

func (s *ownerService) BranchSales(ctx context.Context, branchID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if err := s.checkBranch(ctx, branchID); err != nil {
		return nil, err
	}
	filter.Status = "COMPLETED"
	sales, total, err := s.sessions.ListFinalized(ctx, branchID, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SessionResponse, len(sales))
	for i := range sales {
		data[i] = *saleToResponse(&sales[i])
	}
	return &dto.SaleListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

var exportHeaders = []string{"Sale ID", "Ended At", "Staff", "Name", "Services", "Base Price", "Add-ons", "Total", "Cash Received", "Change"}

// ExportBranchSales writes the completed sales of a branch as an .xlsx workbook.
func (s *ownerService) ExportBranchSales(ctx context.Context, branchID uuid.UUID, filter dto.SaleFilter, w io.Writer) error {
	list, err := s.BranchSales(ctx, branchID, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "Sales"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, sale := range list.Data {
		row := []interface{}{
			sale.ID,
			deref(sale.EndedAt),
			sale.StaffName,
			deref(sale.Name),
			len(sale.Items),
			sale.BasePrice.InexactFloat64(),
			sale.AddOnsTotal.InexactFloat64(),
			sale.Total.InexactFloat64(),
			decimalOrEmpty(sale.CashReceived),
			decimalOrEmpty(sale.ChangeGiven),
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	return f.Write(w)
}

func (s *ownerService) BranchInventory(ctx context.Context, branchID uuid.UUID) ([]dto.MaterialResponse, error) {
	if err := s.checkBranch(ctx, branchID); err != nil {
		return nil, err
	}
	ids, err := s.catalog.MaterialIDsForBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	mats, err := s.materials.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return materialsToResponse(mats), nil
}

func (s *ownerService) checkBranch(ctx context.Context, id uuid.UUID) error {
	if _, err := s.catalog.FindBranch(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBranchNotFound
		}
		return err
	}
	return nil
}

// ── reporting windows ────────────────────────────────────────────────────────

// windows are half-open [start, end) in the server's local time. Weeks start
// on Sunday.
type windows struct {
	dayStart, dayEnd     time.Time
	weekStart, weekEnd   time.Time
	monthStart, monthEnd time.Time
}

func windowsAt(now time.Time) windows {
	y, m, d := now.Date()
	loc := now.Location()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	week := day.AddDate(0, 0, -int(day.Weekday()))
	month := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return windows{
		dayStart: day, dayEnd: day.AddDate(0, 0, 1),
		weekStart: week, weekEnd: week.AddDate(0, 0, 7),
		monthStart: month, monthEnd: month.AddDate(0, 1, 0),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func decimalOrEmpty(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}
