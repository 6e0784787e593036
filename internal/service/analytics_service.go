package service

import (
	"context"
	"sort"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxBuckets bounds one analytics response.
const maxBuckets = 366

// AnalyticsService builds the revenue time series of a branch.
type AnalyticsService interface {
	Sales(ctx context.Context, branchID uuid.UUID, q dto.AnalyticsQuery) (*dto.AnalyticsResponse, error)
}

type analyticsService struct {
	reports repository.ReportRepository
	now     func() time.Time
}

func NewAnalyticsService(reports repository.ReportRepository) AnalyticsService {
	return &analyticsService{reports: reports, now: time.Now}
}

// interval describes how buckets are cut.
type interval struct {
	floor func(time.Time) time.Time
	next  func(time.Time) time.Time
	label string // time layout
}

var intervals = map[string]interval{
	"hour": {
		floor: func(t time.Time) time.Time {
			y, m, d := t.Date()
			return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
		},
		next:  func(t time.Time) time.Time { return t.Add(time.Hour) },
		label: "15:04",
	},
	"day": {
		floor: startOfDay,
		next:  func(t time.Time) time.Time { return t.AddDate(0, 0, 1) },
		label: "2006-01-02",
	},
	"week": {
		floor: func(t time.Time) time.Time { return windowsAt(t).weekStart },
		next:  func(t time.Time) time.Time { return t.AddDate(0, 0, 7) },
		label: "2006-01-02",
	},
	"month": {
		floor: func(t time.Time) time.Time { return windowsAt(t).monthStart },
		next:  func(t time.Time) time.Time { return t.AddDate(0, 1, 0) },
		label: "2006-01",
	},
}

func (s *analyticsService) Sales(ctx context.Context, branchID uuid.UUID, q dto.AnalyticsQuery) (*dto.AnalyticsResponse, error) {
	iv, ok := intervals[q.Interval]
	if !ok {
		return nil, invalid("interval must be one of hour, day, week or month")
	}
	from, to, err := s.rangeOf(q)
	if err != nil {
		return nil, err
	}

	var starts []time.Time
	for t := iv.floor(from); t.Before(to); t = iv.next(t) {
		if len(starts) == maxBuckets {
			return nil, invalid("date range too large for this interval")
		}
		starts = append(starts, t)
	}
	end := iv.next(starts[len(starts)-1])

	sales, err := s.reports.BranchSales(ctx, branchID, starts[0], end)
	if err != nil {
		return nil, err
	}

	points := make([]dto.AnalyticsPoint, len(starts))
	for i, t := range starts {
		points[i] = dto.AnalyticsPoint{Start: t.Format(time.RFC3339), Label: t.Format(iv.label), Revenue: decimal.Zero}
	}
	resp := &dto.AnalyticsResponse{
		Interval:     q.Interval,
		From:         starts[0].Format(time.RFC3339),
		To:           end.Format(time.RFC3339),
		TotalRevenue: decimal.Zero,
	}
	for _, sale := range sales {
		if sale.EndedAt == nil {
			continue
		}
		i := sort.Search(len(starts), func(i int) bool { return starts[i].After(*sale.EndedAt) }) - 1
		if i < 0 {
			continue
		}
		points[i].Revenue = points[i].Revenue.Add(sale.Total)
		points[i].Count++
		resp.TotalRevenue = resp.TotalRevenue.Add(sale.Total)
		resp.TotalCount++
	}
	resp.Points = points
	return resp, nil
}

// rangeOf turns the inclusive query dates into a half-open [from, to).
func (s *analyticsService) rangeOf(q dto.AnalyticsQuery) (time.Time, time.Time, error) {
	if q.Interval == "hour" {
		day := startOfDay(s.now())
		if q.StartDate != "" {
			var err error
			if day, err = parseQueryDay(q.StartDate); err != nil {
				return time.Time{}, time.Time{}, err
			}
		}
		return day, day.AddDate(0, 0, 1), nil
	}
	if q.StartDate == "" || q.EndDate == "" {
		return time.Time{}, time.Time{}, invalid("startDate and endDate are required for the " + q.Interval + " interval")
	}
	from, err := parseQueryDay(q.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	last, err := parseQueryDay(q.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if last.Before(from) {
		return time.Time{}, time.Time{}, invalid("endDate is before startDate")
	}
	return from, last.AddDate(0, 0, 1), nil
}

func parseQueryDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, invalid("dates must be YYYY-MM-DD")
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
