package dto

import "github.com/shopspring/decimal"

// AnalyticsQuery is bound from the query string of GET /v1/sales/analytics.
// Dates are YYYY-MM-DD and inclusive. hour reads a single day and defaults to
// today; the other intervals need both dates.
type AnalyticsQuery struct {
	Interval  string `form:"interval"  validate:"required,oneof=hour day week month"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

// AnalyticsPoint is one bucket of the revenue series. Empty buckets are
// included with zero values.
type AnalyticsPoint struct {
	Start   string          `json:"start"` // RFC3339
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int64           `json:"count"`
}

type AnalyticsResponse struct {
	Interval     string           `json:"interval"`
	From         string           `json:"from"`
	To           string           `json:"to"` // exclusive
	Points       []AnalyticsPoint `json:"points"`
	TotalRevenue decimal.Decimal  `json:"total_revenue"`
	TotalCount   int64            `json:"total_count"`
}
