package dto

import "github.com/shopspring/decimal"

type OwnerSummaryResponse struct {
	TotalRevenueToday         decimal.Decimal `json:"total_revenue_today"`
	TotalRevenueThisWeek      decimal.Decimal `json:"total_revenue_this_week"`
	TotalRevenueThisMonth     decimal.Decimal `json:"total_revenue_this_month"`
	TransactionCountToday     int64           `json:"transaction_count_today"`
	TransactionCountThisWeek  int64           `json:"transaction_count_this_week"`
	TransactionCountThisMonth int64           `json:"transaction_count_this_month"`
	BranchCount               int64           `json:"branch_count"`
}

type BranchStatusResponse struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Address            string          `json:"address"`
	LastActiveAt       *string         `json:"last_active_at"`
	IsOnline           bool            `json:"is_online"`
	SalesCountToday    int64           `json:"sales_count_today"`
	SalesCountThisWeek int64           `json:"sales_count_this_week"`
	RevenueToday       decimal.Decimal `json:"revenue_today"`
	RevenueThisWeek    decimal.Decimal `json:"revenue_this_week"`
}

// BranchDetailResponse is the owner drill-down header of one branch.
type BranchDetailResponse struct {
	BranchStatusResponse
	SalesCountThisMonth int64           `json:"sales_count_this_month"`
	RevenueThisMonth    decimal.Decimal `json:"revenue_this_month"`
}
