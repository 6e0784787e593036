package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AdjustStockRequest is a manual inventory correction.
// IN adds, OUT subtracts, ADJUSTMENT applies the signed Quantity as-is.
type AdjustStockRequest struct {
	Type     string          `json:"type"     validate:"required,oneof=IN OUT ADJUSTMENT"`
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	Note     string          `json:"note"     validate:"max=255"`
}

type MovementFilter struct {
	Type  string `form:"type"`
	Page  int    `form:"page,default=1"    validate:"min=1"`
	Limit int    `form:"limit,default=100" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MaterialResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Unit  string          `json:"unit"`
	Stock decimal.Decimal `json:"stock"`
}

type MovementResponse struct {
	ID          string          `json:"id"`
	MaterialID  string          `json:"material_id"`
	Material    string          `json:"material"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	ReferenceID *string         `json:"reference_id"`
	Note        string          `json:"note"`
	CreatedAt   string          `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
