package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateSessionRequest struct {
	StaffID    string  `json:"staff_id"    validate:"required,uuid"`
	Name       *string `json:"name"        validate:"omitempty,max=120"`
	CustomerID *string `json:"customer_id" validate:"omitempty,uuid"`
}

// UpdateSessionRequest only touches the fields that are present.
type UpdateSessionRequest struct {
	Name       *string `json:"name"        validate:"omitempty,max=120"`
	CustomerID *string `json:"customer_id" validate:"omitempty,uuid"`
	StaffID    *string `json:"staff_id"    validate:"omitempty,uuid"`
}

type MaterialUsageRequest struct {
	MaterialID string          `json:"material_id" validate:"required,uuid"`
	Quantity   decimal.Decimal `json:"quantity"    validate:"min=0"`
}

// AddItemRequest carries the price the terminal showed when the service was
// picked; the server stores it as-is.
type AddItemRequest struct {
	ServiceID string                 `json:"service_id" validate:"required,uuid"`
	Qty       int                    `json:"qty"        validate:"required,min=1"`
	Price     *decimal.Decimal       `json:"price"      validate:"required"`
	Materials []MaterialUsageRequest `json:"materials"  validate:"omitempty,dive"`
}

type UpdateMaterialRequest struct {
	Quantity   decimal.Decimal `json:"quantity"     validate:"min=0"`
	LineItemID *string         `json:"line_item_id" validate:"omitempty,uuid"`
}

type CheckoutRequest struct {
	CashReceived *decimal.Decimal `json:"cash_received"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LineItemResponse struct {
	ID          string          `json:"id"`
	ServiceID   string          `json:"service_id"`
	Name        string          `json:"name"`
	DurationMin int             `json:"duration_min"`
	Qty         int             `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type AddOnResponse struct {
	ID      string          `json:"id"`
	AddOnID string          `json:"add_on_id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
}

type MaterialUsageResponse struct {
	ID         string          `json:"id"`
	MaterialID string          `json:"material_id"`
	LineItemID *string         `json:"line_item_id"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type SessionResponse struct {
	ID           string                  `json:"id"`
	BranchID     string                  `json:"branch_id"`
	BranchName   string                  `json:"branch_name"`
	StaffID      string                  `json:"staff_id"`
	StaffName    string                  `json:"staff_name"`
	CustomerID   *string                 `json:"customer_id"`
	CustomerName *string                 `json:"customer_name"`
	Name         *string                 `json:"name"`
	Status       string                  `json:"status"`
	BasePrice    decimal.Decimal         `json:"base_price"`
	AddOnsTotal  decimal.Decimal         `json:"add_ons_total"`
	Total        decimal.Decimal         `json:"total"`
	CashReceived *decimal.Decimal        `json:"cash_received"`
	ChangeGiven  *decimal.Decimal        `json:"change_given"`
	Items        []LineItemResponse      `json:"items"`
	AddOns       []AddOnResponse         `json:"add_ons"`
	Materials    []MaterialUsageResponse `json:"materials"`
	CreatedAt    string                  `json:"created_at"`
	EndedAt      *string                 `json:"ended_at"`
}

// ─── Sales history ───────────────────────────────────────────────────────────

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	Status string `form:"status,default=COMPLETED"` // COMPLETED | CANCELLED | all
	From   string `form:"from"`                     // YYYY-MM-DD
	To     string `form:"to"`                       // YYYY-MM-DD, inclusive
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type SaleListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
