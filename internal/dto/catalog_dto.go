package dto

import "github.com/shopspring/decimal"

type RecipeItemResponse struct {
	MaterialID string          `json:"material_id"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type ServiceResponse struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Category      string               `json:"category"`
	Price         decimal.Decimal      `json:"price"`
	DurationMin   int                  `json:"duration_min"`
	UsesMaterials bool                 `json:"uses_materials"`
	Materials     []RecipeItemResponse `json:"materials"`
}

type StaffResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}
