package service

import (
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func saleToResponse(s *model.Sale) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:           s.ID.String(),
		BranchID:     s.BranchID.String(),
		StaffID:      s.StaffID.String(),
		CustomerID:   uuidPtrString(s.CustomerID),
		Name:         s.Name,
		Status:       string(s.Status),
		BasePrice:    s.BasePrice,
		AddOnsTotal:  s.AddOnsTotal,
		Total:        s.Total,
		CashReceived: s.CashReceived,
		ChangeGiven:  s.ChangeGiven,
		Items:        make([]dto.LineItemResponse, 0, len(s.Services)),
		AddOns:       make([]dto.AddOnResponse, 0, len(s.AddOns)),
		Materials:    make([]dto.MaterialUsageResponse, 0, len(s.Materials)),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
	if s.Branch != nil {
		resp.BranchName = s.Branch.Name
	}
	if s.Staff != nil {
		resp.StaffName = s.Staff.Name
	}
	if s.Customer != nil {
		name := s.Customer.Name
		resp.CustomerName = &name
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(time.RFC3339)
		resp.EndedAt = &ended
	}

	for _, it := range s.Services {
		li := dto.LineItemResponse{
			ID:        it.ID.String(),
			ServiceID: it.ServiceID.String(),
			Qty:       it.Qty,
			Price:     it.Price,
			Subtotal:  it.Price.Mul(decimal.NewFromInt(int64(it.Qty))),
		}
		if it.Service != nil {
			li.Name = it.Service.Name
			li.DurationMin = it.Service.DurationMin
		}
		resp.Items = append(resp.Items, li)
	}
	for _, a := range s.AddOns {
		ar := dto.AddOnResponse{ID: a.ID.String(), AddOnID: a.AddOnID.String(), Price: a.Price}
		if a.AddOn != nil {
			ar.Name = a.AddOn.Name
		}
		resp.AddOns = append(resp.AddOns, ar)
	}
	for _, m := range s.Materials {
		mr := dto.MaterialUsageResponse{
			ID:         m.ID.String(),
			MaterialID: m.MaterialID.String(),
			LineItemID: uuidPtrString(m.SaleServiceID),
			Quantity:   m.Quantity,
		}
		if m.Material != nil {
			mr.Name = m.Material.Name
			mr.Unit = m.Material.Unit
		}
		resp.Materials = append(resp.Materials, mr)
	}
	return resp
}

func materialToResponse(m *model.Material) dto.MaterialResponse {
	return dto.MaterialResponse{ID: m.ID.String(), Name: m.Name, Unit: m.Unit, Stock: m.Stock}
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid(field + " must be a valid UUID")
	}
	return id, nil
}
