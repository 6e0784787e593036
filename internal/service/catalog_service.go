package service

import (
	"context"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/repository"

	"github.com/google/uuid"
)

// CatalogService exposes the read side of services and staff to terminals.
type CatalogService interface {
	ListServices(ctx context.Context, branchID uuid.UUID) ([]dto.ServiceResponse, error)
	ListStaff(ctx context.Context, branchID uuid.UUID) ([]dto.StaffResponse, error)
}

type catalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) ListServices(ctx context.Context, branchID uuid.UUID) ([]dto.ServiceResponse, error) {
	services, err := s.repo.ListServices(ctx, branchID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ServiceResponse, len(services))
	for i, svc := range services {
		recipe := make([]dto.RecipeItemResponse, 0, len(svc.Materials))
		for _, m := range svc.Materials {
			item := dto.RecipeItemResponse{MaterialID: m.MaterialID.String(), Quantity: m.Quantity}
			if m.Material != nil {
				item.Name = m.Material.Name
				item.Unit = m.Material.Unit
			}
			recipe = append(recipe, item)
		}
		out[i] = dto.ServiceResponse{
			ID:            svc.ID.String(),
			Name:          svc.Name,
			Category:      svc.Category,
			Price:         svc.Price,
			DurationMin:   svc.DurationMin,
			UsesMaterials: svc.UsesMaterials,
			Materials:     recipe,
		}
	}
	return out, nil
}

func (s *catalogService) ListStaff(ctx context.Context, branchID uuid.UUID) ([]dto.StaffResponse, error) {
	staff, err := s.repo.ListStaff(ctx, branchID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StaffResponse, len(staff))
	for i, st := range staff {
		out[i] = dto.StaffResponse{ID: st.ID.String(), Name: st.Name, Role: st.Role}
	}
	return out, nil
}
