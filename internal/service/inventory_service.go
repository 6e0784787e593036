package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/model"
	"github.com/JaroldEnderez/Vanity/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryService is the inventory ledger: the only writer of material stock.
type InventoryService interface {
	// DeductForCheckout must run inside the checkout transaction. Quantities
	// are summed per material and applied with one update each; every usage
	// row still gets its own OUT movement. It returns the deducted material ids.
	// It does not guard against being called twice for the same sale.
	DeductForCheckout(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, usages []model.SaleMaterial) ([]uuid.UUID, error)

	Adjust(ctx context.Context, materialID uuid.UUID, req dto.AdjustStockRequest) (*dto.MaterialResponse, error)
	ListMaterials(ctx context.Context) ([]dto.MaterialResponse, error)
	LowStock(ctx context.Context, threshold *decimal.Decimal) ([]dto.MaterialResponse, error)
	Movements(ctx context.Context, materialID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type inventoryService struct {
	materials repository.MaterialRepository
	movements repository.MovementRepository
	alerts    StockAlertDispatcher
	threshold decimal.Decimal
}

// NewInventoryService builds the ledger. alerts may be nil; threshold is the
// default used by LowStock.
func NewInventoryService(
	materials repository.MaterialRepository,
	movements repository.MovementRepository,
	alerts StockAlertDispatcher,
	threshold decimal.Decimal,
) InventoryService {
	return &inventoryService{materials: materials, movements: movements, alerts: alerts, threshold: threshold}
}

func (s *inventoryService) DeductForCheckout(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, usages []model.SaleMaterial) ([]uuid.UUID, error) {
	sums := make(map[uuid.UUID]decimal.Decimal)
	movements := make([]model.InventoryMovement, 0, len(usages))
	ref := saleID
	for _, u := range usages {
		if !u.Quantity.IsPositive() {
			continue
		}
		sums[u.MaterialID] = sums[u.MaterialID].Add(u.Quantity)
		movements = append(movements, model.InventoryMovement{
			MaterialID:  u.MaterialID,
			Type:        model.MovementOut,
			Quantity:    u.Quantity,
			ReferenceID: &ref,
			Note:        "checkout",
		})
	}

	// Stable order keeps concurrent checkouts locking materials the same way.
	ids := make([]uuid.UUID, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		ok, err := s.materials.AddStockTx(ctx, tx, id, sums[id].Neg())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMaterialNotFound, id)
		}
	}
	if err := s.movements.CreateTx(ctx, tx, movements); err != nil {
		return nil, err
	}
	return ids, nil
}

// Adjust records a manual stock correction. IN adds and OUT subtracts a
// positive quantity; ADJUSTMENT applies a signed delta.
func (s *inventoryService) Adjust(ctx context.Context, materialID uuid.UUID, req dto.AdjustStockRequest) (*dto.MaterialResponse, error) {
	typ := model.MovementType(req.Type)
	var delta decimal.Decimal
	switch typ {
	case model.MovementIn:
		if !req.Quantity.IsPositive() {
			return nil, invalid("quantity must be positive")
		}
		delta = req.Quantity
	case model.MovementOut:
		if !req.Quantity.IsPositive() {
			return nil, invalid("quantity must be positive")
		}
		delta = req.Quantity.Neg()
	case model.MovementAdjustment:
		if req.Quantity.IsZero() {
			return nil, invalid("quantity must not be zero")
		}
		delta = req.Quantity
	default:
		return nil, invalid("type must be IN, OUT or ADJUSTMENT")
	}

	err := runTx(ctx, s.materials.DB(), func(tx *gorm.DB) error {
		ok, err := s.materials.AddStockTx(ctx, tx, materialID, delta)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMaterialNotFound
		}
		return s.movements.CreateTx(ctx, tx, []model.InventoryMovement{{
			MaterialID: materialID,
			Type:       typ,
			Quantity:   req.Quantity,
			Note:       req.Note,
		}})
	})
	if err != nil {
		return nil, err
	}

	if s.alerts != nil && delta.IsNegative() {
		if err := s.alerts.EnqueueStockAlert(ctx, []uuid.UUID{materialID}, nil); err != nil {
			log.Warn().Err(err).Str("material_id", materialID.String()).Msg("stock alert enqueue failed")
		}
	}

	m, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	resp := materialToResponse(m)
	return &resp, nil
}

func (s *inventoryService) ListMaterials(ctx context.Context) ([]dto.MaterialResponse, error) {
	mats, err := s.materials.List(ctx)
	if err != nil {
		return nil, err
	}
	return materialsToResponse(mats), nil
}

func (s *inventoryService) LowStock(ctx context.Context, threshold *decimal.Decimal) ([]dto.MaterialResponse, error) {
	t := s.threshold
	if threshold != nil {
		t = *threshold
	}
	mats, err := s.materials.LowStock(ctx, t)
	if err != nil {
		return nil, err
	}
	return materialsToResponse(mats), nil
}

func (s *inventoryService) Movements(ctx context.Context, materialID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	if _, err := s.materials.FindByID(ctx, materialID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}
	rows, total, err := s.movements.List(ctx, repository.MovementFilter{
		MaterialID: &materialID,
		Type:       filter.Type,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovementResponse, len(rows))
	for i, m := range rows {
		data[i] = dto.MovementResponse{
			ID:          m.ID.String(),
			MaterialID:  m.MaterialID.String(),
			Type:        string(m.Type),
			Quantity:    m.Quantity,
			ReferenceID: uuidPtrString(m.ReferenceID),
			Note:        m.Note,
			CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		}
		if m.Material != nil {
			data[i].Material = m.Material.Name
		}
	}
	return &dto.MovementListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func materialsToResponse(mats []model.Material) []dto.MaterialResponse {
	out := make([]dto.MaterialResponse, len(mats))
	for i := range mats {
		out[i] = materialToResponse(&mats[i])
	}
	return out
}
