package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/model"
	"github.com/JaroldEnderez/Vanity/internal/pricing"
	"github.com/JaroldEnderez/Vanity/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("vanity/service")

// StockAlertDispatcher is notified after stock was deducted so that low-stock
// alerts can be evaluated off the request path. worker.Dispatcher satisfies it.
type StockAlertDispatcher interface {
	EnqueueStockAlert(ctx context.Context, materialIDs []uuid.UUID, referenceID *uuid.UUID) error
}

// SessionService is the session lifecycle engine. Every operation is scoped
// to the caller's branch: a session of another branch is reported as not found.
type SessionService interface {
	Create(ctx context.Context, branchID uuid.UUID, req dto.CreateSessionRequest) (*dto.SessionResponse, error)
	Get(ctx context.Context, branchID, id uuid.UUID) (*dto.SessionResponse, error)
	ListDrafts(ctx context.Context, branchID uuid.UUID) ([]dto.SessionResponse, error)
	ListSales(ctx context.Context, branchID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error)

	UpdateMeta(ctx context.Context, branchID, id uuid.UUID, req dto.UpdateSessionRequest) (*dto.SessionResponse, error)
	AddLineItem(ctx context.Context, branchID, id uuid.UUID, req dto.AddItemRequest) (*dto.SessionResponse, error)
	RemoveLineItem(ctx context.Context, branchID, id, itemID uuid.UUID) (*dto.SessionResponse, error)
	UpdateMaterialQuantity(ctx context.Context, branchID, id, materialID uuid.UUID, req dto.UpdateMaterialRequest) (*dto.SessionResponse, error)

	Checkout(ctx context.Context, branchID, id uuid.UUID, req dto.CheckoutRequest) (*dto.SessionResponse, error)
	Cancel(ctx context.Context, branchID, id uuid.UUID) (*dto.SessionResponse, error)
	Delete(ctx context.Context, branchID, id uuid.UUID) error
}

type sessionService struct {
	repo      repository.SessionRepository
	catalog   repository.CatalogRepository
	materials repository.MaterialRepository
	ledger    InventoryService
	alerts    StockAlertDispatcher
	now       func() time.Time
}

// NewSessionService wires the engine. alerts may be nil.
func NewSessionService(
	repo repository.SessionRepository,
	catalog repository.CatalogRepository,
	materials repository.MaterialRepository,
	ledger InventoryService,
	alerts StockAlertDispatcher,
) SessionService {
	return &sessionService{
		repo:      repo,
		catalog:   catalog,
		materials: materials,
		ledger:    ledger,
		alerts:    alerts,
		now:       time.Now,
	}
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *sessionService) Get(ctx context.Context, branchID, id uuid.UUID) (*dto.SessionResponse, error) {
	sale, err := s.repo.FindByID(ctx, nil, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sale.BranchID != branchID {
		return nil, ErrSessionNotFound
	}
	return saleToResponse(sale), nil
}

func (s *sessionService) ListDrafts(ctx context.Context, branchID uuid.UUID) ([]dto.SessionResponse, error) {
	sales, err := s.repo.ListDrafts(ctx, branchID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SessionResponse, len(sales))
	for i := range sales {
		out[i] = *saleToResponse(&sales[i])
	}
	return out, nil
}

func (s *sessionService) ListSales(ctx context.Context, branchID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	sales, total, err := s.repo.ListFinalized(ctx, branchID, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SessionResponse, len(sales))
	for i := range sales {
		data[i] = *saleToResponse(&sales[i])
	}
	return &dto.SaleListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── CreateSession ────────────────────────────────────────────────────────────

func (s *sessionService) Create(ctx context.Context, branchID uuid.UUID, req dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	staffID, err := parseUUID("staff_id", req.StaffID)
	if err != nil {
		return nil, err
	}
	if err := s.checkStaff(ctx, branchID, staffID); err != nil {
		return nil, err
	}

	sale := &model.Sale{
		BranchID: branchID,
		StaffID:  staffID,
		Name:     trimmedName(req.Name),
		Status:   model.SaleStatusDraft,
	}
	if req.CustomerID != nil {
		cid, err := s.checkCustomer(ctx, *req.CustomerID)
		if err != nil {
			return nil, err
		}
		sale.CustomerID = &cid
	}

	if err := s.repo.Create(ctx, nil, sale); err != nil {
		return nil, s.persistenceFailure("create", sale.ID, err)
	}
	log.Debug().Str("session_id", sale.ID.String()).Str("branch_id", branchID.String()).Msg("session created")
	return s.Get(ctx, branchID, sale.ID)
}

// ── UpdateSessionMeta ────────────────────────────────────────────────────────

func (s *sessionService) UpdateMeta(ctx context.Context, branchID, id uuid.UUID, req dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = trimmedName(req.Name)
	}
	if req.StaffID != nil {
		staffID, err := parseUUID("staff_id", *req.StaffID)
		if err != nil {
			return nil, err
		}
		if err := s.checkStaff(ctx, branchID, staffID); err != nil {
			return nil, err
		}
		fields["staff_id"] = staffID
	}
	if req.CustomerID != nil {
		if *req.CustomerID == "" {
			fields["customer_id"] = nil
		} else {
			cid, err := s.checkCustomer(ctx, *req.CustomerID)
			if err != nil {
				return nil, err
			}
			fields["customer_id"] = cid
		}
	}

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.lockDraft(ctx, tx, branchID, id); err != nil {
			return err
		}
		return s.repo.UpdateMeta(ctx, tx, id, fields)
	})
	if err != nil {
		return nil, s.persistenceFailure("update", id, err)
	}
	return s.Get(ctx, branchID, id)
}

// ── AddLineItem ──────────────────────────────────────────────────────────────

func (s *sessionService) AddLineItem(ctx context.Context, branchID, id uuid.UUID, req dto.AddItemRequest) (*dto.SessionResponse, error) {
	if req.Qty < 1 {
		return nil, invalid("qty must be at least 1")
	}
	if req.Price == nil || req.Price.IsNegative() {
		return nil, invalid("price must be zero or positive")
	}
	serviceID, err := parseUUID("service_id", req.ServiceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.FindService(ctx, nil, serviceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("service not found")
		}
		return nil, err
	}
	usages, err := s.resolveUsages(ctx, req.Materials)
	if err != nil {
		return nil, err
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.lockDraft(ctx, tx, branchID, id); err != nil {
			return err
		}
		item := &model.SaleService{
			SaleID:    id,
			ServiceID: serviceID,
			Qty:       req.Qty,
			Price:     *req.Price,
		}
		if err := s.repo.CreateLineItem(ctx, tx, item); err != nil {
			return err
		}
		for i := range usages {
			usages[i].SaleID = id
			usages[i].SaleServiceID = &item.ID
		}
		if err := s.repo.CreateMaterialUsages(ctx, tx, usages); err != nil {
			return err
		}
		_, err := s.recompute(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, s.persistenceFailure("add item", id, err)
	}
	return s.Get(ctx, branchID, id)
}

// ── RemoveLineItem ───────────────────────────────────────────────────────────

func (s *sessionService) RemoveLineItem(ctx context.Context, branchID, id, itemID uuid.UUID) (*dto.SessionResponse, error) {
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.lockDraft(ctx, tx, branchID, id); err != nil {
			return err
		}
		item, err := s.repo.FindLineItem(ctx, tx, id, itemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLineItemNotFound
		}
		if err != nil {
			return err
		}

		if _, err := s.repo.DeleteMaterialUsagesForItem(ctx, tx, id, item.ID); err != nil {
			return err
		}
		// Rows written before usages were linked to their line item are
		// matched through the service recipe instead.
		recipe, err := s.catalog.FindRecipe(ctx, tx, item.ServiceID)
		if err != nil {
			return err
		}
		materialIDs := make([]uuid.UUID, 0, len(recipe))
		for _, r := range recipe {
			materialIDs = append(materialIDs, r.MaterialID)
		}
		if _, err := s.repo.DeleteUnlinkedMaterialUsages(ctx, tx, id, materialIDs); err != nil {
			return err
		}

		if err := s.repo.DeleteLineItem(ctx, tx, item.ID); err != nil {
			return err
		}
		_, err = s.recompute(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, s.persistenceFailure("remove item", id, err)
	}
	return s.Get(ctx, branchID, id)
}

// ── UpdateMaterialQuantity ───────────────────────────────────────────────────

// UpdateMaterialQuantity edits one usage row in place. Quantities below 1 are
// clamped to 1; a material with no usage row in the session is a no-op.
// Totals are not affected because materials carry no price.
func (s *sessionService) UpdateMaterialQuantity(ctx context.Context, branchID, id, materialID uuid.UUID, req dto.UpdateMaterialRequest) (*dto.SessionResponse, error) {
	if req.Quantity.IsNegative() {
		return nil, invalid("quantity must not be negative")
	}
	qty := ClampMaterialQuantity(req.Quantity)

	var itemID *uuid.UUID
	if req.LineItemID != nil && *req.LineItemID != "" {
		parsed, err := parseUUID("line_item_id", *req.LineItemID)
		if err != nil {
			return nil, err
		}
		itemID = &parsed
	}

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.lockDraft(ctx, tx, branchID, id); err != nil {
			return err
		}
		usage, err := s.repo.FindMaterialUsage(ctx, tx, id, materialID, itemID)
		if err != nil {
			return err
		}
		if usage == nil {
			return nil
		}
		return s.repo.UpdateMaterialUsageQty(ctx, tx, usage.ID, qty)
	})
	if err != nil {
		return nil, s.persistenceFailure("update material", id, err)
	}
	return s.Get(ctx, branchID, id)
}

// ClampMaterialQuantity applies the floor of 1 to an edited material quantity.
func ClampMaterialQuantity(q decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if q.LessThan(one) {
		return one
	}
	return q
}

// ── Checkout ─────────────────────────────────────────────────────────────────
// One transaction:
//   1. claim the DRAFT row (conditional update)
//   2. reload items and add-ons, recompute totals
//   3. change = cash − total when cash was given
//   4. deduct stock: one update per material, one OUT movement per usage row
//   5. flip to COMPLETED only if still DRAFT
// Any failure rolls everything back.

func (s *sessionService) Checkout(ctx context.Context, branchID, id uuid.UUID, req dto.CheckoutRequest) (*dto.SessionResponse, error) {
	if req.CashReceived != nil && req.CashReceived.IsNegative() {
		return nil, invalid("cash_received must not be negative")
	}

	ctx, span := tracer.Start(ctx, "session.checkout", trace.WithAttributes(
		attribute.String("session.id", id.String()),
		attribute.String("branch.id", branchID.String()),
	))
	defer span.End()

	var (
		deducted []uuid.UUID
		sale     *model.Sale
	)
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.lockDraft(ctx, tx, branchID, id); err != nil {
			return err
		}
		totals, err := s.recompute(ctx, tx, id)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if req.CashReceived != nil {
			fields["cash_received"] = *req.CashReceived
			fields["change_given"] = pricing.Change(*req.CashReceived, totals.Total)
		}

		usages, err := s.repo.ListMaterialUsages(ctx, tx, id)
		if err != nil {
			return err
		}
		deducted, err = s.ledger.DeductForCheckout(ctx, tx, id, usages)
		if err != nil {
			return fmt.Errorf("deduct stock: %w", err)
		}

		ok, err := s.repo.Finalize(ctx, tx, id, model.SaleStatusCompleted, s.now(), fields)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSessionNotDraft
		}
		// loaded before commit; nothing after the commit can fail the call
		sale, err = s.repo.FindByID(ctx, tx, id)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.persistenceFailure("checkout", id, err)
	}
	span.SetAttributes(attribute.Int("materials.deducted", len(deducted)))

	log.Info().Str("session_id", id.String()).Int("materials", len(deducted)).Msg("session checked out")

	// Best effort: alert evaluation never affects the sale.
	if s.alerts != nil && len(deducted) > 0 {
		ref := id
		if err := s.alerts.EnqueueStockAlert(ctx, deducted, &ref); err != nil {
			log.Warn().Err(err).Str("session_id", id.String()).Msg("stock alert enqueue failed")
		}
	}
	return saleToResponse(sale), nil
}

// ── Cancel ───────────────────────────────────────────────────────────────────

func (s *sessionService) Cancel(ctx context.Context, branchID, id uuid.UUID) (*dto.SessionResponse, error) {
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.lockDraft(ctx, tx, branchID, id); err != nil {
			return err
		}
		ok, err := s.repo.Finalize(ctx, tx, id, model.SaleStatusCancelled, s.now(), nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSessionNotDraft
		}
		return nil
	})
	if err != nil {
		return nil, s.persistenceFailure("cancel", id, err)
	}
	return s.Get(ctx, branchID, id)
}

// ── DeleteSession ────────────────────────────────────────────────────────────

func (s *sessionService) Delete(ctx context.Context, branchID, id uuid.UUID) error {
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		err := s.lockDraft(ctx, tx, branchID, id)
		if errors.Is(err, ErrSessionNotDraft) {
			return ErrCannotDeleteFinalized
		}
		if err != nil {
			return err
		}
		ok, err := s.repo.DeleteDraft(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCannotDeleteFinalized
		}
		return nil
	})
	if err != nil {
		return s.persistenceFailure("delete", id, err)
	}
	log.Debug().Str("session_id", id.String()).Msg("session deleted")
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// lockDraft claims the session for the current transaction and classifies a
// miss as not found (absent or other branch) or not draft.
func (s *sessionService) lockDraft(ctx context.Context, tx *gorm.DB, branchID, id uuid.UUID) error {
	ok, err := s.repo.TouchDraft(ctx, tx, id, branchID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	sale, err := s.repo.FindHeader(ctx, tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if sale.BranchID != branchID {
		return ErrSessionNotFound
	}
	if !sale.Status.IsTerminal() {
		return fmt.Errorf("draft session %s could not be claimed", id)
	}
	return ErrSessionNotDraft
}

// recompute derives the totals from the full persisted set of line items and
// add-ons and stores them.
func (s *sessionService) recompute(ctx context.Context, tx *gorm.DB, id uuid.UUID) (pricing.Totals, error) {
	items, err := s.repo.ListLineItems(ctx, tx, id)
	if err != nil {
		return pricing.Totals{}, err
	}
	addOns, err := s.repo.ListAddOns(ctx, tx, id)
	if err != nil {
		return pricing.Totals{}, err
	}

	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{Price: it.Price, Qty: it.Qty}
	}
	extras := make([]decimal.Decimal, len(addOns))
	for i, a := range addOns {
		extras[i] = a.Price
	}

	totals := pricing.Calculate(lines, extras)
	if err := s.repo.UpdateTotals(ctx, tx, id, totals.BasePrice, totals.AddOnsTotal, totals.Total); err != nil {
		return pricing.Totals{}, err
	}
	return totals, nil
}

func (s *sessionService) resolveUsages(ctx context.Context, reqs []dto.MaterialUsageRequest) ([]model.SaleMaterial, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(reqs))
	seen := make(map[uuid.UUID]bool, len(reqs))
	rows := make([]model.SaleMaterial, 0, len(reqs))
	for _, m := range reqs {
		mid, err := parseUUID("material_id", m.MaterialID)
		if err != nil {
			return nil, err
		}
		if m.Quantity.IsNegative() {
			return nil, invalid("material quantity must not be negative")
		}
		if !seen[mid] {
			seen[mid] = true
			ids = append(ids, mid)
		}
		rows = append(rows, model.SaleMaterial{MaterialID: mid, Quantity: m.Quantity})
	}
	found, err := s.materials.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, invalid("material not found")
	}
	return rows, nil
}

func (s *sessionService) checkStaff(ctx context.Context, branchID, staffID uuid.UUID) error {
	staff, err := s.catalog.FindStaff(ctx, nil, staffID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalid("staff not found")
	}
	if err != nil {
		return err
	}
	if staff.BranchID != branchID {
		return invalid("staff does not belong to this branch")
	}
	return nil
}

func (s *sessionService) checkCustomer(ctx context.Context, raw string) (uuid.UUID, error) {
	cid, err := parseUUID("customer_id", raw)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := s.catalog.FindCustomer(ctx, nil, cid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, invalid("customer not found")
		}
		return uuid.Nil, err
	}
	return cid, nil
}

// persistenceFailure logs errors that are not part of the domain vocabulary.
// Domain errors pass through untouched.
func (s *sessionService) persistenceFailure(op string, id uuid.UUID, err error) error {
	if isDomainError(err) {
		return err
	}
	log.Error().Err(err).Str("op", op).Str("session_id", id.String()).Msg("session persistence failure")
	return fmt.Errorf("%s session: %w", op, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrSessionNotFound, ErrSessionNotDraft, ErrCannotDeleteFinalized,
		ErrLineItemNotFound, ErrMaterialNotFound, ErrValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func trimmedName(name *string) *string {
	if name == nil {
		return nil
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		return nil
	}
	return &n
}
