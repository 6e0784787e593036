package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/model"
	"github.com/JaroldEnderez/Vanity/internal/repository"
	"github.com/JaroldEnderez/Vanity/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── test helpers ─────────────────────────────────────────────────────────────

type recordingAlerts struct {
	mu    sync.Mutex
	calls [][]uuid.UUID
	err   error
}

func (r *recordingAlerts) EnqueueStockAlert(_ context.Context, ids []uuid.UUID, _ *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ids)
	return r.err
}

// failingMovements wraps the real movement repository and fails CreateTx.
type failingMovements struct {
	repository.MovementRepository
}

func (failingMovements) CreateTx(context.Context, *gorm.DB, []model.InventoryMovement) error {
	return errors.New("disk full")
}

type engine struct {
	db     *gorm.DB
	f      *testutil.Fixture
	svc    SessionService
	alerts *recordingAlerts
}

func newEngine(t *testing.T) *engine {
	return newEngineWith(t, nil)
}

func newEngineWith(t *testing.T, movements repository.MovementRepository) *engine {
	t.Helper()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	if movements == nil {
		movements = repository.NewMovementRepository(db)
	}
	materials := repository.NewMaterialRepository(db)
	alerts := &recordingAlerts{}
	ledger := NewInventoryService(materials, movements, nil, decimal.NewFromInt(500))
	svc := NewSessionService(
		repository.NewSessionRepository(db),
		repository.NewCatalogRepository(db),
		materials,
		ledger,
		alerts,
	)
	return &engine{db: db, f: f, svc: svc, alerts: alerts}
}

func (e *engine) create(t *testing.T) *dto.SessionResponse {
	t.Helper()
	s, err := e.svc.Create(context.Background(), e.f.Branch.ID, dto.CreateSessionRequest{StaffID: e.f.Staff.ID.String()})
	require.NoError(t, err)
	return s
}

func (e *engine) addHaircut(t *testing.T, id string, price string) *dto.SessionResponse {
	t.Helper()
	p := decimal.RequireFromString(price)
	s, err := e.svc.AddLineItem(context.Background(), e.f.Branch.ID, uuid.MustParse(id), dto.AddItemRequest{
		ServiceID: e.f.Haircut.ID.String(), Qty: 1, Price: &p,
	})
	require.NoError(t, err)
	return s
}

func (e *engine) addRebond(t *testing.T, id string, cream, neutralizer string) *dto.SessionResponse {
	t.Helper()
	p := decimal.RequireFromString("1500")
	s, err := e.svc.AddLineItem(context.Background(), e.f.Branch.ID, uuid.MustParse(id), dto.AddItemRequest{
		ServiceID: e.f.Rebond.ID.String(), Qty: 1, Price: &p,
		Materials: []dto.MaterialUsageRequest{
			{MaterialID: e.f.Cream.ID.String(), Quantity: decimal.RequireFromString(cream)},
			{MaterialID: e.f.Neutralizer.ID.String(), Quantity: decimal.RequireFromString(neutralizer)},
		},
	})
	require.NoError(t, err)
	return s
}

func assertTotalsInvariant(t *testing.T, s *dto.SessionResponse) {
	t.Helper()
	base := decimal.Zero
	for _, it := range s.Items {
		base = base.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	extras := decimal.Zero
	for _, a := range s.AddOns {
		extras = extras.Add(a.Price)
	}
	assert.True(t, s.BasePrice.Equal(base), "base %s != Σ items %s", s.BasePrice, base)
	assert.True(t, s.AddOnsTotal.Equal(extras), "add-ons %s != Σ add-ons %s", s.AddOnsTotal, extras)
	assert.True(t, s.Total.Equal(s.BasePrice.Add(s.AddOnsTotal)), "total %s != base+add-ons", s.Total)
}

func ctx() context.Context { return context.Background() }

// ── Scenarios ────────────────────────────────────────────────────────────────

func TestCheckout_HaircutWithoutMaterials(t *testing.T) {
	e := newEngine(t)

	s := e.create(t)
	assert.Equal(t, "DRAFT", s.Status)
	assert.True(t, s.Total.IsZero())

	s = e.addHaircut(t, s.ID, "250")
	assert.Equal(t, "250", s.Total.String())
	assertTotalsInvariant(t, s)

	done, err := e.svc.Checkout(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", done.Status)
	assert.Equal(t, "250", done.Total.String())
	assert.NotNil(t, done.EndedAt)

	assert.Equal(t, "5000", testutil.Stock(t, e.db, e.f.Cream).String())
	assert.Equal(t, "3000", testutil.Stock(t, e.db, e.f.Neutralizer).String())
	assert.Empty(t, e.alerts.calls)
}

func TestCheckout_DeductsMaterialsAndRecordsMovements(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addRebond(t, s.ID, "50", "30")

	_, err := e.svc.Checkout(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.CheckoutRequest{})
	require.NoError(t, err)

	assert.Equal(t, "4950", testutil.Stock(t, e.db, e.f.Cream).String())
	assert.Equal(t, "2970", testutil.Stock(t, e.db, e.f.Neutralizer).String())

	creamMoves := testutil.Movements(t, e.db, e.f.Cream)
	require.Len(t, creamMoves, 1)
	assert.Equal(t, model.MovementOut, creamMoves[0].Type)
	assert.Equal(t, "50", creamMoves[0].Quantity.String())
	require.NotNil(t, creamMoves[0].ReferenceID)
	assert.Equal(t, s.ID, creamMoves[0].ReferenceID.String())

	neutMoves := testutil.Movements(t, e.db, e.f.Neutralizer)
	require.Len(t, neutMoves, 1)
	assert.Equal(t, "30", neutMoves[0].Quantity.String())

	require.Len(t, e.alerts.calls, 1)
	assert.ElementsMatch(t, []uuid.UUID{e.f.Cream.ID, e.f.Neutralizer.ID}, e.alerts.calls[0])
}

func TestRemoveLineItem_OnlyItemResetsTotalsAndUsages(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	s = e.addRebond(t, s.ID, "50", "30")
	require.Len(t, s.Items, 1)
	require.Len(t, s.Materials, 2)

	s, err := e.svc.RemoveLineItem(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), uuid.MustParse(s.Items[0].ID))
	require.NoError(t, err)
	assert.True(t, s.BasePrice.IsZero())
	assert.True(t, s.Total.IsZero())
	assert.Empty(t, s.Items)
	assert.Empty(t, s.Materials)
}

func TestCancel_LeavesStockAndBlocksCheckout(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addRebond(t, s.ID, "50", "30")
	id := uuid.MustParse(s.ID)

	cancelled, err := e.svc.Cancel(ctx(), e.f.Branch.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.NotNil(t, cancelled.EndedAt)
	assert.Equal(t, "5000", testutil.Stock(t, e.db, e.f.Cream).String())

	_, err = e.svc.Checkout(ctx(), e.f.Branch.ID, id, dto.CheckoutRequest{})
	assert.ErrorIs(t, err, ErrSessionNotDraft)
	assert.Equal(t, "session is already completed or cancelled", err.Error())
	assert.Equal(t, "5000", testutil.Stock(t, e.db, e.f.Cream).String())
}

func TestCheckout_RecordsChange(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addHaircut(t, s.ID, "250")

	cash := decimal.NewFromInt(300)
	done, err := e.svc.Checkout(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.CheckoutRequest{CashReceived: &cash})
	require.NoError(t, err)
	require.NotNil(t, done.CashReceived)
	require.NotNil(t, done.ChangeGiven)
	assert.Equal(t, "300", done.CashReceived.String())
	assert.Equal(t, "50", done.ChangeGiven.String())

	var stored model.Sale
	require.NoError(t, e.db.Where("id = ?", s.ID).Take(&stored).Error)
	require.NotNil(t, stored.ChangeGiven)
	assert.Equal(t, "50", stored.ChangeGiven.String())
}

func TestCheckout_InsufficientCashRecordsNegativeChange(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addHaircut(t, s.ID, "250")

	cash := decimal.NewFromInt(200)
	done, err := e.svc.Checkout(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.CheckoutRequest{CashReceived: &cash})
	require.NoError(t, err)
	assert.Equal(t, "-50", done.ChangeGiven.String())
}

// ── Properties ───────────────────────────────────────────────────────────────

func TestTotalsInvariant_AfterEveryMutation(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	assertTotalsInvariant(t, s)

	s = e.addHaircut(t, s.ID, "250")
	assertTotalsInvariant(t, s)

	p := decimal.RequireFromString("120.50")
	s, err := e.svc.AddLineItem(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.AddItemRequest{
		ServiceID: e.f.Haircut.ID.String(), Qty: 2, Price: &p,
	})
	require.NoError(t, err)
	assertTotalsInvariant(t, s)
	assert.Equal(t, "491", s.Total.String())

	// An add-on row written directly is picked up by the next recompute.
	require.NoError(t, e.db.Create(&model.SaleAddOn{
		SaleID: uuid.MustParse(s.ID), AddOnID: e.f.AddOn.ID, Price: decimal.NewFromInt(80),
	}).Error)

	s, err = e.svc.RemoveLineItem(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), uuid.MustParse(s.Items[0].ID))
	require.NoError(t, err)
	assertTotalsInvariant(t, s)
	assert.Equal(t, "241", s.BasePrice.String())
	assert.Equal(t, "80", s.AddOnsTotal.String())
	assert.Equal(t, "321", s.Total.String())
}

func TestCheckout_SecondCheckoutFailsWithoutExtraDeduction(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addRebond(t, s.ID, "50", "30")
	id := uuid.MustParse(s.ID)

	_, err := e.svc.Checkout(ctx(), e.f.Branch.ID, id, dto.CheckoutRequest{})
	require.NoError(t, err)

	_, err = e.svc.Checkout(ctx(), e.f.Branch.ID, id, dto.CheckoutRequest{})
	assert.ErrorIs(t, err, ErrSessionNotDraft)
	assert.Equal(t, "4950", testutil.Stock(t, e.db, e.f.Cream).String())
	assert.Len(t, testutil.Movements(t, e.db, e.f.Cream), 1)
}

func TestCheckout_ConcurrentAttemptsDeductOnce(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addRebond(t, s.ID, "50", "30")
	id := uuid.MustParse(s.ID)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.Checkout(ctx(), e.f.Branch.ID, id, dto.CheckoutRequest{})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrSessionNotDraft)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "4950", testutil.Stock(t, e.db, e.f.Cream).String())
}

func TestCheckout_AggregatesSameMaterialAcrossItems(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addRebond(t, s.ID, "3", "1")
	e.addRebond(t, s.ID, "5", "1")

	_, err := e.svc.Checkout(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.CheckoutRequest{})
	require.NoError(t, err)

	assert.Equal(t, "4992", testutil.Stock(t, e.db, e.f.Cream).String())
	moves := testutil.Movements(t, e.db, e.f.Cream)
	require.Len(t, moves, 2)
	sum := decimal.Zero
	for _, m := range moves {
		sum = sum.Add(m.Quantity)
	}
	assert.Equal(t, "8", sum.String())
}

func TestCheckout_RollsBackWhenMovementWriteFails(t *testing.T) {
	e := newEngineWith(t, failingMovements{})
	s := e.create(t)
	e.addRebond(t, s.ID, "50", "30")
	id := uuid.MustParse(s.ID)

	_, err := e.svc.Checkout(ctx(), e.f.Branch.ID, id, dto.CheckoutRequest{})
	require.Error(t, err)
	assert.False(t, isDomainError(err))

	assert.Equal(t, "5000", testutil.Stock(t, e.db, e.f.Cream).String())
	assert.Equal(t, "3000", testutil.Stock(t, e.db, e.f.Neutralizer).String())
	assert.Empty(t, testutil.Movements(t, e.db, e.f.Cream))

	got, err := e.svc.Get(ctx(), e.f.Branch.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", got.Status)
	assert.Nil(t, got.EndedAt)
	assert.Empty(t, e.alerts.calls)
}

func TestAddLineItem_PriceIsSnapshot(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	s = e.addHaircut(t, s.ID, "199")

	require.NoError(t, e.db.Model(&model.Service{}).Where("id = ?", e.f.Haircut.ID).
		Update("price", decimal.NewFromInt(999)).Error)

	done, err := e.svc.Checkout(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "199", done.Items[0].Price.String())
	assert.Equal(t, "199", done.Total.String())
}

func TestTerminalSessionsRejectMutations(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	s = e.addRebond(t, s.ID, "50", "30")
	id := uuid.MustParse(s.ID)
	_, err := e.svc.Checkout(ctx(), e.f.Branch.ID, id, dto.CheckoutRequest{})
	require.NoError(t, err)

	p := decimal.NewFromInt(10)
	name := "late edit"
	_, err = e.svc.AddLineItem(ctx(), e.f.Branch.ID, id, dto.AddItemRequest{ServiceID: e.f.Haircut.ID.String(), Qty: 1, Price: &p})
	assert.ErrorIs(t, err, ErrSessionNotDraft)
	_, err = e.svc.RemoveLineItem(ctx(), e.f.Branch.ID, id, uuid.MustParse(s.Items[0].ID))
	assert.ErrorIs(t, err, ErrSessionNotDraft)
	_, err = e.svc.UpdateMaterialQuantity(ctx(), e.f.Branch.ID, id, e.f.Cream.ID, dto.UpdateMaterialRequest{Quantity: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, ErrSessionNotDraft)
	_, err = e.svc.UpdateMeta(ctx(), e.f.Branch.ID, id, dto.UpdateSessionRequest{Name: &name})
	assert.ErrorIs(t, err, ErrSessionNotDraft)
	_, err = e.svc.Cancel(ctx(), e.f.Branch.ID, id)
	assert.ErrorIs(t, err, ErrSessionNotDraft)
	assert.ErrorIs(t, e.svc.Delete(ctx(), e.f.Branch.ID, id), ErrCannotDeleteFinalized)

	got, err := e.svc.Get(ctx(), e.f.Branch.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", got.Status)
	assert.Len(t, got.Items, 1)
}

// ── Operations ───────────────────────────────────────────────────────────────

func TestSessionsAreBranchScoped(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	id := uuid.MustParse(s.ID)

	_, err := e.svc.Get(ctx(), e.f.OtherBranch.ID, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = e.svc.Checkout(ctx(), e.f.OtherBranch.ID, id, dto.CheckoutRequest{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, e.svc.Delete(ctx(), e.f.OtherBranch.ID, id), ErrSessionNotFound)

	drafts, err := e.svc.ListDrafts(ctx(), e.f.OtherBranch.ID)
	require.NoError(t, err)
	assert.Empty(t, drafts)
	drafts, err = e.svc.ListDrafts(ctx(), e.f.Branch.ID)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestCreate_RejectsStaffOfAnotherBranch(t *testing.T) {
	e := newEngine(t)
	_, err := e.svc.Create(ctx(), e.f.Branch.ID, dto.CreateSessionRequest{StaffID: e.f.OtherStaff.ID.String()})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUnknownSession(t *testing.T) {
	e := newEngine(t)
	_, err := e.svc.Cancel(ctx(), e.f.Branch.ID, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdateMeta(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	name := "  Walk-in  "
	cid := e.f.Customer.ID.String()

	got, err := e.svc.UpdateMeta(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.UpdateSessionRequest{Name: &name, CustomerID: &cid})
	require.NoError(t, err)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Walk-in", *got.Name)
	require.NotNil(t, got.CustomerName)
	assert.Equal(t, "Ana", *got.CustomerName)

	empty := ""
	got, err = e.svc.UpdateMeta(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.UpdateSessionRequest{CustomerID: &empty})
	require.NoError(t, err)
	assert.Nil(t, got.CustomerID)
	assert.NotNil(t, got.Name)
}

func TestUpdateMaterialQuantity(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	s = e.addRebond(t, s.ID, "50", "30")
	id := uuid.MustParse(s.ID)

	got, err := e.svc.UpdateMaterialQuantity(ctx(), e.f.Branch.ID, id, e.f.Cream.ID, dto.UpdateMaterialRequest{Quantity: decimal.NewFromInt(70)})
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(s.Total), "material edits never touch totals")
	assert.Equal(t, "70", usageQty(got, e.f.Cream.ID))

	got, err = e.svc.UpdateMaterialQuantity(ctx(), e.f.Branch.ID, id, e.f.Cream.ID, dto.UpdateMaterialRequest{Quantity: decimal.Zero})
	require.NoError(t, err)
	assert.Equal(t, "1", usageQty(got, e.f.Cream.ID), "clamped to 1")

	_, err = e.svc.UpdateMaterialQuantity(ctx(), e.f.Branch.ID, id, e.f.Cream.ID, dto.UpdateMaterialRequest{Quantity: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, ErrValidation)

	// A material the session does not use is a no-op.
	got, err = e.svc.UpdateMaterialQuantity(ctx(), e.f.Branch.ID, id, uuid.New(), dto.UpdateMaterialRequest{Quantity: decimal.NewFromInt(9)})
	require.NoError(t, err)
	assert.Len(t, got.Materials, 2)
}

func TestUpdateMaterialQuantity_TargetsLineItem(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addRebond(t, s.ID, "50", "30")
	s = e.addRebond(t, s.ID, "40", "20")
	second := s.Items[1].ID

	got, err := e.svc.UpdateMaterialQuantity(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), e.f.Cream.ID,
		dto.UpdateMaterialRequest{Quantity: decimal.NewFromInt(45), LineItemID: &second})
	require.NoError(t, err)

	var quantities []string
	for _, m := range got.Materials {
		if m.MaterialID == e.f.Cream.ID.String() {
			quantities = append(quantities, m.Quantity.String())
		}
	}
	assert.Equal(t, []string{"50", "45"}, quantities)
}

func TestRemoveLineItem_SameServiceTwiceKeepsOtherUsages(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addRebond(t, s.ID, "50", "30")
	s = e.addRebond(t, s.ID, "40", "20")

	got, err := e.svc.RemoveLineItem(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), uuid.MustParse(s.Items[0].ID))
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Len(t, got.Materials, 2)
	assert.Equal(t, "40", usageQty(got, e.f.Cream.ID))
	assert.Equal(t, "20", usageQty(got, e.f.Neutralizer.ID))
}

func TestRemoveLineItem_UnlinkedUsagesMatchedByRecipe(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	s = e.addRebond(t, s.ID, "50", "30")
	// Simulate rows written before usages were linked to line items.
	require.NoError(t, e.db.Model(&model.SaleMaterial{}).Where("sale_id = ?", s.ID).
		Update("sale_service_id", nil).Error)

	got, err := e.svc.RemoveLineItem(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), uuid.MustParse(s.Items[0].ID))
	require.NoError(t, err)
	assert.Empty(t, got.Materials)
}

func TestRemoveLineItem_UnknownItem(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	_, err := e.svc.RemoveLineItem(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), uuid.New())
	assert.ErrorIs(t, err, ErrLineItemNotFound)
}

func TestDelete_CascadesDraft(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addRebond(t, s.ID, "50", "30")
	id := uuid.MustParse(s.ID)

	require.NoError(t, e.svc.Delete(ctx(), e.f.Branch.ID, id))

	_, err := e.svc.Get(ctx(), e.f.Branch.ID, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	var n int64
	require.NoError(t, e.db.Model(&model.SaleMaterial{}).Where("sale_id = ?", id).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, e.db.Model(&model.SaleService{}).Where("sale_id = ?", id).Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, "5000", testutil.Stock(t, e.db, e.f.Cream).String())
}

func TestAddLineItem_Validation(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	id := uuid.MustParse(s.ID)
	p := decimal.NewFromInt(100)
	neg := decimal.NewFromInt(-1)

	_, err := e.svc.AddLineItem(ctx(), e.f.Branch.ID, id, dto.AddItemRequest{ServiceID: e.f.Haircut.ID.String(), Qty: 0, Price: &p})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.svc.AddLineItem(ctx(), e.f.Branch.ID, id, dto.AddItemRequest{ServiceID: e.f.Haircut.ID.String(), Qty: 1, Price: &neg})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.svc.AddLineItem(ctx(), e.f.Branch.ID, id, dto.AddItemRequest{ServiceID: uuid.NewString(), Qty: 1, Price: &p})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.svc.AddLineItem(ctx(), e.f.Branch.ID, id, dto.AddItemRequest{
		ServiceID: e.f.Haircut.ID.String(), Qty: 1, Price: &p,
		Materials: []dto.MaterialUsageRequest{{MaterialID: uuid.NewString(), Quantity: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := e.svc.Get(ctx(), e.f.Branch.ID, id)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestListSales_ReturnsFinalizedOnly(t *testing.T) {
	e := newEngine(t)
	a := e.create(t)
	e.addHaircut(t, a.ID, "250")
	_, err := e.svc.Checkout(ctx(), e.f.Branch.ID, uuid.MustParse(a.ID), dto.CheckoutRequest{})
	require.NoError(t, err)
	b := e.create(t)
	_, err = e.svc.Cancel(ctx(), e.f.Branch.ID, uuid.MustParse(b.ID))
	require.NoError(t, err)
	e.create(t)

	completed, err := e.svc.ListSales(ctx(), e.f.Branch.ID, dto.SaleFilter{Status: "COMPLETED", Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed.Total)
	assert.Equal(t, a.ID, completed.Data[0].ID)

	all, err := e.svc.ListSales(ctx(), e.f.Branch.ID, dto.SaleFilter{Status: "all", Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
}

// reloadFailsOutsideTx fails every FindByID issued after the transaction.
type reloadFailsOutsideTx struct {
	repository.SessionRepository
}

func (r reloadFailsOutsideTx) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	if tx == nil {
		return nil, errors.New("connection reset")
	}
	return r.SessionRepository.FindByID(ctx, tx, id)
}

// unclaimableDrafts never matches the conditional DRAFT update.
type unclaimableDrafts struct {
	repository.SessionRepository
}

func (unclaimableDrafts) TouchDraft(context.Context, *gorm.DB, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

// withSessionRepo rebuilds the engine's service on top of wrap(repo).
func (e *engine) withSessionRepo(wrap func(repository.SessionRepository) repository.SessionRepository) {
	materials := repository.NewMaterialRepository(e.db)
	ledger := NewInventoryService(materials, repository.NewMovementRepository(e.db), nil, decimal.NewFromInt(500))
	e.svc = NewSessionService(
		wrap(repository.NewSessionRepository(e.db)),
		repository.NewCatalogRepository(e.db),
		materials,
		ledger,
		e.alerts,
	)
}

func TestCheckout_ResponseComesFromTheTransaction(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.addHaircut(t, s.ID, "250")
	e.withSessionRepo(func(r repository.SessionRepository) repository.SessionRepository {
		return reloadFailsOutsideTx{r}
	})

	cash := decimal.NewFromInt(300)
	got, err := e.svc.Checkout(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.CheckoutRequest{CashReceived: &cash})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", got.Status)
	assert.Equal(t, "250", got.Total.String())
	assert.Equal(t, "50", got.ChangeGiven.String())
	assert.NotNil(t, got.EndedAt)
	require.Len(t, got.Items, 1)
}

func TestCheckout_UnclaimedDraftIsNotReportedAsFinalized(t *testing.T) {
	e := newEngine(t)
	s := e.create(t)
	e.withSessionRepo(func(r repository.SessionRepository) repository.SessionRepository {
		return unclaimableDrafts{r}
	})

	_, err := e.svc.Checkout(ctx(), e.f.Branch.ID, uuid.MustParse(s.ID), dto.CheckoutRequest{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotDraft)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func usageQty(s *dto.SessionResponse, materialID uuid.UUID) string {
	for _, m := range s.Materials {
		if m.MaterialID == materialID.String() {
			return m.Quantity.String()
		}
	}
	return ""
}
