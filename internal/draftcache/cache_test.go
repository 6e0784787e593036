package draftcache

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a tiny in-memory sessions server.
type fakeAPI struct {
	mu       sync.Mutex
	sessions map[string]*dto.SessionResponse
	order    []string
	calls    []string
	nextID   int

	failures map[string]int  // transient 500s left per method
	rejects  map[string]bool // methods answered with 400
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		sessions: make(map[string]*dto.SessionResponse),
		failures: make(map[string]int),
		rejects:  make(map[string]bool),
	}
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// enter records the call and returns an injected error, if any.
func (f *fakeAPI) enter(method string) error {
	f.calls = append(f.calls, method)
	if f.rejects[method] {
		return &StatusError{Status: http.StatusBadRequest, Message: "rejected"}
	}
	if f.failures[method] > 0 {
		f.failures[method]--
		return &StatusError{Status: http.StatusInternalServerError, Message: "internal server error"}
	}
	return nil
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) snapshot(id string) (*dto.SessionResponse, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, &StatusError{Status: http.StatusNotFound, Message: "session not found"}
	}
	lines := make([]pricing.Line, len(s.Items))
	for i, it := range s.Items {
		lines[i] = pricing.Line{Price: it.Price, Qty: it.Qty}
	}
	t := pricing.Calculate(lines, nil)
	s.BasePrice, s.AddOnsTotal, s.Total = t.BasePrice, t.AddOnsTotal, t.Total
	out := copySession(*s)
	return &out, nil
}

func (f *fakeAPI) ListDrafts(_ context.Context) ([]dto.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListDrafts"); err != nil {
		return nil, err
	}
	out := make([]dto.SessionResponse, 0, len(f.order))
	for _, id := range f.order {
		if s, ok := f.sessions[id]; ok {
			out = append(out, copySession(*s))
		}
	}
	return out, nil
}

func (f *fakeAPI) Create(_ context.Context, req dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Create"); err != nil {
		return nil, err
	}
	id := f.id("sess")
	f.sessions[id] = &dto.SessionResponse{ID: id, StaffID: req.StaffID, Name: req.Name, Status: "DRAFT"}
	f.order = append(f.order, id)
	return f.snapshot(id)
}

func (f *fakeAPI) UpdateMeta(_ context.Context, id string, req dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateMeta"); err != nil {
		return nil, err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &StatusError{Status: http.StatusNotFound}
	}
	if req.Name != nil {
		s.Name = req.Name
	}
	return f.snapshot(id)
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Delete"); err != nil {
		return err
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeAPI) AddItem(_ context.Context, id string, req dto.AddItemRequest) (*dto.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("AddItem"); err != nil {
		return nil, err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &StatusError{Status: http.StatusNotFound}
	}
	item := dto.LineItemResponse{ID: f.id("item"), ServiceID: req.ServiceID, Qty: req.Qty, Price: *req.Price}
	item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Qty)))
	s.Items = append(s.Items, item)
	for _, m := range req.Materials {
		line := item.ID
		s.Materials = append(s.Materials, dto.MaterialUsageResponse{
			ID: f.id("usage"), MaterialID: m.MaterialID, LineItemID: &line, Quantity: m.Quantity,
		})
	}
	return f.snapshot(id)
}

func (f *fakeAPI) RemoveItem(_ context.Context, id, itemID string) (*dto.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RemoveItem " + itemID); err != nil {
		return nil, err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &StatusError{Status: http.StatusNotFound}
	}
	i := findItem(*s, itemID)
	if i < 0 {
		return nil, &StatusError{Status: http.StatusNotFound, Message: "line item not found"}
	}
	s.Items = append(s.Items[:i], s.Items[i+1:]...)
	kept := s.Materials[:0]
	for _, m := range s.Materials {
		if m.LineItemID == nil || *m.LineItemID != itemID {
			kept = append(kept, m)
		}
	}
	s.Materials = kept
	return f.snapshot(id)
}

func (f *fakeAPI) UpdateMaterial(_ context.Context, id, materialID string, req dto.UpdateMaterialRequest) (*dto.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateMaterial " + req.Quantity.String()); err != nil {
		return nil, err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &StatusError{Status: http.StatusNotFound}
	}
	for i := range s.Materials {
		m := &s.Materials[i]
		if m.MaterialID == materialID && (req.LineItemID == nil || (m.LineItemID != nil && *m.LineItemID == *req.LineItemID)) {
			m.Quantity = req.Quantity
			break
		}
	}
	return f.snapshot(id)
}

func (f *fakeAPI) Checkout(_ context.Context, id string, cash *decimal.Decimal) (*dto.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Checkout"); err != nil {
		return nil, err
	}
	out, err := f.snapshot(id)
	if err != nil {
		return nil, err
	}
	out.Status = "COMPLETED"
	if cash != nil {
		change := cash.Sub(out.Total)
		out.CashReceived, out.ChangeGiven = cash, &change
	}
	delete(f.sessions, id)
	return out, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

var (
	haircut = Service{ID: "svc-haircut", Name: "Haircut", DurationMin: 30, Price: decimal.NewFromInt(250)}
	rebond  = Service{ID: "svc-rebond", Name: "Rebond", DurationMin: 180, Price: decimal.NewFromInt(1500)}
	cream   = Material{ID: "mat-cream", Name: "Rebond Cream", Unit: "ml", Quantity: decimal.NewFromInt(50)}
)

func newCache(t *testing.T, api API, opts Options) *Cache {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = time.Hour
	}
	if opts.Backoff == 0 {
		opts.Backoff = time.Millisecond
	}
	c := New(api, opts)
	t.Cleanup(c.Close)
	return c
}

func open(t *testing.T, c *Cache) string {
	t.Helper()
	name := "Chair 1"
	s, err := c.Create(context.Background(), dto.CreateSessionRequest{StaffID: "staff-1", Name: &name})
	require.NoError(t, err)
	return s.ID
}

func local(t *testing.T, c *Cache, id string) dto.SessionResponse {
	t.Helper()
	s, ok := c.Get(id)
	require.True(t, ok)
	return s
}

// ─── tests ───────────────────────────────────────────────────────────────────

func TestEditsApplyLocallyBeforeFlush(t *testing.T) {
	api := newFakeAPI()
	c := newCache(t, api, Options{})
	id := open(t, c)

	tmp, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tmp, "tmp-"))

	s := local(t, c, id)
	require.Len(t, s.Items, 1)
	assert.Equal(t, tmp, s.Items[0].ID)
	assert.Equal(t, "250", s.Total.String())
	assert.Equal(t, []string{"Create"}, api.Calls())
	assert.Equal(t, 1, c.Pending(id))

	require.NoError(t, c.Flush(context.Background(), id))
	s = local(t, c, id)
	require.Len(t, s.Items, 1)
	assert.False(t, strings.HasPrefix(s.Items[0].ID, "tmp-"), "server id replaces the temporary one")
	assert.Equal(t, "250", s.Total.String())
	assert.Equal(t, 0, c.Pending(id))
}

func TestFlushSendsInIssueOrder(t *testing.T) {
	api := newFakeAPI()
	c := newCache(t, api, Options{})
	id := open(t, c)

	_, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)
	require.NoError(t, c.Rename(id, "Walk-in"))
	item, err := c.AddItem(id, rebond, 1, []Material{cream})
	require.NoError(t, err)
	require.NoError(t, c.SetMaterialQuantity(id, cream.ID, decimal.NewFromInt(65), item))

	s := local(t, c, id)
	assert.Equal(t, "1750", s.Total.String())
	require.Len(t, s.Materials, 1)
	assert.Equal(t, "65", s.Materials[0].Quantity.String())

	require.NoError(t, c.Flush(context.Background(), id))
	assert.Equal(t, []string{"Create", "AddItem", "UpdateMeta", "AddItem", "UpdateMaterial 65"}, api.Calls())

	s = local(t, c, id)
	assert.Equal(t, "Walk-in", *s.Name)
	assert.Equal(t, "1750", s.Total.String())
	require.Len(t, s.Materials, 1)
	assert.Equal(t, "65", s.Materials[0].Quantity.String())
	assert.Equal(t, s.Items[1].ID, *s.Materials[0].LineItemID)
}

func TestRemovingUnsentItemSendsNothing(t *testing.T) {
	api := newFakeAPI()
	c := newCache(t, api, Options{})
	id := open(t, c)

	tmp, err := c.AddItem(id, rebond, 1, []Material{cream})
	require.NoError(t, err)
	require.NoError(t, c.SetMaterialQuantity(id, cream.ID, decimal.NewFromInt(70), tmp))
	require.NoError(t, c.RemoveItem(id, tmp))

	s := local(t, c, id)
	assert.Empty(t, s.Items)
	assert.Empty(t, s.Materials)
	assert.True(t, s.Total.IsZero())
	assert.Equal(t, 0, c.Pending(id))

	require.NoError(t, c.Flush(context.Background(), id))
	assert.Equal(t, []string{"Create"}, api.Calls())
}

func TestRemovingFlushedItemUsesServerID(t *testing.T) {
	api := newFakeAPI()
	c := newCache(t, api, Options{})
	id := open(t, c)

	tmp, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)
	require.NoError(t, c.Flush(context.Background(), id))
	serverID := local(t, c, id).Items[0].ID

	require.NoError(t, c.RemoveItem(id, tmp))
	assert.Empty(t, local(t, c, id).Items)
	require.NoError(t, c.Flush(context.Background(), id))

	calls := api.Calls()
	assert.Equal(t, "RemoveItem "+serverID, calls[len(calls)-1])
	assert.True(t, local(t, c, id).Total.IsZero())
}

func TestRemoveUnknownItem(t *testing.T) {
	c := newCache(t, newFakeAPI(), Options{})
	id := open(t, c)
	assert.ErrorIs(t, c.RemoveItem(id, "tmp-nope"), ErrUnknownItem)
	assert.ErrorIs(t, c.Rename("missing", "x"), ErrUnknownSession)
}

func TestDebounceResetsOnEachEdit(t *testing.T) {
	api := newFakeAPI()
	c := newCache(t, api, Options{Debounce: 200 * time.Millisecond})
	id := open(t, c)

	_, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, c.Rename(id, "Chair 3"))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"Create"}, api.Calls(), "the second edit restarted the timer")

	assert.Eventually(t, func() bool { return c.Pending(id) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Create", "AddItem", "UpdateMeta"}, api.Calls())
}

func TestTransientFailuresAreRetried(t *testing.T) {
	api := newFakeAPI()
	var reported []error
	c := newCache(t, api, Options{OnError: func(_ string, err error) { reported = append(reported, err) }})
	id := open(t, c)

	api.failures["AddItem"] = 2
	_, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)

	require.NoError(t, c.Flush(context.Background(), id))
	assert.Equal(t, []string{"Create", "AddItem", "AddItem", "AddItem"}, api.Calls())
	assert.Empty(t, reported)
	assert.Equal(t, 0, c.Pending(id))
}

func TestExhaustedRetriesKeepLocalState(t *testing.T) {
	api := newFakeAPI()
	var reported []error
	c := newCache(t, api, Options{OnError: func(_ string, err error) { reported = append(reported, err) }})
	id := open(t, c)

	api.failures["AddItem"] = 10
	_, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)
	require.NoError(t, c.Rename(id, "Later"))

	err = c.Flush(context.Background(), id)
	require.Error(t, err)
	assert.Len(t, reported, 1)
	assert.Equal(t, []string{"Create", "AddItem", "AddItem", "AddItem"}, api.Calls(), "stops at the failing command")

	assert.Equal(t, 2, c.Pending(id))
	s := local(t, c, id)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "250", s.Total.String())
	assert.Equal(t, "Later", *s.Name)

	api.failures["AddItem"] = 0
	require.NoError(t, c.Flush(context.Background(), id))
	assert.Equal(t, 0, c.Pending(id))
	assert.Equal(t, "Later", *local(t, c, id).Name)
}

func TestRejectedCommandIsDropped(t *testing.T) {
	api := newFakeAPI()
	var reported []error
	c := newCache(t, api, Options{OnError: func(_ string, err error) { reported = append(reported, err) }})
	id := open(t, c)

	api.rejects["UpdateMeta"] = true
	require.NoError(t, c.Rename(id, "Nope"))
	_, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)

	err = c.Flush(context.Background(), id)
	require.Error(t, err)
	require.Len(t, reported, 1)
	assert.Equal(t, []string{"Create", "UpdateMeta", "AddItem"}, api.Calls(), "a 4xx is not retried")

	s := local(t, c, id)
	assert.Equal(t, "Chair 1", *s.Name, "server state wins")
	assert.Len(t, s.Items, 1)
	assert.Equal(t, 0, c.Pending(id))
}

func TestMaterialQuantityClampsToOne(t *testing.T) {
	api := newFakeAPI()
	c := newCache(t, api, Options{})
	id := open(t, c)

	_, err := c.AddItem(id, rebond, 1, []Material{cream})
	require.NoError(t, err)
	require.NoError(t, c.SetMaterialQuantity(id, cream.ID, decimal.Zero, ""))
	assert.Equal(t, "1", local(t, c, id).Materials[0].Quantity.String())

	require.NoError(t, c.Flush(context.Background(), id))
	assert.Contains(t, api.Calls(), "UpdateMaterial 1")
	assert.Equal(t, "1", local(t, c, id).Materials[0].Quantity.String())
}

func TestDeleteBypassesQueue(t *testing.T) {
	api := newFakeAPI()
	c := newCache(t, api, Options{})
	first := open(t, c)
	second := open(t, c)
	require.NoError(t, c.SetActive(second))

	_, err := c.AddItem(second, haircut, 1, nil)
	require.NoError(t, err)
	require.NoError(t, c.Delete(context.Background(), second))

	assert.Equal(t, []string{"Create", "Create", "Delete"}, api.Calls())
	_, ok := c.Get(second)
	assert.False(t, ok)
	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, first, active.ID)
}

// slowDeleteAPI parks Delete until release is closed.
type slowDeleteAPI struct {
	*fakeAPI
	entered chan struct{}
	release chan struct{}
}

func (s *slowDeleteAPI) Delete(ctx context.Context, id string) error {
	close(s.entered)
	<-s.release
	return s.fakeAPI.Delete(ctx, id)
}

func TestFlushWaitingOnDeleteSendsNothing(t *testing.T) {
	api := &slowDeleteAPI{fakeAPI: newFakeAPI(), entered: make(chan struct{}), release: make(chan struct{})}
	var (
		mu       sync.Mutex
		reported []error
	)
	c := newCache(t, api, Options{OnError: func(_ string, err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	}})
	id := open(t, c)
	_, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)

	deleted := make(chan error, 1)
	go func() { deleted <- c.Delete(context.Background(), id) }()
	<-api.entered
	assert.Equal(t, 0, c.Pending(id), "delete replaces the queue")

	flushed := make(chan error, 1)
	go func() { flushed <- c.Flush(context.Background(), id) }()
	time.Sleep(20 * time.Millisecond)
	close(api.release)

	require.NoError(t, <-deleted)
	assert.ErrorIs(t, <-flushed, ErrUnknownSession)
	assert.Equal(t, []string{"Create", "Delete"}, api.Calls())
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, reported)
}

func TestCheckoutFlushesFirst(t *testing.T) {
	api := newFakeAPI()
	c := newCache(t, api, Options{})
	id := open(t, c)

	_, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)

	cash := decimal.NewFromInt(300)
	sale, err := c.Checkout(context.Background(), id, &cash)
	require.NoError(t, err)
	assert.Equal(t, []string{"Create", "AddItem", "Checkout"}, api.Calls())
	assert.Equal(t, "COMPLETED", sale.Status)
	assert.Equal(t, "50", sale.ChangeGiven.String())

	_, ok := c.Get(id)
	assert.False(t, ok)
	assert.Empty(t, c.Drafts())
}

func TestCheckoutStopsWhenFlushFails(t *testing.T) {
	api := newFakeAPI()
	c := newCache(t, api, Options{})
	id := open(t, c)

	api.failures["AddItem"] = 10
	_, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)

	_, err = c.Checkout(context.Background(), id, nil)
	require.Error(t, err)
	assert.NotContains(t, api.Calls(), "Checkout")
	_, ok := c.Get(id)
	assert.True(t, ok, "draft is kept")
}

func TestLoadSetsTabsAndActive(t *testing.T) {
	api := newFakeAPI()
	seed := newCache(t, api, Options{})
	a := open(t, seed)
	b := open(t, seed)

	c := newCache(t, api, Options{})
	require.NoError(t, c.Load(context.Background()))
	drafts := c.Drafts()
	require.Len(t, drafts, 2)
	assert.Equal(t, a, drafts[0].ID)
	assert.Equal(t, b, drafts[1].ID)

	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, a, active.ID)
	assert.ErrorIs(t, c.SetActive("missing"), ErrUnknownSession)
}

func TestReturnedCopiesAreIndependent(t *testing.T) {
	c := newCache(t, newFakeAPI(), Options{})
	id := open(t, c)
	_, err := c.AddItem(id, haircut, 1, nil)
	require.NoError(t, err)

	s := local(t, c, id)
	s.Items[0].Qty = 99
	assert.Equal(t, 1, local(t, c, id).Items[0].Qty)
}
