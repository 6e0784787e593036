// Package draftcache keeps an optimistic, in-memory copy of a terminal's open
// draft sessions. Edits show up locally at once and are queued per session;
// a debounced flush replays the queue against the server in order and then
// rebuilds the local copy from the server's answer. Server totals and ids
// always win over the local guesses.
package draftcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const tempPrefix = "tmp-"

var (
	ErrUnknownSession = errors.New("draftcache: unknown session")
	ErrUnknownItem    = errors.New("draftcache: unknown line item")
)

// Options tune the cache. Zero values take the defaults.
type Options struct {
	Debounce    time.Duration // default 3s
	MaxAttempts int           // per command, default 3
	Backoff     time.Duration // first retry delay, doubled per attempt, default 500ms

	// OnError is told about every flush that stopped early or dropped a
	// rejected command. Local state is kept either way.
	OnError func(sessionID string, err error)
}

func (o *Options) withDefaults() {
	if o.Debounce <= 0 {
		o.Debounce = 3 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
}

// Service is the catalog entry a line item is built from.
type Service struct {
	ID          string
	Name        string
	DurationMin int
	Price       decimal.Decimal
}

// Material is a usage row to attach to a new line item.
type Material struct {
	ID       string
	Name     string
	Unit     string
	Quantity decimal.Decimal
}

type draft struct {
	local  dto.SessionResponse
	server dto.SessionResponse

	queue   []*command
	nextSeq uint64
	timer   *time.Timer

	// tmp id -> server id, filled as adds are acknowledged.
	ids map[string]string

	// serializes flushes, deletes and checkouts of one session.
	flushMu sync.Mutex
}

func (d *draft) resolve(id string) string {
	if serverID, ok := d.ids[id]; ok {
		return serverID
	}
	return id
}

// Cache is safe for concurrent use.
type Cache struct {
	api  API
	opts Options

	mu     sync.Mutex
	drafts map[string]*draft
	tabs   []string
	active string
}

func New(api API, opts Options) *Cache {
	opts.withDefaults()
	return &Cache{api: api, opts: opts, drafts: make(map[string]*draft)}
}

// Load replaces the cache contents with the branch's drafts on the server.
func (c *Cache) Load(ctx context.Context) error {
	sessions, err := c.api.ListDrafts(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimers()
	c.drafts = make(map[string]*draft, len(sessions))
	c.tabs = c.tabs[:0]
	for i := range sessions {
		c.track(sessions[i])
	}
	if len(c.tabs) > 0 {
		c.active = c.tabs[0]
	} else {
		c.active = ""
	}
	return nil
}

// Create opens a new draft on the server and makes it the active tab.
func (c *Cache) Create(ctx context.Context, req dto.CreateSessionRequest) (dto.SessionResponse, error) {
	s, err := c.api.Create(ctx, req)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track(*s)
	c.active = s.ID
	return copySession(*s), nil
}

func (c *Cache) track(s dto.SessionResponse) {
	c.drafts[s.ID] = &draft{
		local:  copySession(s),
		server: copySession(s),
		ids:    make(map[string]string),
	}
	c.tabs = append(c.tabs, s.ID)
}

// Drafts returns the local copies in tab order.
func (c *Cache) Drafts() []dto.SessionResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]dto.SessionResponse, 0, len(c.tabs))
	for _, id := range c.tabs {
		out = append(out, copySession(c.drafts[id].local))
	}
	return out
}

func (c *Cache) Get(id string) (dto.SessionResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[id]
	if !ok {
		return dto.SessionResponse{}, false
	}
	return copySession(d.local), true
}

func (c *Cache) Active() (dto.SessionResponse, bool) {
	c.mu.Lock()
	id := c.active
	c.mu.Unlock()
	if id == "" {
		return dto.SessionResponse{}, false
	}
	return c.Get(id)
}

func (c *Cache) SetActive(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.drafts[id]; !ok {
		return ErrUnknownSession
	}
	c.active = id
	return nil
}

// Pending is the number of commands not yet acknowledged by the server.
func (c *Cache) Pending(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.drafts[id]; ok {
		return len(d.queue)
	}
	return 0
}

// AddItem appends a line item locally under a temporary id and queues its
// creation. The returned id can be used with RemoveItem and SetMaterialQuantity
// before and after the server has assigned the real one.
func (c *Cache) AddItem(sessionID string, svc Service, qty int, materials []Material) (string, error) {
	if qty < 1 {
		return "", fmt.Errorf("draftcache: qty must be at least 1")
	}
	tmp := tempPrefix + uuid.NewString()
	return tmp, c.enqueue(sessionID, addItem(tmp, svc, qty, materials))
}

// RemoveItem drops a line item and its material rows. A temporary item whose
// creation was never sent is forgotten without any request.
func (c *Cache) RemoveItem(sessionID, itemID string) error {
	c.mu.Lock()
	d, ok := c.drafts[sessionID]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownSession
	}
	if findItem(d.local, d.resolve(itemID)) < 0 {
		c.mu.Unlock()
		return ErrUnknownItem
	}
	if dropped := d.dropUnsent(itemID); dropped {
		d.rebuild()
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.enqueue(sessionID, removeItem(itemID))
}

func (c *Cache) Rename(sessionID, name string) error {
	return c.enqueue(sessionID, rename(name))
}

// SetMaterialQuantity edits a usage row. Quantities below 1 are raised to 1;
// lineItemID may be empty to target the first row of the material.
func (c *Cache) SetMaterialQuantity(sessionID, materialID string, qty decimal.Decimal, lineItemID string) error {
	if qty.LessThan(decimal.NewFromInt(1)) {
		qty = decimal.NewFromInt(1)
	}
	return c.enqueue(sessionID, setMaterial(materialID, qty, lineItemID))
}

func (c *Cache) enqueue(sessionID string, cmd *command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	d.nextSeq++
	cmd.seq = d.nextSeq
	d.queue = append(d.queue, cmd)
	cmd.apply(&d.local, d.resolve)
	recompute(&d.local)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(c.opts.Debounce, func() {
		if err := c.Flush(context.Background(), sessionID); err != nil && !errors.Is(err, ErrUnknownSession) {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("draftcache: debounced flush failed")
		}
	})
	return nil
}

// Flush sends every queued command of the session now, in order, and waits
// for the result. Transient failures are retried with exponential backoff;
// a command the server rejects is dropped and reported through OnError.
func (c *Cache) Flush(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	d, ok := c.drafts[sessionID]
	c.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}

	d.flushMu.Lock()
	defer d.flushMu.Unlock()
	return c.flushLocked(ctx, sessionID, d)
}

func (c *Cache) flushLocked(ctx context.Context, sessionID string, d *draft) error {
	c.mu.Lock()
	if c.drafts[sessionID] != d {
		// deleted or checked out while this flush waited for the session
		c.mu.Unlock()
		return ErrUnknownSession
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	c.mu.Unlock()

	var firstErr error
	for {
		c.mu.Lock()
		if len(d.queue) == 0 {
			c.mu.Unlock()
			break
		}
		cmd := d.queue[0]
		cmd.inflight = true
		known := itemIDs(d.server)
		resolve := d.resolveSnapshot()
		c.mu.Unlock()

		resp, err := c.send(ctx, sessionID, cmd, resolve)

		c.mu.Lock()
		cmd.inflight = false
		switch {
		case err == nil:
			d.queue = d.queue[1:]
			if cmd.tempID != "" {
				if serverID := newItemID(*resp, known); serverID != "" {
					d.ids[cmd.tempID] = serverID
				}
			}
			d.server = copySession(*resp)
		case permanent(err):
			d.queue = d.queue[1:]
			d.dropDependents(cmd.tempID)
		}
		c.mu.Unlock()

		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			c.report(sessionID, err)
			if !permanent(err) {
				break
			}
		}
	}

	c.mu.Lock()
	d.rebuild()
	c.mu.Unlock()
	return firstErr
}

func (c *Cache) send(ctx context.Context, sessionID string, cmd *command, resolve func(string) string) (*dto.SessionResponse, error) {
	var err error
	for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.Backoff << (attempt - 1)):
			}
		}
		var resp *dto.SessionResponse
		resp, err = cmd.send(ctx, c.api, sessionID, resolve)
		if err == nil {
			return resp, nil
		}
		if permanent(err) {
			return nil, err
		}
		log.Debug().Err(err).Str("session_id", sessionID).Uint64("seq", cmd.seq).Int("attempt", attempt+1).
			Msg("draftcache: command failed")
	}
	return nil, err
}

func (c *Cache) report(sessionID string, err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(sessionID, err)
	}
}

// Delete removes the session on the server right away, discarding anything
// still queued for it.
func (c *Cache) Delete(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	d, ok := c.drafts[sessionID]
	if ok {
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
		// the in-flight command, if any, is popped by the flush that sent it
		kept := d.queue[:0]
		for _, cmd := range d.queue {
			if cmd.inflight {
				kept = append(kept, cmd)
			}
		}
		d.queue = kept
	}
	c.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}

	d.flushMu.Lock()
	defer d.flushMu.Unlock()
	if err := c.api.Delete(ctx, sessionID); err != nil {
		c.mu.Lock()
		d.rebuild()
		c.mu.Unlock()
		return err
	}
	c.forget(sessionID)
	return nil
}

// Checkout flushes the session, checks it out and closes its tab.
func (c *Cache) Checkout(ctx context.Context, sessionID string, cash *decimal.Decimal) (*dto.SessionResponse, error) {
	c.mu.Lock()
	d, ok := c.drafts[sessionID]
	c.mu.Unlock()
	if !ok {
		return nil, ErrUnknownSession
	}

	d.flushMu.Lock()
	defer d.flushMu.Unlock()
	if err := c.flushLocked(ctx, sessionID, d); err != nil {
		return nil, fmt.Errorf("draftcache: flush before checkout: %w", err)
	}
	if c.Pending(sessionID) > 0 {
		return nil, fmt.Errorf("draftcache: session %s still has unsent changes", sessionID)
	}
	sale, err := c.api.Checkout(ctx, sessionID, cash)
	if err != nil {
		return nil, err
	}
	c.forget(sessionID)
	return sale, nil
}

func (c *Cache) forget(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[sessionID]
	if !ok {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	delete(c.drafts, sessionID)
	for i, id := range c.tabs {
		if id == sessionID {
			c.tabs = append(c.tabs[:i], c.tabs[i+1:]...)
			if c.active == sessionID {
				c.active = ""
				switch {
				case i < len(c.tabs):
					c.active = c.tabs[i]
				case len(c.tabs) > 0:
					c.active = c.tabs[len(c.tabs)-1]
				}
			}
			break
		}
	}
}

// Close stops pending debounce timers. Queued commands are not sent.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimers()
}

func (c *Cache) stopTimers() {
	for _, d := range c.drafts {
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
	}
}

// ─── draft internals (caller holds Cache.mu) ─────────────────────────────────

func (d *draft) resolveSnapshot() func(string) string {
	ids := make(map[string]string, len(d.ids))
	for k, v := range d.ids {
		ids[k] = v
	}
	return func(id string) string {
		if serverID, ok := ids[id]; ok {
			return serverID
		}
		return id
	}
}

// dropUnsent removes the queued, not in-flight creation of tmpID together
// with every queued command that refers to it.
func (d *draft) dropUnsent(tmpID string) bool {
	for i, cmd := range d.queue {
		if cmd.tempID == tmpID && !cmd.inflight {
			d.queue = append(d.queue[:i], d.queue[i+1:]...)
			d.dropDependents(tmpID)
			return true
		}
	}
	return false
}

func (d *draft) dropDependents(tmpID string) {
	if tmpID == "" {
		return
	}
	if _, sent := d.ids[tmpID]; sent {
		return
	}
	kept := d.queue[:0]
	for _, cmd := range d.queue {
		if cmd.inflight || cmd.ref != tmpID {
			kept = append(kept, cmd)
		}
	}
	d.queue = kept
}

// rebuild makes the local copy the last server state plus the effects of
// every command still queued.
func (d *draft) rebuild() {
	d.local = copySession(d.server)
	if len(d.queue) == 0 {
		return
	}
	for _, cmd := range d.queue {
		cmd.apply(&d.local, d.resolve)
	}
	recompute(&d.local)
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func recompute(s *dto.SessionResponse) {
	lines := make([]pricing.Line, len(s.Items))
	for i, it := range s.Items {
		lines[i] = pricing.Line{Price: it.Price, Qty: it.Qty}
	}
	addOns := make([]decimal.Decimal, len(s.AddOns))
	for i, a := range s.AddOns {
		addOns[i] = a.Price
	}
	t := pricing.Calculate(lines, addOns)
	s.BasePrice, s.AddOnsTotal, s.Total = t.BasePrice, t.AddOnsTotal, t.Total
}

func copySession(s dto.SessionResponse) dto.SessionResponse {
	s.Items = append([]dto.LineItemResponse(nil), s.Items...)
	s.AddOns = append([]dto.AddOnResponse(nil), s.AddOns...)
	s.Materials = append([]dto.MaterialUsageResponse(nil), s.Materials...)
	return s
}

func itemIDs(s dto.SessionResponse) map[string]struct{} {
	out := make(map[string]struct{}, len(s.Items))
	for _, it := range s.Items {
		out[it.ID] = struct{}{}
	}
	return out
}

// newItemID finds the line item present in resp but not in known.
func newItemID(resp dto.SessionResponse, known map[string]struct{}) string {
	for i := len(resp.Items) - 1; i >= 0; i-- {
		if _, ok := known[resp.Items[i].ID]; !ok {
			return resp.Items[i].ID
		}
	}
	return ""
}

func findItem(s dto.SessionResponse, id string) int {
	for i, it := range s.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
