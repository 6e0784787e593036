package draftcache

import (
	"context"
	"strconv"
	"strings"

	"github.com/JaroldEnderez/Vanity/internal/dto"

	"github.com/shopspring/decimal"
)

// command is one queued edit: its optimistic effect on the local copy and the
// request that persists it. Ids may be temporary in both; resolve maps them to
// server ids once known.
type command struct {
	seq      uint64
	inflight bool

	tempID string // set on the command that creates tempID
	ref    string // temporary item id this command depends on

	apply func(s *dto.SessionResponse, resolve func(string) string)
	send  func(ctx context.Context, api API, sessionID string, resolve func(string) string) (*dto.SessionResponse, error)
}

func addItem(tmp string, svc Service, qty int, materials []Material) *command {
	price := svc.Price
	usages := make([]dto.MaterialUsageRequest, len(materials))
	for i, m := range materials {
		usages[i] = dto.MaterialUsageRequest{MaterialID: m.ID, Quantity: m.Quantity}
	}
	return &command{
		tempID: tmp,
		apply: func(s *dto.SessionResponse, _ func(string) string) {
			s.Items = append(s.Items, dto.LineItemResponse{
				ID:          tmp,
				ServiceID:   svc.ID,
				Name:        svc.Name,
				DurationMin: svc.DurationMin,
				Qty:         qty,
				Price:       price,
				Subtotal:    price.Mul(decimal.NewFromInt(int64(qty))),
			})
			line := tmp
			for i, m := range materials {
				s.Materials = append(s.Materials, dto.MaterialUsageResponse{
					ID:         tmp + "-m" + strconv.Itoa(i),
					MaterialID: m.ID,
					LineItemID: &line,
					Name:       m.Name,
					Unit:       m.Unit,
					Quantity:   m.Quantity,
				})
			}
		},
		send: func(ctx context.Context, api API, sessionID string, _ func(string) string) (*dto.SessionResponse, error) {
			return api.AddItem(ctx, sessionID, dto.AddItemRequest{
				ServiceID: svc.ID,
				Qty:       qty,
				Price:     &price,
				Materials: usages,
			})
		},
	}
}

func removeItem(itemID string) *command {
	cmd := &command{
		apply: func(s *dto.SessionResponse, resolve func(string) string) {
			id := resolve(itemID)
			if i := findItem(*s, id); i >= 0 {
				s.Items = append(s.Items[:i], s.Items[i+1:]...)
			}
			kept := s.Materials[:0]
			for _, m := range s.Materials {
				if m.LineItemID == nil || *m.LineItemID != id {
					kept = append(kept, m)
				}
			}
			s.Materials = kept
		},
		send: func(ctx context.Context, api API, sessionID string, resolve func(string) string) (*dto.SessionResponse, error) {
			return api.RemoveItem(ctx, sessionID, resolve(itemID))
		},
	}
	if isTemp(itemID) {
		cmd.ref = itemID
	}
	return cmd
}

func rename(name string) *command {
	return &command{
		apply: func(s *dto.SessionResponse, _ func(string) string) {
			n := name
			s.Name = &n
		},
		send: func(ctx context.Context, api API, sessionID string, _ func(string) string) (*dto.SessionResponse, error) {
			n := name
			return api.UpdateMeta(ctx, sessionID, dto.UpdateSessionRequest{Name: &n})
		},
	}
}

func setMaterial(materialID string, qty decimal.Decimal, lineItemID string) *command {
	cmd := &command{
		apply: func(s *dto.SessionResponse, resolve func(string) string) {
			line := resolve(lineItemID)
			for i := range s.Materials {
				m := &s.Materials[i]
				if m.MaterialID != materialID {
					continue
				}
				if lineItemID != "" && (m.LineItemID == nil || *m.LineItemID != line) {
					continue
				}
				m.Quantity = qty
				return
			}
		},
		send: func(ctx context.Context, api API, sessionID string, resolve func(string) string) (*dto.SessionResponse, error) {
			req := dto.UpdateMaterialRequest{Quantity: qty}
			if lineItemID != "" {
				line := resolve(lineItemID)
				req.LineItemID = &line
			}
			return api.UpdateMaterial(ctx, sessionID, materialID, req)
		},
	}
	if isTemp(lineItemID) {
		cmd.ref = lineItemID
	}
	return cmd
}

func isTemp(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}
