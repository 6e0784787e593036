// Package cache holds the short-lived, rebuildable state kept outside the
// database: the owner summary and per-branch activity timestamps.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"

	"github.com/google/uuid"
)

// SummaryCache stores the owner dashboard summary.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*dto.OwnerSummaryResponse, bool, error)
	Set(ctx context.Context, key string, value *dto.OwnerSummaryResponse, ttl time.Duration) error
}

// BranchActivity records when a branch last made an authenticated request.
type BranchActivity interface {
	Touch(ctx context.Context, branchID uuid.UUID, at time.Time) error
	LastActive(ctx context.Context, branchIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*dto.OwnerSummaryResponse, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *dto.OwnerSummaryResponse, _ time.Duration) error {
	return nil
}

// MemoryActivity keeps activity in process memory. Used when Redis is not
// configured and in tests.
type MemoryActivity struct {
	mu   sync.RWMutex
	last map[uuid.UUID]time.Time
}

func NewMemoryActivity() *MemoryActivity {
	return &MemoryActivity{last: make(map[uuid.UUID]time.Time)}
}

func (m *MemoryActivity) Touch(_ context.Context, branchID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.last[branchID]; !ok || at.After(prev) {
		m.last[branchID] = at
	}
	return nil
}

func (m *MemoryActivity) LastActive(_ context.Context, branchIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uuid.UUID]time.Time, len(branchIDs))
	for _, id := range branchIDs {
		if t, ok := m.last[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}
