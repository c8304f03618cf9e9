// Package memory provides the in-process rolling snapshot history used by the
// rolling sequence mode.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// History implements domain.History. It keeps at most depth hourly snapshots
// per key and at most maxKeys keys, evicting the least recently used.
type History struct {
	depth int
	mu    sync.Mutex
	lru   *simplelru.LRU[string, []domain.HourlySnapshot]
}

// NewHistory creates a bounded history store.
func NewHistory(maxKeys, depth int) (*History, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("history depth must be positive, got %d", depth)
	}
	l, err := simplelru.NewLRU[string, []domain.HourlySnapshot](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("create history lru: %w", err)
	}
	return &History{depth: depth, lru: l}, nil
}

// Recent returns a copy of the snapshots retained for key, oldest first.
func (h *History) Recent(key string) []domain.HourlySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshots, _ := h.lru.Get(key)
	return append([]domain.HourlySnapshot(nil), snapshots...)
}

// Record stores f in the hour bucket of at. A snapshot already held for that
// hour is replaced; one for an hour before the newest bucket is ignored.
func (h *History) Record(key string, at time.Time, f domain.Features) {
	hour := domain.SnapshotHour(at)

	h.mu.Lock()
	defer h.mu.Unlock()

	snapshots, _ := h.lru.Get(key)
	if n := len(snapshots); n > 0 {
		switch newest := snapshots[n-1].Hour; {
		case hour.Equal(newest):
			snapshots[n-1].Features = f
			h.lru.Add(key, snapshots)
			return
		case hour.Before(newest):
			return
		}
	}

	snapshots = append(snapshots, domain.HourlySnapshot{Hour: hour, Features: f})
	if len(snapshots) > h.depth {
		// Copy so the backing array does not grow without bound.
		snapshots = append([]domain.HourlySnapshot(nil), snapshots[len(snapshots)-h.depth:]...)
	}
	h.lru.Add(key, snapshots)
}

// Len returns the number of tracked keys.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lru.Len()
}
