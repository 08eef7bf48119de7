package testutil

import (
	"fmt"
	"sync"
)

// FixedIDs hands out ids from a fixed list, then "id-N" once the list is
// used up.
//
// It satisfies store.IDGenerator and makes stored campaign ids stable
// across test runs.
//
// Thread-safety: FixedIDs is safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	n   int
}

// NewFixedIDs creates a generator returning ids in order.
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// Generate returns the next id.
func (g *FixedIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return fmt.Sprintf("id-%d", g.n)
}
