// Package actor holds the fixed set of principals that fuzzed calls are
// made on behalf of.
//
// Identities are derived, not random: actor N always has the same UUIDv5
// under Namespace, so a sequence recorded in one process replays against
// the same identities in another.
package actor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/statefuzz/internal/bound"
)

// DefaultSize is the pool size used when a campaign does not configure one.
const DefaultSize = 5

// Namespace is the UUIDv5 namespace actor ids are derived under.
var Namespace = uuid.MustParse("6f1c3a52-8d0e-4b7a-9a55-3e2b7c1d9f40")

// Actor is an opaque identity token. Actors are comparable and are used
// directly as map keys in ghost bookkeeping.
type Actor struct {
	Index int
	ID    string
}

// String returns the short label used in logs and reports.
func (a Actor) String() string {
	return fmt.Sprintf("actor-%d", a.Index)
}

// New returns the actor at position index.
func New(index int) Actor {
	label := fmt.Sprintf("actor-%d", index)
	return Actor{
		Index: index,
		ID:    uuid.NewSHA1(Namespace, []byte(label)).String(),
	}
}

// Pool is an immutable ordered set of actors.
type Pool struct {
	actors []Actor
	byID   map[string]Actor
}

// NewPool creates a pool of size actors. Size must be positive.
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("actor pool size must be positive, got %d", size)
	}
	p := &Pool{
		actors: make([]Actor, size),
		byID:   make(map[string]Actor, size),
	}
	for i := range p.actors {
		a := New(i)
		p.actors[i] = a
		p.byID[a.ID] = a
	}
	return p, nil
}

// Select maps a raw draw onto one actor.
func (p *Pool) Select(raw uint64) Actor {
	return p.actors[bound.Index(raw, len(p.actors))]
}

// All returns the actors in pool order. The slice is a copy.
func (p *Pool) All() []Actor {
	out := make([]Actor, len(p.actors))
	copy(out, p.actors)
	return out
}

// Len returns the pool size.
func (p *Pool) Len() int {
	return len(p.actors)
}

// Lookup resolves an actor id, as stored in step arguments and reports.
func (p *Pool) Lookup(id string) (Actor, bool) {
	a, ok := p.byID[id]
	return a, ok
}
