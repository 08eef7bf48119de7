package ledger

import (
	"fmt"
	"slices"

	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/handler"
	"github.com/roach88/statefuzz/internal/invariant"
)

// Target names accepted by Target.
const (
	TargetCorrect = "ledger"
	TargetBuggy   = "ledger-buggy"
)

// BuggyWithdrawal is the withdrawal from which the buggy target stops
// decrementing balances.
const BuggyWithdrawal = 3

type harnessConfig struct {
	actions []string
	ledger  []Option
}

// HarnessOption configures NewHarness.
type HarnessOption func(*harnessConfig)

// WithActions restricts the handler set to the named actions.
func WithActions(names ...string) HarnessOption {
	return func(c *harnessConfig) {
		c.actions = names
	}
}

// WithLedger passes options to every ledger the harness builds.
func WithLedger(opts ...Option) HarnessOption {
	return func(c *harnessConfig) {
		c.ledger = append(c.ledger, opts...)
	}
}

// NewHarness wires the ledger factory, handlers and invariants for pool.
func NewHarness(pool *actor.Pool, opts ...HarnessOption) (engine.Harness, error) {
	if pool == nil {
		return engine.Harness{}, fmt.Errorf("ledger harness: actor pool is required")
	}
	var cfg harnessConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := handler.NewRegistry()
	for _, a := range Actions() {
		if cfg.actions != nil && !slices.Contains(cfg.actions, a.Name) {
			continue
		}
		if err := reg.Register(a); err != nil {
			return engine.Harness{}, fmt.Errorf("ledger harness: %w", err)
		}
	}
	for _, name := range cfg.actions {
		if _, ok := reg.Lookup(name); !ok {
			return engine.Harness{}, fmt.Errorf("ledger harness: unknown action %q", name)
		}
	}

	set := invariant.NewSet()
	for _, inv := range Invariants(pool) {
		if err := set.Register(inv); err != nil {
			return engine.Harness{}, fmt.Errorf("ledger harness: %w", err)
		}
	}

	return engine.Harness{
		Factory:    NewFactory(cfg.ledger...),
		Actions:    reg,
		Invariants: set,
		Pool:       pool,
	}, nil
}

// Target builds the harness registered under name. opts are applied
// after the target's own options.
func Target(name string, pool *actor.Pool, opts ...HarnessOption) (engine.Harness, error) {
	switch name {
	case TargetCorrect:
		return NewHarness(pool, opts...)
	case TargetBuggy:
		return NewHarness(pool, append([]HarnessOption{WithLedger(WithWithdrawalBug(BuggyWithdrawal))}, opts...)...)
	default:
		return engine.Harness{}, fmt.Errorf("unknown target %q (want %s or %s)", name, TargetCorrect, TargetBuggy)
	}
}

// Targets lists the target names.
func Targets() []string {
	return []string{TargetCorrect, TargetBuggy}
}
