package engine

import (
	"time"

	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/sequence"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultRuns           = 256
	DefaultDepth          = 64
	DefaultMaxRejects     = 65536
	DefaultShrinkRunLimit = 5000
	DefaultWorkers        = 1
)

// Config is the campaign configuration surface.
type Config struct {
	// Runs is the number of independent sequences.
	Runs int `yaml:"runs" json:"runs"`

	// Depth is the maximum number of steps per sequence.
	Depth int `yaml:"depth" json:"depth"`

	// Seed makes the campaign reproducible.
	Seed uint64 `yaml:"seed" json:"seed"`

	// MaxRejects is the ceiling on rejected steps across the campaign.
	// Zero means DefaultMaxRejects.
	MaxRejects int `yaml:"max_rejects" json:"max_rejects"`

	// FailOnRevert makes a SUT call failure after a passing precondition a
	// finding instead of an implicit rejection.
	FailOnRevert bool `yaml:"fail_on_revert" json:"fail_on_revert"`

	// ShrinkRunLimit caps replay attempts while shrinking one failure.
	ShrinkRunLimit int `yaml:"shrink_run_limit" json:"shrink_run_limit"`

	// Workers is the number of runs executed concurrently.
	Workers int `yaml:"workers" json:"workers"`

	// Timeout bounds the whole campaign. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// CollectAll keeps running after a violation and reports every
	// failing run.
	CollectAll bool `yaml:"collect_all" json:"collect_all"`

	// Actors is the actor pool size.
	Actors int `yaml:"actors" json:"actors"`

	// DictionaryRate is the probability that a numeric draw uses a
	// dictionary value, when a dictionary is configured.
	DictionaryRate float64 `yaml:"dictionary_rate" json:"dictionary_rate"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Runs == 0 {
		c.Runs = DefaultRuns
	}
	if c.Depth == 0 {
		c.Depth = DefaultDepth
	}
	if c.MaxRejects == 0 {
		c.MaxRejects = DefaultMaxRejects
	}
	if c.ShrinkRunLimit == 0 {
		c.ShrinkRunLimit = DefaultShrinkRunLimit
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Actors == 0 {
		c.Actors = actor.DefaultSize
	}
	if c.DictionaryRate == 0 {
		c.DictionaryRate = sequence.DefaultDictionaryRate
	}
	return c
}

// Validate rejects values no campaign can run with. Call it after
// WithDefaults.
func (c Config) Validate() error {
	switch {
	case c.Runs < 0:
		return NewConfigError("runs", "must not be negative")
	case c.Depth < 0:
		return NewConfigError("depth", "must not be negative")
	case c.MaxRejects < 0:
		return NewConfigError("max_rejects", "must not be negative")
	case c.ShrinkRunLimit < 0:
		return NewConfigError("shrink_run_limit", "must not be negative")
	case c.Workers < 1:
		return NewConfigError("workers", "must be at least 1")
	case c.Actors < 1:
		return NewConfigError("actors", "must be at least 1")
	case c.Timeout < 0:
		return NewConfigError("timeout", "must not be negative")
	case c.DictionaryRate < 0 || c.DictionaryRate > 1:
		return NewConfigError("dictionary_rate", "must be within [0, 1]")
	}
	return nil
}
