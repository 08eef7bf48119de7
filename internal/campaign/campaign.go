// Package campaign loads campaign files and turns them into engine
// configuration.
//
// A campaign file is YAML (.yaml, .yml) or CUE (.cue). Both describe the
// same fields; CUE files are unified with a closed schema first, so a
// misspelled field is an error in either syntax. Environment variables
// override file values, and command-line flags override both.
package campaign

import (
	"fmt"
	"time"

	"github.com/roach88/statefuzz/internal/engine"
)

// File is the on-disk description of a campaign.
type File struct {
	// Name labels the campaign in output and in the store.
	Name string `yaml:"name" json:"name,omitempty"`

	// Description is free text.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Target selects the system under test, e.g. "ledger".
	Target string `yaml:"target,omitempty" json:"target,omitempty"`

	Seed           uint64  `yaml:"seed" json:"seed,omitempty"`
	Runs           int     `yaml:"runs,omitempty" json:"runs,omitempty"`
	Depth          int     `yaml:"depth,omitempty" json:"depth,omitempty"`
	MaxRejects     int     `yaml:"max_rejects,omitempty" json:"max_rejects,omitempty"`
	FailOnRevert   bool    `yaml:"fail_on_revert,omitempty" json:"fail_on_revert,omitempty"`
	ShrinkRunLimit int     `yaml:"shrink_run_limit,omitempty" json:"shrink_run_limit,omitempty"`
	Workers        int     `yaml:"workers,omitempty" json:"workers,omitempty"`
	CollectAll     bool    `yaml:"collect_all,omitempty" json:"collect_all,omitempty"`
	Actors         int     `yaml:"actors,omitempty" json:"actors,omitempty"`
	DictionaryRate float64 `yaml:"dictionary_rate,omitempty" json:"dictionary_rate,omitempty"`

	// Timeout is a Go duration string such as "30s".
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Dictionary seeds numeric draws with interesting values.
	Dictionary []int64 `yaml:"dictionary,omitempty" json:"dictionary,omitempty"`

	// Actions, when set, restricts the target's handlers to these names.
	Actions []string `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Validate checks fields that the engine does not check itself.
func (f *File) Validate() error {
	if _, err := f.timeout(); err != nil {
		return err
	}
	if f.DictionaryRate < 0 || f.DictionaryRate > 1 {
		return fmt.Errorf("dictionary_rate must be within [0, 1], got %v", f.DictionaryRate)
	}
	return nil
}

func (f *File) timeout() (time.Duration, error) {
	if f.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", f.Timeout, err)
	}
	return d, nil
}

// EngineConfig converts the file into engine configuration. Defaults are
// left to the engine.
func (f *File) EngineConfig() (engine.Config, error) {
	if err := f.Validate(); err != nil {
		return engine.Config{}, err
	}
	timeout, _ := f.timeout()
	return engine.Config{
		Runs:           f.Runs,
		Depth:          f.Depth,
		Seed:           f.Seed,
		MaxRejects:     f.MaxRejects,
		FailOnRevert:   f.FailOnRevert,
		ShrinkRunLimit: f.ShrinkRunLimit,
		Workers:        f.Workers,
		Timeout:        timeout,
		CollectAll:     f.CollectAll,
		Actors:         f.Actors,
		DictionaryRate: f.DictionaryRate,
	}, nil
}
