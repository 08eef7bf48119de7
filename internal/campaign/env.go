package campaign

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds environment overrides. Unset variables leave the file value
// alone.
type Env struct {
	Seed    *uint64 `env:"STATEFUZZ_SEED"`
	Runs    *int    `env:"STATEFUZZ_RUNS"`
	Depth   *int    `env:"STATEFUZZ_DEPTH"`
	Workers *int    `env:"STATEFUZZ_WORKERS"`
	DB      string  `env:"STATEFUZZ_DB"`
}

// ParseEnv reads overrides from environ, or from the process environment
// when environ is nil.
func ParseEnv(environ map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: environ}); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply copies the set overrides onto f.
func (e Env) Apply(f *File) {
	if e.Seed != nil {
		f.Seed = *e.Seed
	}
	if e.Runs != nil {
		f.Runs = *e.Runs
	}
	if e.Depth != nil {
		f.Depth = *e.Depth
	}
	if e.Workers != nil {
		f.Workers = *e.Workers
	}
}
