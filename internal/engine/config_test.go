package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	assert.Equal(t, DefaultRuns, c.Runs)
	assert.Equal(t, DefaultDepth, c.Depth)
	assert.Equal(t, DefaultMaxRejects, c.MaxRejects)
	assert.Equal(t, DefaultShrinkRunLimit, c.ShrinkRunLimit)
	assert.Equal(t, DefaultWorkers, c.Workers)
	assert.Equal(t, 5, c.Actors)
	assert.InDelta(t, 0.125, c.DictionaryRate, 1e-9)
	require.NoError(t, c.Validate())
}

func TestConfig_WithDefaultsKeepsExplicitValues(t *testing.T) {
	c := Config{Runs: 3, Depth: 4, MaxRejects: 10, Workers: 2, Seed: 9}.WithDefaults()
	assert.Equal(t, 3, c.Runs)
	assert.Equal(t, 4, c.Depth)
	assert.Equal(t, 10, c.MaxRejects)
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, uint64(9), c.Seed)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"negative runs", func(c *Config) { c.Runs = -1 }, "runs"},
		{"negative depth", func(c *Config) { c.Depth = -1 }, "depth"},
		{"negative max rejects", func(c *Config) { c.MaxRejects = -1 }, "max_rejects"},
		{"negative shrink limit", func(c *Config) { c.ShrinkRunLimit = -1 }, "shrink_run_limit"},
		{"negative workers", func(c *Config) { c.Workers = -2 }, "workers"},
		{"negative actors", func(c *Config) { c.Actors = -1 }, "actors"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"rate above one", func(c *Config) { c.DictionaryRate = 1.5 }, "dictionary_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{}.WithDefaults()
			tt.mod(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
