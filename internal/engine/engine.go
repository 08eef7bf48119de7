package engine

import (
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/handler"
	"github.com/roach88/statefuzz/internal/invariant"
	"github.com/roach88/statefuzz/internal/sut"
)

// tracerName is the instrumentation scope of engine spans.
const tracerName = "github.com/roach88/statefuzz/internal/engine"

// DefaultProgressInterval is the minimum time between progress log lines.
const DefaultProgressInterval = 2 * time.Second

// Harness is everything a campaign runs against. It is read-only once
// the engine is constructed and is shared by all workers.
type Harness struct {
	Factory    sut.Factory
	Actions    *handler.Registry
	Invariants *invariant.Set

	// Pool is the actor pool. Nil means a pool of Config.Actors.
	Pool *actor.Pool

	// Ghost holds the initial ghost values restored before every
	// execution.
	Ghost map[string]int64
}

// Engine drives campaigns and replays.
type Engine struct {
	h        Harness
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
	dict     []int64
	clock    *Clock
	progress *rate.Sometimes
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithDictionary sets the interesting values numeric draws are biased
// toward. The CLI fills it from the stored corpus.
func WithDictionary(values []int64) Option {
	return func(e *Engine) {
		e.dict = append([]int64(nil), values...)
	}
}

// WithTracer overrides the tracer. The default comes from the global
// OpenTelemetry provider, which is a no-op unless one is installed.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithProgressInterval sets how often campaign progress is logged.
func WithProgressInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.progress = &rate.Sometimes{Interval: d}
	}
}

// New creates an Engine. cfg is completed with defaults and validated.
func New(h Harness, cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if h.Factory == nil {
		return nil, NewConfigError("factory", "a SUT factory is required")
	}
	if h.Actions == nil || h.Actions.Len() == 0 {
		return nil, NewConfigError("actions", "at least one action is required")
	}
	if h.Invariants == nil {
		h.Invariants = invariant.NewSet()
	}
	if h.Pool == nil {
		pool, err := actor.NewPool(cfg.Actors)
		if err != nil {
			return nil, NewConfigError("actors", err.Error())
		}
		h.Pool = pool
	}

	e := &Engine{
		h:        h,
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   otel.Tracer(tracerName),
		clock:    NewClock(),
		progress: &rate.Sometimes{Interval: DefaultProgressInterval},
	}

	// Apply options
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Pool returns the actor pool.
func (e *Engine) Pool() *actor.Pool {
	return e.h.Pool
}

// StepsExecuted returns the number of steps executed so far across all
// campaigns and replays of this engine.
func (e *Engine) StepsExecuted() int64 {
	return e.clock.Current()
}
