package sequence

import (
	"math/rand/v2"

	"github.com/roach88/statefuzz/internal/bound"
	"github.com/roach88/statefuzz/internal/handler"
)

// DefaultDictionaryRate is the share of numeric draws taken from the
// dictionary when one is configured.
const DefaultDictionaryRate = 0.125

// edgeOdds is the denominator of the lower-edge and upper-edge draw
// probability: each edge is picked once in edgeOdds draws.
const edgeOdds = 16

// Catalog is the part of the action registry the generator needs.
type Catalog interface {
	Len() int
	Weight(i int) int
	Arity(i int) int
}

// Bias configures how numeric draws lean toward interesting values.
type Bias struct {
	// Dictionary holds values harvested from earlier findings.
	Dictionary []int64
	// Rate is the probability of a dictionary draw. Zero disables it.
	Rate float64
}

// Request is what the generator proposes for the next step. It is raw
// material only: the action index, the raw actor draw and one draw per
// declared input. Concrete arguments are materialized by the caller
// against the state left by the previous step.
type Request struct {
	Action   int
	ActorRaw uint64
	Draws    []handler.Draw
}

// Generator draws step requests for one run from a private PRNG stream.
type Generator struct {
	rng     *rand.Rand
	catalog Catalog
	bias    Bias
	total   uint64
}

// NewGenerator seeds a generator for run. Each (seed, run) pair has its
// own stream, so a run draws the same requests regardless of which
// worker executes it or in what order runs are scheduled.
func NewGenerator(seed uint64, run int, c Catalog, bias Bias) *Generator {
	var total uint64
	for i := 0; i < c.Len(); i++ {
		total += uint64(max(c.Weight(i), 1))
	}
	return &Generator{
		rng:     rand.New(rand.NewPCG(seed, bound.Mix(uint64(run)))),
		catalog: c,
		bias:    bias,
		total:   total,
	}
}

// Next proposes the next step. It panics if the catalog is empty.
func (g *Generator) Next() Request {
	req := Request{
		Action:   g.pickAction(),
		ActorRaw: g.rng.Uint64(),
	}
	n := g.catalog.Arity(req.Action)
	req.Draws = make([]handler.Draw, n)
	for i := range req.Draws {
		req.Draws[i] = g.draw()
	}
	return req
}

func (g *Generator) pickAction() int {
	if g.total == 0 {
		panic("sequence: generator has no actions")
	}
	r := bound.Uint64(g.rng.Uint64(), 0, g.total-1)
	for i := 0; i < g.catalog.Len(); i++ {
		w := uint64(max(g.catalog.Weight(i), 1))
		if r < w {
			return i
		}
		r -= w
	}
	return g.catalog.Len() - 1
}

func (g *Generator) draw() handler.Draw {
	mode := handler.DrawUniform
	switch g.rng.Uint64N(edgeOdds) {
	case 0:
		mode = handler.DrawLow
	case 1:
		mode = handler.DrawHigh
	default:
		if len(g.bias.Dictionary) > 0 && g.rng.Float64() < g.bias.Rate {
			mode = handler.DrawDictionary
		}
	}
	return handler.Draw{Mode: mode, Raw: g.rng.Uint64()}
}
