// Package bound maps raw random values into closed integer ranges.
//
// Every fuzz-exposed number passes through this package before a handler
// sees it. The mapping is a pure function of (raw, lo, hi): the same raw
// value always lands on the same output, which is what makes sequence
// replay and seeded campaigns reproducible.
//
// Plain raw % span favors the low end of the range whenever span does not
// divide 2^64. Values in that biased tail are remixed through splitmix64
// and drawn again, still deterministically, so uniform raw input gives
// uniform output.
package bound

import (
	"fmt"
	"math"

	"fortio.org/safecast"
)

// maxRemix caps the remix loop. The rejected tail is smaller than half
// the input space, so hitting the cap is practically impossible; it only
// guarantees termination.
const maxRemix = 64

// Uint64 maps raw into [lo, hi] inclusive. It panics if lo > hi.
func Uint64(raw, lo, hi uint64) uint64 {
	if lo > hi {
		panic(fmt.Sprintf("bound: empty range [%d, %d]", lo, hi))
	}
	span := hi - lo + 1
	if span == 0 {
		// [0, MaxUint64]: every raw value is already in range.
		return raw
	}
	if span&(span-1) == 0 {
		return lo + raw&(span-1)
	}
	// 2^64 mod span values at the top of the input space are the biased tail.
	tail := (math.MaxUint64%span + 1) % span
	if tail != 0 {
		threshold := -tail // 2^64 - tail, wrapping
		for i := 0; raw >= threshold && i < maxRemix; i++ {
			raw = Mix(raw)
		}
	}
	return lo + raw%span
}

// Int64 maps raw into [lo, hi] inclusive. It panics if lo > hi.
func Int64(raw uint64, lo, hi int64) int64 {
	if lo > hi {
		panic(fmt.Sprintf("bound: empty range [%d, %d]", lo, hi))
	}
	width := uint64(hi) - uint64(lo)
	return int64(uint64(lo) + Uint64(raw, 0, width))
}

// Index maps raw into [0, n-1]. It panics if n <= 0.
func Index(raw uint64, n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("bound: index over empty set (n=%d)", n))
	}
	top, err := safecast.Conv[uint64](n - 1)
	if err != nil {
		panic(fmt.Sprintf("bound: %v", err))
	}
	idx, err := safecast.Conv[int](Uint64(raw, 0, top))
	if err != nil {
		panic(fmt.Sprintf("bound: %v", err))
	}
	return idx
}

// Clamp limits v to [lo, hi]. Dictionary values are clamped rather than
// bound so that an interesting value stays interesting when it is already
// in range.
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Mix is the splitmix64 finalizer. It is a bijection on uint64 and is used
// both for remixing biased values and for deriving per-run seeds.
func Mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
