// Package rng isolates every random draw the service makes so callers can
// inject deterministic sequences in tests. Production code uses Default,
// which is intentionally unseeded.
package rng

import (
	"math/rand/v2"
	"sync"
)

// Source is the subset of math/rand the decision and calibration code needs.
type Source interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
	// IntN returns a value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

type global struct{}

func (global) Float64() float64 { return rand.Float64() }
func (global) IntN(n int) int   { return rand.IntN(n) }

// Default returns the process-wide, concurrency-safe source.
func Default() Source { return global{} }

// Uniform returns a value in [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// IntRange returns a value in [lo, hi], both ends inclusive.
func IntRange(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Chance reports whether a fresh draw falls below p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Sequence replays fixed values. Float64 cycles through Floats and IntN
// through Ints (reduced modulo n). Safe for concurrent use.
type Sequence struct {
	Floats []float64
	Ints   []int

	mu sync.Mutex
	fi int
	ii int
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return v
}

func (s *Sequence) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		panic("rng: IntN with non-positive n")
	}
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.ii%len(s.Ints)] % n
	if v < 0 {
		v += n
	}
	s.ii++
	return v
}

// Seeded returns a reproducible source, used by simulations that need a
// stable run from a known seed.
func Seeded(seed uint64) Source {
	return &locked{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
