// Package xrand models the "random source" capability from spec.md §9:
// production wiring uses the system generator, tests inject a seeded one
// for determinism.
package xrand

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the random capability ChainSync depends on: shuffling peer
// iteration order and sampling peers for propagation.
type Source interface {
	Shuffle(n int, swap func(i, j int))
	Intn(n int) int
	Float64() float64
}

// System returns a Source backed by a process-global generator seeded from
// the current time, safe for concurrent use.
func System() Source {
	return &locked{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Seeded returns a deterministic Source for tests.
func Seeded(seed int64) Source {
	return &locked{r: rand.New(rand.NewSource(seed))}
}

type locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *locked) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

func (l *locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 {
		return 0
	}
	return l.r.Intn(n)
}

func (l *locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
