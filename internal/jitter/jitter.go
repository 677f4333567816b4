// Package jitter provides a thread-safe source of randomized durations for
// the saga store's index-declaration timer. The goal is per-process jitter
// against a thundering herd when a fleet of bus instances boots together,
// not cryptographic randomness.
package jitter

import (
	"math/rand"
	"sync"
	"time"
)

// source is the single top-level generator every per-goroutine generator is
// seeded from. math/rand's global functions are already safe for
// concurrent use, but we route seeding through our own mutex-guarded
// source so seeding is reproducible in tests via Seed.
var (
	sourceMu sync.Mutex
	source   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Seed reseeds the shared source. Intended for deterministic tests.
func Seed(seed int64) {
	sourceMu.Lock()
	defer sourceMu.Unlock()
	source = rand.New(rand.NewSource(seed))
}

func nextSeed() int64 {
	sourceMu.Lock()
	defer sourceMu.Unlock()
	return source.Int63()
}

// pool hands out one *rand.Rand per goroutine that touches it, each seeded
// once from the shared source under sourceMu. Nothing in this package
// shares a *rand.Rand across goroutines without synchronization.
var pool = sync.Pool{
	New: func() any {
		return rand.New(rand.NewSource(nextSeed()))
	},
}

// Duration returns a value uniformly distributed in
// [base-variation, base+variation]. A zero or negative variation returns
// base unchanged; range checks against base are left to callers (see
// saga.SetIndexDeclarationInterval).
func Duration(base, variation time.Duration) time.Duration {
	if variation <= 0 {
		return base
	}

	r := pool.Get().(*rand.Rand)
	defer pool.Put(r)

	// [-variation, +variation]
	offset := time.Duration(r.Int63n(int64(2*variation+1))) - variation
	return base + offset
}
