package service

import (
	"math/rand"
	"sync"
	"time"
)

// Package-wide randomness shared by services that do not need their own
// stream. Guarded because math/rand sources are not safe for concurrent use.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func defaultRoll() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64()
}

// defaultRandInt draws uniformly from [lo, hi).
func defaultRandInt(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	rngMu.Lock()
	defer rngMu.Unlock()
	return lo + rng.Int63n(hi-lo)
}
