package matching

import "math/rand"

// Rand is the injected randomness source so probability draws and slot
// picks are deterministic in tests.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a math/rand source seeded by the caller.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}
