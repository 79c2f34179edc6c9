package spinwheel

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// DefaultSecureRandomCacheSize is the number of floats pre-generated per refill
const DefaultSecureRandomCacheSize = 1024

// RandomSource yields floats in [0, 1)
type RandomSource interface {
	Float64() float64
}

// RandomFunc adapts a plain function to RandomSource
type RandomFunc func() float64

// Float64 calls f.
func (f RandomFunc) Float64() float64 { return f() }

// NewMathRandomSource returns a RandomSource backed by the auto-seeded math/rand/v2 generator.
func NewMathRandomSource() RandomSource { return RandomFunc(mrand.Float64) }

// IntInRange maps a draw from source to an integer in [min, max] (inclusive).
func IntInRange(source RandomSource, min, max int) (int, error) {
	if min > max {
		return 0, ErrInvalidTurnRange
	}
	if min == max {
		return min, nil
	}

	rangeSize := max - min + 1
	result := int(source.Float64()*float64(rangeSize)) + min

	// Float64 < 1 should keep us in bounds; clamp anyway for misbehaving sources
	if result > max {
		result = max
	}
	return result, nil
}

// SecureRandomGenerator implements RandomSource using crypto/rand with caching
type SecureRandomGenerator struct {
	cache      []float64
	cacheSize  int
	cacheIndex int
	cacheMtx   sync.Mutex
}

// NewSecureRandomGenerator creates a crypto-backed random source with the
// given cache size, or DefaultSecureRandomCacheSize when none is provided.
func NewSecureRandomGenerator(cacheSize ...int) *SecureRandomGenerator {
	size := DefaultSecureRandomCacheSize
	if len(cacheSize) > 0 && cacheSize[0] > 0 {
		size = cacheSize[0]
	}

	g := &SecureRandomGenerator{
		cache:     make([]float64, size),
		cacheSize: size,
	}
	g.refillCache()
	return g
}

// refillCache refills the random number cache
func (g *SecureRandomGenerator) refillCache() {
	for i := range g.cacheSize {
		val, err := generateSecureFloat()
		if err != nil {
			// crypto/rand failure is not fatal for a cosmetic draw
			val = mrand.Float64()
		}
		g.cache[i] = val
	}
	g.cacheIndex = 0
}

// Float64 returns the next cached float in [0, 1)
func (g *SecureRandomGenerator) Float64() float64 {
	g.cacheMtx.Lock()
	defer g.cacheMtx.Unlock()

	if g.cacheIndex >= g.cacheSize {
		g.refillCache()
	}

	result := g.cache[g.cacheIndex]
	g.cacheIndex++
	return result
}

// generateSecureFloat generates a secure random float between 0 and 1 (exclusive of 1)
func generateSecureFloat() (float64, error) {
	randomBig, err := rand.Int(rand.Reader, big.NewInt(1<<53)) // 53 bits of mantissa
	if err != nil {
		return 0, err
	}
	return float64(randomBig.Int64()) / float64(1<<53), nil
}
