package spinwheel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntInRange(t *testing.T) {
	tests := []struct {
		name     string
		draw     float64
		min, max int
		expected int
	}{
		{"lowest draw", 0, 5, 7, 5},
		{"middle draw", 0.5, 5, 7, 6},
		{"highest draw", 0.9999999, 5, 7, 7},
		{"single value", 0.42, 3, 3, 3},
		{"out of range source clamps", 1.0, 5, 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := RandomFunc(func() float64 { return tt.draw })
			got, err := IntInRange(source, tt.min, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := IntInRange(NewMathRandomSource(), 7, 5)
	assert.ErrorIs(t, err, ErrInvalidTurnRange)
}

func TestIntInRange_CoversWholeRange(t *testing.T) {
	source := NewMathRandomSource()
	seen := make(map[int]int)
	for range 10000 {
		v, err := IntInRange(source, DefaultMinExtraTurns, DefaultMaxExtraTurns)
		require.NoError(t, err)
		seen[v]++
	}
	assert.Len(t, seen, DefaultMaxExtraTurns-DefaultMinExtraTurns+1)
}

func TestSecureRandomGenerator(t *testing.T) {
	t.Run("values in unit interval", func(t *testing.T) {
		g := NewSecureRandomGenerator(16)
		// crosses several refills
		for range 100 {
			v := g.Float64()
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 1.0)
		}
	})

	t.Run("default cache size", func(t *testing.T) {
		g := NewSecureRandomGenerator()
		assert.Equal(t, DefaultSecureRandomCacheSize, g.cacheSize)

		g = NewSecureRandomGenerator(-3)
		assert.Equal(t, DefaultSecureRandomCacheSize, g.cacheSize)
	})

	t.Run("concurrent use", func(t *testing.T) {
		g := NewSecureRandomGenerator(8)
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 50 {
					v := g.Float64()
					assert.True(t, v >= 0 && v < 1)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("drives the selector", func(t *testing.T) {
		selector := NewRewardSelector(MustRewardTable(DefaultRewards()), NewSecureRandomGenerator())
		for range 100 {
			reward, idx := selector.Select()
			assert.Equal(t, DefaultRewards()[idx], reward)
		}
	})
}
