package spinwheel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRewardTable(t *testing.T) {
	tests := []struct {
		name      string
		rewards   []Reward
		expectErr error
	}{
		{name: "default rewards", rewards: DefaultRewards()},
		{name: "weights need not sum to one", rewards: []Reward{{Name: "a", Weight: 3}, {Name: "b", Weight: 1}}},
		{name: "empty", rewards: nil, expectErr: ErrEmptyRewardTable},
		{name: "zero weight", rewards: []Reward{{Name: "a", Weight: 0}}, expectErr: ErrInvalidWeight},
		{name: "negative weight", rewards: []Reward{{Name: "a", Weight: -1}}, expectErr: ErrInvalidWeight},
		{name: "NaN weight", rewards: []Reward{{Name: "a", Weight: math.NaN()}}, expectErr: ErrInvalidWeight},
		{name: "blank name", rewards: []Reward{{Name: "  ", Weight: 1}}, expectErr: ErrInvalidRewardName},
		{
			name:      "duplicate name",
			rewards:   []Reward{{Name: "a", Weight: 1}, {Name: "a", Weight: 2}},
			expectErr: ErrDuplicateReward,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewRewardTable(tt.rewards)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.rewards), table.Len())
		})
	}
}

func TestRewardTable_IsImmutable(t *testing.T) {
	rewards := DefaultRewards()
	table := MustRewardTable(rewards)

	rewards[0].Name = "changed"
	assert.Equal(t, "Orgwide Survey", table.At(0).Name)

	out := table.Rewards()
	out[1].Weight = 99
	assert.InDelta(t, 0.15, table.At(1).Weight, 1e-12)
}

func TestRewardTable_Lookup(t *testing.T) {
	table := MustRewardTable(DefaultRewards())

	r, i, err := table.Lookup("Yoga Session")
	require.NoError(t, err)
	assert.Equal(t, 2, i)
	assert.Equal(t, "#00C0FF", r.Color)

	_, _, err = table.Lookup("Free Lunch")
	assert.ErrorIs(t, err, ErrUnknownReward)
	assert.Equal(t, -1, table.IndexOf("Free Lunch"))
}

func TestRewardTable_Equal(t *testing.T) {
	a := MustRewardTable(DefaultRewards())
	b := MustRewardTable(DefaultRewards())
	assert.True(t, a.Equal(b))

	changed := DefaultRewards()
	changed[4].Weight = 0.2
	assert.False(t, a.Equal(MustRewardTable(changed)))
}

func TestSelectReward_CumulativeIntervals(t *testing.T) {
	table := MustRewardTable(DefaultRewards())
	// cumulative shares: .55 .70 .80 .90 1.0
	tests := []struct {
		r        float64
		expected string
	}{
		{0, "Orgwide Survey"},
		{0.3, "Orgwide Survey"},
		{0.549, "Orgwide Survey"},
		{0.551, "Orgwide Webinar"},
		{0.699, "Orgwide Webinar"},
		{0.75, "Yoga Session"},
		{0.85, "Group Coaching"},
		{0.95, "D&I Session"},
		{math.Nextafter(1, 0), "D&I Session"},
	}

	for _, tt := range tests {
		reward, index := SelectReward(table, func() float64 { return tt.r })
		assert.Equal(t, tt.expected, reward.Name, "r=%v", tt.r)
		assert.Equal(t, table.IndexOf(tt.expected), index)
	}
}

func TestSelectReward_UnnormalizedWeights(t *testing.T) {
	table := MustRewardTable([]Reward{{Name: "a", Weight: 1}, {Name: "b", Weight: 3}})

	r, _ := SelectReward(table, func() float64 { return 0.24 })
	assert.Equal(t, "a", r.Name)
	// the interval is closed on the right
	r, _ = SelectReward(table, func() float64 { return 0.25 })
	assert.Equal(t, "a", r.Name)
	r, _ = SelectReward(table, func() float64 { return 0.26 })
	assert.Equal(t, "b", r.Name)
}

func TestFindRewardIndex_FallsBackToLast(t *testing.T) {
	// drifted cumulative sums that end just below 1
	cumulative := []float64{0.1, 0.3, 0.9999999}
	assert.Equal(t, 2, findRewardIndex(cumulative, 0.99999995))
	assert.Equal(t, 2, findRewardIndex(cumulative, 1.5))
	assert.Equal(t, 0, findRewardIndex(cumulative, -0.1))
}

func TestRewardSelector_FrequencyConvergence(t *testing.T) {
	const samples = 100_000
	table := MustRewardTable(DefaultRewards())
	selector := NewRewardSelector(table, NewMathRandomSource())

	counts := make([]int, table.Len())
	for range samples {
		_, i := selector.Select()
		counts[i]++
	}

	for i := range table.Len() {
		p := table.Share(i)
		stdErr := math.Sqrt(p * (1 - p) / samples)
		got := float64(counts[i]) / samples
		assert.InDelta(t, p, got, 5*stdErr, "reward %s", table.At(i).Name)
	}
}

func TestRewardSelector_InjectedSource(t *testing.T) {
	table := MustRewardTable(DefaultRewards())
	draws := []float64{0.1, 0.6, 0.99}
	i := 0
	selector := NewRewardSelector(table, RandomFunc(func() float64 {
		v := draws[i]
		i++
		return v
	}))

	var names []string
	for range draws {
		r, _ := selector.Select()
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Orgwide Survey", "Orgwide Webinar", "D&I Session"}, names)
	assert.True(t, selector.Table().Equal(table))
}
