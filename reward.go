package spinwheel

import (
	"math"
	"sort"
	"strings"
)

// Reward represents one sector of the wheel
type Reward struct {
	Name   string  `json:"name" mapstructure:"name"`     // Identifier and user-facing label
	Weight float64 `json:"weight" mapstructure:"weight"` // Relative weight, need not sum to 1
	Color  string  `json:"color" mapstructure:"color"`   // Presentation only
}

// Validate validates the reward data
func (r *Reward) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidRewardName
	}
	if r.Weight <= 0 || math.IsNaN(r.Weight) || math.IsInf(r.Weight, 0) {
		return ErrInvalidWeight.WithDetails(r.Name)
	}
	return nil
}

// DefaultRewards returns the booth's stock reward list in wheel order.
func DefaultRewards() []Reward {
	return []Reward{
		{Name: "Orgwide Survey", Weight: 0.55, Color: "#043570"},
		{Name: "Orgwide Webinar", Weight: 0.15, Color: "#0a5cad"},
		{Name: "Yoga Session", Weight: 0.10, Color: "#00C0FF"},
		{Name: "Group Coaching", Weight: 0.10, Color: "#0891b2"},
		{Name: "D&I Session", Weight: 0.10, Color: "#065f8a"},
	}
}

// RewardTable is an ordered, immutable list of rewards. The order fixes the
// sector placement on the wheel.
type RewardTable struct {
	rewards     []Reward
	totalWeight float64
}

// NewRewardTable validates rewards and returns a table holding a private copy.
func NewRewardTable(rewards []Reward) (RewardTable, error) {
	if len(rewards) == 0 {
		return RewardTable{}, ErrEmptyRewardTable
	}

	seen := make(map[string]struct{}, len(rewards))
	var total float64
	for i := range rewards {
		if err := rewards[i].Validate(); err != nil {
			return RewardTable{}, err
		}
		if _, dup := seen[rewards[i].Name]; dup {
			return RewardTable{}, ErrDuplicateReward.WithDetails(rewards[i].Name)
		}
		seen[rewards[i].Name] = struct{}{}
		total += rewards[i].Weight
	}

	cp := make([]Reward, len(rewards))
	copy(cp, rewards)
	return RewardTable{rewards: cp, totalWeight: total}, nil
}

// MustRewardTable is like NewRewardTable but panics on invalid input.
func MustRewardTable(rewards []Reward) RewardTable {
	t, err := NewRewardTable(rewards)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rewards (and wheel sectors).
func (t RewardTable) Len() int { return len(t.rewards) }

// At returns the reward at index i.
func (t RewardTable) At(i int) Reward { return t.rewards[i] }

// Rewards returns a copy of the rewards in table order.
func (t RewardTable) Rewards() []Reward {
	cp := make([]Reward, len(t.rewards))
	copy(cp, t.rewards)
	return cp
}

// TotalWeight returns the sum of all weights.
func (t RewardTable) TotalWeight() float64 { return t.totalWeight }

// Share returns the normalized probability of the reward at index i.
func (t RewardTable) Share(i int) float64 { return t.rewards[i].Weight / t.totalWeight }

// IndexOf returns the sector index of the named reward, or -1.
func (t RewardTable) IndexOf(name string) int {
	for i := range t.rewards {
		if t.rewards[i].Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the named reward and its index.
func (t RewardTable) Lookup(name string) (Reward, int, error) {
	i := t.IndexOf(name)
	if i < 0 {
		return Reward{}, -1, ErrUnknownReward.WithDetails(name)
	}
	return t.rewards[i], i, nil
}

// Equal reports whether both tables hold the same rewards in the same order.
func (t RewardTable) Equal(other RewardTable) bool {
	if len(t.rewards) != len(other.rewards) {
		return false
	}
	for i := range t.rewards {
		if t.rewards[i] != other.rewards[i] {
			return false
		}
	}
	return true
}

// cumulativeShares returns the running sum of normalized weights. The last
// element is left as computed; drift below 1.0 is handled by the selector's
// fallback.
func (t RewardTable) cumulativeShares() []float64 {
	cumulative := make([]float64, len(t.rewards))
	var running float64
	for i := range t.rewards {
		running += t.rewards[i].Weight / t.totalWeight
		cumulative[i] = running
	}
	return cumulative
}

// RewardSelector draws rewards from a table according to their weights
type RewardSelector struct {
	table      RewardTable
	cumulative []float64
	source     RandomSource
}

// NewRewardSelector creates a selector over table drawing from source. A nil
// source falls back to math/rand.
func NewRewardSelector(table RewardTable, source RandomSource) *RewardSelector {
	if source == nil {
		source = NewMathRandomSource()
	}
	return &RewardSelector{
		table:      table,
		cumulative: table.cumulativeShares(),
		source:     source,
	}
}

// Table returns the selector's reward table.
func (s *RewardSelector) Table() RewardTable { return s.table }

// Select draws one reward and returns it with its sector index.
func (s *RewardSelector) Select() (Reward, int) {
	i := findRewardIndex(s.cumulative, s.source.Float64())
	return s.table.At(i), i
}

// SelectReward draws one reward from table using rng, which must return values
// in [0, 1).
func SelectReward(table RewardTable, rng func() float64) (Reward, int) {
	i := findRewardIndex(table.cumulativeShares(), rng())
	return table.At(i), i
}

// findRewardIndex returns the first index whose cumulative share is >= r,
// falling back to the last index when floating point drift leaves r above
// every cumulative value.
func findRewardIndex(cumulative []float64, r float64) int {
	i := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] >= r })
	if i >= len(cumulative) {
		return len(cumulative) - 1
	}
	return i
}
