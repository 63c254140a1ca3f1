package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func leafMass(leaves []Outcome) float64 {
	p := make([]float64, len(leaves))
	for i, o := range leaves {
		p[i] = o.Chance
	}
	return floats.Sum(p)
}

func TestWalkProbabilityMass(t *testing.T) {
	pool := mixedPool()
	layouts := []SlotLayout{
		identity(5),
		{NumSlots: 5, Order: []int{4, 2, 0, 3, 1}},
	}
	for _, layout := range layouts {
		for _, interest := range []int{0, 12, 30, 100} {
			leaves, _ := collect(pool, layout, interest, 3)
			assert.InDelta(t, 1.0, leafMass(leaves), 1e-9, "order=%v interest=%d", layout.Order, interest)
		}
	}
}

func TestWalkCertainItems(t *testing.T) {
	pool := []Item{item(1, 50, 10, 10), item(2, 60, 10, 10)}
	leaves, _ := collect(pool, identity(2), 40, 3)

	require.Len(t, leaves, 1, "certain items never branch into failure")
	o := leaves[0]
	assert.Equal(t, 1.0, o.Chance)
	assert.Equal(t, 2, o.Spark)
	assert.Equal(t, 0, o.Failure)
	assert.Equal(t, 2, o.MaxConsecutiveSpark)
	// streak 7 then 14
	assert.Equal(t, 14, o.MaxFavor)
	assert.Equal(t, 21, o.AccumulatedFavor)
	assert.Equal(t, 21.0, o.WeightedFavor)
}

func TestWalkZeroTargetInterest(t *testing.T) {
	leaves, _ := collect([]Item{item(1, 0.5, 1, 1)}, identity(1), 0, 0)
	require.Len(t, leaves, 1)
	assert.Equal(t, 1.0, leaves[0].Chance)
}

func TestWalkZeroInterestItem(t *testing.T) {
	leaves, _ := collect([]Item{item(1, 0, 5, 5)}, identity(1), 10, 0)
	require.Len(t, leaves, 2)
	assert.Equal(t, 0.0, leaves[0].Chance, "spark branch is always walked")
	assert.Equal(t, 1.0, leaves[1].Chance)
	assert.Equal(t, 1, leaves[1].Failure)
	assert.Equal(t, 1, leaves[1].MaxConsecutiveFailure)
}

func TestWalkMinimumGain(t *testing.T) {
	// target favor above the item's average still earns one point
	leaves, _ := collect([]Item{item(1, 100, 2, 2)}, identity(1), 10, 50)
	require.Len(t, leaves, 1)
	assert.Equal(t, 1, leaves[0].AccumulatedFavor)
}

func TestWalkFailureResetsStreak(t *testing.T) {
	pool := []Item{item(1, 5, 10, 10), item(2, 5, 10, 10), item(3, 5, 10, 10)}
	leaves, _ := collect(pool, identity(3), 10, 0)
	require.Len(t, leaves, 8)

	// spark, fail, spark
	o := leaves[2]
	assert.Equal(t, 2, o.Spark)
	assert.Equal(t, 1, o.Failure)
	assert.Equal(t, 1, o.MaxConsecutiveSpark)
	assert.Equal(t, 10, o.MaxFavor)
	assert.Equal(t, 20, o.AccumulatedFavor)
	assert.InDelta(t, 0.125, o.Chance, 1e-12)

	// fail, fail, fail
	last := leaves[7]
	assert.Equal(t, 3, last.MaxConsecutiveFailure)
	assert.Equal(t, 0, last.AccumulatedFavor)
}

func TestWalkFollowsLayoutOrder(t *testing.T) {
	pool := []Item{item(1, 100, 1, 1), item(2, 100, 1, 1), item(3, 100, 1, 1)}
	_, steps := collect(pool, SlotLayout{NumSlots: 3, Order: []int{2, 0, 1}}, 10, 0)
	require.Len(t, steps, 3)
	assert.Equal(t, []ItemID{3, 1, 2}, []ItemID{steps[0].Item, steps[1].Item, steps[2].Item})
	assert.Equal(t, []int{2, 0, 1}, []int{steps[0].Slot, steps[1].Slot, steps[2].Slot})
}

func firstStepPerDepth(steps []Step, depth int) []Step {
	out := make([]Step, depth)
	seen := make([]bool, depth)
	for _, s := range steps {
		if !seen[s.Depth] {
			seen[s.Depth] = true
			out[s.Depth] = s
		}
	}
	return out
}

func TestWalkComboEffect(t *testing.T) {
	pool := []Item{
		comboItem(1, 5, 10, ComboEffect{Delay: 1, Duration: 1, Interest: 10, Favor: 2}),
		item(2, 5, 10, 10),
		item(3, 5, 10, 10),
	}
	_, steps := collect(pool, identity(3), 20, 6)
	byDepth := firstStepPerDepth(steps, 3)

	assert.Equal(t, 20.0, byDepth[0].TargetInterest)
	assert.Equal(t, 6, byDepth[0].TargetFavor)

	// delay runs out: applied
	assert.Equal(t, 10.0, byDepth[1].TargetInterest)
	assert.Equal(t, 4, byDepth[1].TargetFavor)
	assert.InDelta(t, 0.5, byDepth[1].Chance, 1e-12)

	// duration runs out: reverted
	assert.Equal(t, 20.0, byDepth[2].TargetInterest)
	assert.Equal(t, 6, byDepth[2].TargetFavor)
}

func TestWalkZeroDelayEffectOnlyReverts(t *testing.T) {
	pool := []Item{
		comboItem(1, 5, 10, ComboEffect{Delay: 0, Duration: 2, Interest: 5, Favor: 1}),
		item(2, 5, 10, 10),
		item(3, 5, 10, 10),
	}
	_, steps := collect(pool, identity(3), 20, 6)
	byDepth := firstStepPerDepth(steps, 3)

	assert.Equal(t, 20.0, byDepth[1].TargetInterest)
	assert.Equal(t, 25.0, byDepth[2].TargetInterest)
	assert.Equal(t, 7, byDepth[2].TargetFavor)
}

func TestWalkBranchesDoNotShareEffects(t *testing.T) {
	pool := []Item{
		comboItem(1, 5, 10, ComboEffect{Delay: 1, Duration: 3, Interest: 4, Favor: 0}),
		comboItem(2, 5, 10, ComboEffect{Delay: 1, Duration: 3, Interest: 4, Favor: 0}),
		item(3, 5, 10, 10),
		item(4, 5, 10, 10),
	}
	_, steps := collect(pool, identity(4), 20, 0)

	// effects do not depend on spark outcome, so every node at a depth sees the same target
	want := map[int]float64{}
	for _, s := range steps {
		if v, ok := want[s.Depth]; ok {
			assert.Equal(t, v, s.TargetInterest, "depth %d", s.Depth)
			continue
		}
		want[s.Depth] = s.TargetInterest
	}
	assert.Equal(t, map[int]float64{0: 20, 1: 16, 2: 12, 3: 12}, want)
}

func TestSparkChance(t *testing.T) {
	assert.Equal(t, 0.5, SparkChance(10, 20))
	assert.Equal(t, 1.0, SparkChance(30, 20))
	assert.Equal(t, 1.0, SparkChance(1, -5))
	assert.Equal(t, 0.0, SparkChance(0, 0))
}
