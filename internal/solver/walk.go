package solver

import "math"

// epsilon keeps the spark chance finite when effects push the target interest to zero or below.
const epsilon = 2.220446049250313e-16

// activeEffect is a branch-local copy of a combo effect with its own countdowns.
type activeEffect struct {
	ComboEffect
}

// simState is the mutable state of one branch. Branches never share it: every branch point
// works on a clone.
type simState struct {
	chance         float64
	targetInterest float64
	targetFavor    int

	spark                 int
	failure               int
	accumulatedFavor      int
	currentMaxFavor       int
	maxMaxFavor           int
	consecutiveSpark      int
	maxConsecutiveSpark   int
	consecutiveFailure    int
	maxConsecutiveFailure int

	effects []activeEffect
}

func (s *simState) clone() simState {
	c := *s
	c.effects = nil
	if len(s.effects) > 0 {
		c.effects = make([]activeEffect, len(s.effects))
		copy(c.effects, s.effects)
	}
	return c
}

func (s *simState) final() Outcome {
	return Outcome{
		Chance:                s.chance,
		WeightedFavor:         s.chance * float64(s.accumulatedFavor),
		AccumulatedFavor:      s.accumulatedFavor,
		MaxFavor:              s.maxMaxFavor,
		Spark:                 s.spark,
		Failure:               s.failure,
		MaxConsecutiveSpark:   s.maxConsecutiveSpark,
		MaxConsecutiveFailure: s.maxConsecutiveFailure,
	}
}

// tickEffects advances every active effect by one slot. An effect still in its delay applies when
// the delay runs out; one in its duration reverts when the duration runs out. Spent effects are
// dropped.
func (s *simState) tickEffects() {
	kept := s.effects[:0]
	for _, e := range s.effects {
		if e.Delay > 0 {
			e.Delay--
			if e.Delay <= 0 {
				s.targetInterest -= float64(e.Interest)
				s.targetFavor -= e.Favor
			}
		} else if e.Duration > 0 {
			e.Duration--
			if e.Duration <= 0 {
				s.targetInterest += float64(e.Interest)
				s.targetFavor += e.Favor
			}
		}
		if e.Delay > 0 || e.Duration > 0 {
			kept = append(kept, e)
		}
	}
	s.effects = kept
}

// SparkChance is the probability that item sparks against the given target interest.
func SparkChance(interest, targetInterest float64) float64 {
	return math.Min(interest/math.Max(targetInterest, epsilon), 1.0)
}

// Step describes one slot as the walker resolves it, before branching.
type Step struct {
	Depth          int
	Slot           int
	Item           ItemID
	TargetInterest float64
	TargetFavor    int
	Chance         float64 // spark chance for this slot
	Probability    float64 // probability of reaching this node
}

type walker struct {
	items  []Item // indexed by slot
	order  []int
	emit   func(Outcome)
	trace  func(Step)
	leaves int
}

// walk explores the spark/failure tree for items (indexed by slot) resolved in layout order,
// calling emit once per reachable leaf. trace may be nil.
func walk(items []Item, layout SlotLayout, interest, favor int, emit func(Outcome), trace func(Step)) int {
	w := walker{items: items, order: layout.Order, emit: emit, trace: trace}
	st := simState{
		chance:         1.0,
		targetInterest: float64(interest),
		targetFavor:    favor,
	}
	w.step(&st, 0)
	return w.leaves
}

func (w *walker) step(st *simState, depth int) {
	if depth >= len(w.order) {
		w.leaves++
		w.emit(st.final())
		return
	}

	slot := w.order[depth]
	item := &w.items[slot]

	st.tickEffects()
	if item.Combo.Duration > 0 {
		st.effects = append(st.effects, activeEffect{item.Combo})
	}

	chance := SparkChance(item.Interest, st.targetInterest)
	if w.trace != nil {
		w.trace(Step{
			Depth:          depth,
			Slot:           slot,
			Item:           item.ID,
			TargetInterest: st.targetInterest,
			TargetFavor:    st.targetFavor,
			Chance:         chance,
			Probability:    st.chance,
		})
	}

	// spark
	{
		next := st.clone()
		gain := max(1, item.AverageFavor-next.targetFavor)
		next.currentMaxFavor += gain
		next.accumulatedFavor += next.currentMaxFavor
		next.spark++
		next.maxMaxFavor = max(next.maxMaxFavor, next.currentMaxFavor)

		next.consecutiveSpark++
		next.consecutiveFailure = 0
		next.maxConsecutiveSpark = max(next.maxConsecutiveSpark, next.consecutiveSpark)

		next.chance *= chance
		w.step(&next, depth+1)
	}

	if chance >= 1.0 {
		return
	}

	// spark failure
	{
		next := st.clone()
		next.currentMaxFavor = 0
		next.failure++

		next.consecutiveFailure++
		next.consecutiveSpark = 0
		next.maxConsecutiveFailure = max(next.maxConsecutiveFailure, next.consecutiveFailure)

		next.chance *= 1.0 - chance
		w.step(&next, depth+1)
	}
}
