package solver

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Score is the success probability and strict EV one assignment reaches for a cell.
type Score struct {
	Success float64
	EV      float64
}

// Explanation is the full evaluation of one explicit assignment.
type Explanation struct {
	Items  []ItemID // slot-index order
	Steps  []Step   // every node visited, in walk order
	Leaves int

	// Mass is the total leaf probability. It is 1 up to rounding.
	Mass float64
	// MeanFavor and MedianFavor summarise accumulated favor over the leaf distribution.
	MeanFavor   float64
	MedianFavor float64

	Scores [NumGoals][]Score
}

// Explain walks a single assignment with tracing on. items are in slot-index order and must all
// come from req.Pool.
func (s *Solver) Explain(req Request, items []ItemID) (*Explanation, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if len(items) != req.Layout.NumSlots {
		return nil, fmt.Errorf("%w: %d items for %d slots", ErrInvalidLayout, len(items), req.Layout.NumSlots)
	}
	byID := make(map[ItemID]*Item, len(req.Pool))
	for i := range req.Pool {
		byID[req.Pool[i].ID] = &req.Pool[i]
	}
	slots := make([]Item, len(items))
	used := make(map[ItemID]bool, len(items))
	for i, id := range items {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d is not in the pool", ErrInvalidItem, id)
		}
		if used[id] {
			return nil, fmt.Errorf("%w: id %d", ErrDuplicateItem, id)
		}
		used[id] = true
		slots[i] = *it
	}

	ex := &Explanation{Items: append([]ItemID(nil), items...)}
	stats := newCellStats(s.opts.Catalogue)
	var leaves []Outcome
	ex.Leaves = walk(slots, req.Layout, req.Interest, req.Favor,
		func(o Outcome) {
			stats.add(o)
			leaves = append(leaves, o)
		},
		func(st Step) { ex.Steps = append(ex.Steps, st) },
	)

	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].AccumulatedFavor < leaves[j].AccumulatedFavor })
	favor := make([]float64, len(leaves))
	weights := make([]float64, len(leaves))
	for i, o := range leaves {
		favor[i] = float64(o.AccumulatedFavor)
		weights[i] = o.Chance
	}
	ex.Mass = floats.Sum(weights)
	if ex.Mass > 0 {
		ex.MeanFavor = stat.Mean(favor, weights)
		ex.MedianFavor = stat.Quantile(0.5, stat.Empirical, favor, weights)
	}

	for g := Goal(0); g < NumGoals; g++ {
		ex.Scores[g] = make([]Score, s.opts.Catalogue[g])
		for p := range ex.Scores[g] {
			sum := stats.get(g, p)
			ex.Scores[g][p] = Score{Success: sum.Success, EV: strictEV(sum)}
		}
	}
	return ex, nil
}
