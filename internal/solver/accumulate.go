package solver

// cellSum is the running total for one (goal, threshold) cell during a walk.
type cellSum struct {
	Success float64 // sum of leaf probabilities that satisfy the cell
	EV      float64 // sum of probability-weighted favor of those leaves
}

// cellStats accumulates every goal and every threshold in a single pass over the leaves.
type cellStats struct {
	cells [NumGoals][]cellSum
}

func newCellStats(cat Catalogue) *cellStats {
	cs := &cellStats{}
	for g := Goal(0); g < NumGoals; g++ {
		cs.cells[g] = make([]cellSum, cat[g])
	}
	return cs
}

func (cs *cellStats) reset() {
	for g := range cs.cells {
		clear(cs.cells[g])
	}
}

// add folds one leaf into every cell it satisfies. Predicates are monotone in the threshold
// (metric >= p), so only the prefix 0..metric needs touching.
func (cs *cellStats) add(o Outcome) {
	for g := Goal(0); g < NumGoals; g++ {
		row := cs.cells[g]
		limit := len(row)
		if m := goalMetric[g]; m != nil {
			limit = min(limit, m(&o)+1)
		}
		for p := 0; p < limit; p++ {
			row[p].Success += o.Chance
			row[p].EV += o.WeightedFavor
		}
	}
}

// get returns the totals for one cell.
func (cs *cellStats) get(g Goal, p int) cellSum { return cs.cells[g][p] }
