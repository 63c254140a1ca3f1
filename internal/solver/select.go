package solver

// DefaultTolerance is the EV that one whole unit of success probability is worth when comparing
// a candidate against the current best.
const DefaultTolerance = 15.0 * 100.0

// ShouldReplace applies the soft-dominance rule: a candidate wins over a non-empty best when its
// EV beats the best's EV plus the success probability it gives up, scaled by tolerance.
func ShouldReplace(best Best, success, ev, tolerance float64) bool {
	if best.Empty() {
		return true
	}
	return ev > best.EV+(best.Success-success)*tolerance
}

// strictEV turns a cell's raw sums into the value candidates are ranked by.
func strictEV(c cellSum) float64 {
	return c.EV * c.Success
}

// consider offers the assignment that produced sums to one cell of table.
func consider(table *Table, g Goal, p int, sum cellSum, items []ItemID, tolerance float64) bool {
	ev := strictEV(sum)
	cell := &table.cells[g][p]
	if !ShouldReplace(*cell, sum.Success, ev, tolerance) {
		return false
	}
	cell.Success = sum.Success
	cell.EV = ev
	cell.Items = append(cell.Items[:0], items...)
	return true
}
