package solver

// Table is the best-candidate table produced by one search, indexed by goal and threshold.
type Table struct {
	Mode      Mode
	Catalogue Catalogue
	cells     [NumGoals][]Best
}

// NewTable returns a table with every cell empty.
func NewTable(mode Mode, cat Catalogue) *Table {
	t := &Table{Mode: mode, Catalogue: cat}
	for g := Goal(0); g < NumGoals; g++ {
		t.cells[g] = make([]Best, cat[g])
	}
	return t
}

// Version is the stored-results version for the table's mode.
func (t *Table) Version() int { return t.Mode.Version() }

// Cell returns the best recorded for (goal, param).
func (t *Table) Cell(g Goal, param int) (Best, error) {
	if err := t.Catalogue.CheckParam(g, param); err != nil {
		return Best{}, err
	}
	return t.cells[g][param], nil
}

// Set overwrites a cell. Used when rebuilding a table from stored rows.
func (t *Table) Set(g Goal, param int, b Best) error {
	if err := t.Catalogue.CheckParam(g, param); err != nil {
		return err
	}
	t.cells[g][param] = b
	return nil
}

// Each calls fn for every cell in goal, then parameter order.
func (t *Table) Each(fn func(g Goal, param int, b Best)) {
	for g := Goal(0); g < NumGoals; g++ {
		for p, b := range t.cells[g] {
			fn(g, p, b)
		}
	}
}

// Empty reports whether no cell holds an assignment.
func (t *Table) Empty() bool {
	for g := Goal(0); g < NumGoals; g++ {
		for _, b := range t.cells[g] {
			if !b.Empty() {
				return false
			}
		}
	}
	return true
}
