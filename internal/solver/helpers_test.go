package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func item(id ItemID, interest float64, favorMin, favorMax int) Item {
	return NewItem(id, "k"+string(rune('A'+int(id)%26)), interest, favorMin, favorMax, ComboEffect{})
}

func comboItem(id ItemID, interest float64, favor int, combo ComboEffect) Item {
	return NewItem(id, "c"+string(rune('A'+int(id)%26)), interest, favor, favor, combo)
}

func identity(k int) SlotLayout {
	l := SlotLayout{NumSlots: k, Order: make([]int, k)}
	for i := range l.Order {
		l.Order[i] = i
	}
	return l
}

// mixedPool is a small pool with uncertain items, certain items and one combo.
func mixedPool() []Item {
	return []Item{
		item(1, 10, 4, 8),
		item(2, 25, 10, 20),
		item(3, 40, 1, 3),
		item(4, 5, 30, 40),
		comboItem(5, 15, 6, ComboEffect{Delay: 1, Duration: 2, Interest: 8, Favor: 2}),
	}
}

func newSolver(t *testing.T, opts Options) *Solver {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func collect(items []Item, layout SlotLayout, interest, favor int) ([]Outcome, []Step) {
	var leaves []Outcome
	var steps []Step
	walk(items, layout, interest, favor,
		func(o Outcome) { leaves = append(leaves, o) },
		func(s Step) { steps = append(steps, s) })
	return leaves, steps
}
