package solver

import "fmt"

// ItemID identifies a piece of knowledge. Assignments are stored as flat runs of ItemIDs in the
// arena, so the type is kept as small as the data allows.
type ItemID uint16

// ComboEffect is a timed modifier that lowers the target thresholds for later slots.
type ComboEffect struct {
	Delay    int
	Duration int
	Interest int
	Favor    int
}

// Item is one candidate for a slot.
type Item struct {
	ID           ItemID
	Name         string
	Interest     float64
	FavorMin     int
	FavorMax     int
	AverageFavor int
	Combo        ComboEffect
}

// NewItem builds an item and derives its average favor.
func NewItem(id ItemID, name string, interest float64, favorMin, favorMax int, combo ComboEffect) Item {
	it := Item{
		ID:       id,
		Name:     name,
		Interest: interest,
		FavorMin: favorMin,
		FavorMax: favorMax,
		Combo:    combo,
	}
	it.Finalize()
	return it
}

// Finalize collapses the favor range to its integer average.
func (it *Item) Finalize() {
	it.AverageFavor = (it.FavorMin + it.FavorMax) / 2
}

// SlotLayout describes how many slots a constellation has and the order they resolve in.
type SlotLayout struct {
	NumSlots int
	Order    []int
}

// Validate checks that Order is a permutation of 0..NumSlots-1.
func (l SlotLayout) Validate() error {
	if l.NumSlots < 0 {
		return fmt.Errorf("%w: negative slot count %d", ErrInvalidLayout, l.NumSlots)
	}
	if len(l.Order) != l.NumSlots {
		return fmt.Errorf("%w: %d slots but order has %d entries", ErrInvalidLayout, l.NumSlots, len(l.Order))
	}
	seen := make([]bool, l.NumSlots)
	for _, s := range l.Order {
		if s < 0 || s >= l.NumSlots {
			return fmt.Errorf("%w: slot %d out of range", ErrInvalidLayout, s)
		}
		if seen[s] {
			return fmt.Errorf("%w: slot %d repeated", ErrInvalidLayout, s)
		}
		seen[s] = true
	}
	return nil
}

// Outcome is the snapshot taken at a leaf of the walk.
type Outcome struct {
	Chance                float64
	WeightedFavor         float64 // Chance * AccumulatedFavor
	AccumulatedFavor      int
	MaxFavor              int
	Spark                 int
	Failure               int
	MaxConsecutiveSpark   int
	MaxConsecutiveFailure int
}

// Best is the best assignment recorded for one (goal, threshold) cell.
type Best struct {
	Items   []ItemID // slot-index order
	Success float64
	EV      float64
}

// Empty reports whether no assignment has been recorded.
func (b Best) Empty() bool { return len(b.Items) == 0 }

// Mode selects the search strategy.
type Mode int

const (
	ModeExhaustive Mode = iota
	ModeFast
)

func (m Mode) String() string {
	if m == ModeFast {
		return "fast"
	}
	return "exhaustive"
}

// ResultsVersion tags stored results. Fast results are stored one version lower so an
// exhaustive solve supersedes them.
const ResultsVersion = 3

// Version returns the stored-results version for the mode.
func (m Mode) Version() int {
	if m == ModeFast {
		return ResultsVersion - 1
	}
	return ResultsVersion
}

// Request is everything one search needs. The solver never looks anything up on its own.
type Request struct {
	Pool     []Item
	Layout   SlotLayout
	Interest int
	Favor    int
	Mode     Mode
}
