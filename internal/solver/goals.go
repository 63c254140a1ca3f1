package solver

import (
	"fmt"
	"strconv"
	"strings"
)

// Goal is one of the scoring criteria a conversation can have.
type Goal int

const (
	GoalSpark Goal = iota
	GoalSparkFailure
	GoalConsecutiveSpark
	GoalConsecutiveSparkFailure
	GoalAccumulatedFavor
	GoalMaxFavor
	GoalFreeTalk

	NumGoals
)

var goalNames = [NumGoals]string{
	GoalSpark:                   "Spark",
	GoalSparkFailure:            "Spark Failure",
	GoalConsecutiveSpark:        "Consecutive Spark",
	GoalConsecutiveSparkFailure: "Consecutive Spark Failure",
	GoalAccumulatedFavor:        "Accumulated Favor",
	GoalMaxFavor:                "Max Favor",
	GoalFreeTalk:                "Free Talk",
}

func (g Goal) String() string {
	if g < 0 || g >= NumGoals {
		return "Goal(" + strconv.Itoa(int(g)) + ")"
	}
	return goalNames[g]
}

// Valid reports whether g is one of the seven goals.
func (g Goal) Valid() bool { return g >= 0 && g < NumGoals }

// ParseGoal accepts a goal id ("4") or a name in any case, with or without spaces/underscores.
func ParseGoal(s string) (Goal, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if g := Goal(n); g.Valid() {
			return g, nil
		}
		return 0, fmt.Errorf("%w: %d", ErrUnknownGoal, n)
	}
	key := normalizeGoalName(s)
	for g := Goal(0); g < NumGoals; g++ {
		if normalizeGoalName(goalNames[g]) == key {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGoal, s)
}

func normalizeGoalName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

// ── Goal predicates ─────────────────────────────────────────────────

// goalMetric extracts the counter a goal is judged on. A goal's cell at threshold p is satisfied
// when the metric is >= p. Free talk has no counter and is always satisfied.
var goalMetric = [NumGoals]func(o *Outcome) int{
	GoalSpark:                   func(o *Outcome) int { return o.Spark },
	GoalSparkFailure:            func(o *Outcome) int { return o.Failure },
	GoalConsecutiveSpark:        func(o *Outcome) int { return o.MaxConsecutiveSpark },
	GoalConsecutiveSparkFailure: func(o *Outcome) int { return o.MaxConsecutiveFailure },
	GoalAccumulatedFavor:        func(o *Outcome) int { return o.AccumulatedFavor },
	GoalMaxFavor:                func(o *Outcome) int { return o.MaxFavor },
	GoalFreeTalk:                nil,
}

// Satisfied evaluates the goal predicate for one outcome at threshold param.
func (g Goal) Satisfied(o Outcome, param int) bool {
	m := goalMetric[g]
	if m == nil {
		return true
	}
	return m(&o) >= param
}

// ── Catalogue ───────────────────────────────────────────────────────

// Catalogue holds the number of threshold parameters tracked per goal. Parameters run from 0 to
// range-1. The ranges are fixed for a search; a value past the end is an error, not a resize.
type Catalogue [NumGoals]int

// DefaultCatalogue matches the largest values seen in game.
var DefaultCatalogue = Catalogue{
	GoalSpark:                   8,
	GoalSparkFailure:            8,
	GoalConsecutiveSpark:        8,
	GoalConsecutiveSparkFailure: 8,
	GoalAccumulatedFavor:        250,
	GoalMaxFavor:                150,
	GoalFreeTalk:                1,
}

// Validate rejects empty ranges and a free talk range other than one.
func (c Catalogue) Validate() error {
	for g := Goal(0); g < NumGoals; g++ {
		if c[g] < 1 {
			return fmt.Errorf("goal %s: range must be at least 1, got %d", g, c[g])
		}
	}
	if c[GoalFreeTalk] != 1 {
		return fmt.Errorf("goal %s takes no parameter, range must be 1, got %d", GoalFreeTalk, c[GoalFreeTalk])
	}
	return nil
}

// CheckParam reports whether param is inside the goal's configured range.
func (c Catalogue) CheckParam(g Goal, param int) error {
	if !g.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownGoal, int(g))
	}
	if param < 0 || param >= c[g] {
		return fmt.Errorf("%w: %s param %d, range 0..%d", ErrThresholdOutOfRange, g, param, c[g]-1)
	}
	return nil
}
