package solver

import (
	"context"
	"slices"
	"sort"
)

// ordering is a heuristic that places a combination's items into slots without trying every
// permutation. Several goals share an ordering, and a shared ordering is walked once.
type ordering int

const (
	orderFavorChance   ordering = iota // descending AverageFavor * chance
	orderChance                        // descending chance
	orderMiddleOutDesc                 // descending chance, strongest in the middle
	orderMiddleOutAsc                  // ascending chance, weakest in the middle
	numOrderings
)

var goalOrdering = [NumGoals]ordering{
	GoalSpark:                   orderFavorChance,
	GoalSparkFailure:            orderFavorChance,
	GoalConsecutiveSpark:        orderMiddleOutDesc,
	GoalConsecutiveSparkFailure: orderMiddleOutAsc,
	GoalAccumulatedFavor:        orderFavorChance,
	GoalMaxFavor:                orderChance,
	GoalFreeTalk:                orderFavorChance,
}

// middleOut spreads sorted around the centre of dst: even sorted indices step right of centre,
// odd ones step left, so the head of sorted ends up contiguous in the middle.
func middleOut[T any](dst, sorted []T) {
	center := len(dst) / 2
	for i := range sorted {
		pos := center
		if i%2 == 1 {
			pos -= (i + 1) / 2
		} else {
			pos += (i + 1) / 2
		}
		dst[pos] = sorted[i]
	}
}

// arrange writes combo into dst (indexed by slot) using ordering o. Chances are taken against the
// base target interest, before any combo effect.
func arrange(o ordering, dst, combo, scratch []Item, targetInterest float64) {
	sorted := append(scratch[:0], combo...)
	chance := func(it *Item) float64 { return SparkChance(it.Interest, targetInterest) }

	switch o {
	case orderFavorChance:
		sort.SliceStable(sorted, func(i, j int) bool {
			return float64(sorted[i].AverageFavor)*chance(&sorted[i]) > float64(sorted[j].AverageFavor)*chance(&sorted[j])
		})
		copy(dst, sorted)
	case orderChance:
		sort.SliceStable(sorted, func(i, j int) bool { return chance(&sorted[i]) > chance(&sorted[j]) })
		copy(dst, sorted)
	case orderMiddleOutDesc:
		sort.SliceStable(sorted, func(i, j int) bool { return chance(&sorted[i]) > chance(&sorted[j]) })
		middleOut(dst, sorted)
	case orderMiddleOutAsc:
		sort.SliceStable(sorted, func(i, j int) bool { return chance(&sorted[i]) < chance(&sorted[j]) })
		middleOut(dst, sorted)
	}
}

func (s *Solver) solveFast(ctx context.Context, req *Request, byID map[ItemID]*Item, ids []ItemID, table *Table) error {
	k := req.Layout.NumSlots
	s.logf("[gen] items=%d slots=%d ordered=false\n", len(ids), k)
	combos, err := s.generate(ids, k, false)
	if err != nil {
		return err
	}
	s.logf("[gen] combinations=%d\n", len(combos))

	var byOrdering [numOrderings][]Goal
	for g := Goal(0); g < NumGoals; g++ {
		o := goalOrdering[g]
		byOrdering[o] = append(byOrdering[o], g)
	}

	combo := make([]Item, k)
	scratch := make([]Item, 0, k)
	slotIDs := make([]ItemID, k)
	base := float64(req.Interest)

	for n, c := range combos {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.progress("fast", n, len(combos))

		for i, id := range c {
			combo[i] = *byID[id]
		}
		for o := ordering(0); o < numOrderings; o++ {
			goals := byOrdering[o]
			if len(goals) == 0 {
				continue
			}
			arrange(o, s.slots, combo, scratch, base)
			for i := range s.slots {
				slotIDs[i] = s.slots[i].ID
			}
			s.stats.reset()
			walk(s.slots, req.Layout, req.Interest, req.Favor, s.stats.add, nil)
			for _, g := range goals {
				for p := range table.cells[g] {
					consider(table, g, p, s.stats.get(g, p), slotIDs, s.tolerance)
				}
			}
		}
	}

	return s.reconcile(ctx, req, byID, table)
}

// ── Reconciliation ──────────────────────────────────────────────────

type cellRef struct {
	goal  Goal
	param int
}

type shortlistEntry struct {
	set   []ItemID // sorted
	cells []cellRef
}

// shortlist groups every non-empty cell of table by the set of items it holds, in first-seen
// order.
func shortlist(table *Table) []shortlistEntry {
	var out []shortlistEntry
	index := make(map[string]int)
	table.Each(func(g Goal, p int, b Best) {
		if b.Empty() {
			return
		}
		set := slices.Clone(b.Items)
		slices.Sort(set)
		key := setKey(set)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, shortlistEntry{set: set})
		}
		out[i].cells = append(out[i].cells, cellRef{g, p})
	})
	return out
}

func setKey(ids []ItemID) string {
	buf := make([]byte, 0, len(ids)*2)
	for _, id := range ids {
		buf = append(buf, byte(id>>8), byte(id))
	}
	return string(buf)
}

// reconcile re-walks every permutation of each shortlisted set and re-applies the selector to the
// cells that set currently holds.
func (s *Solver) reconcile(ctx context.Context, req *Request, byID map[ItemID]*Item, table *Table) error {
	k := req.Layout.NumSlots
	list := shortlist(table)
	s.logf("[reconcile] sets=%d\n", len(list))

	total := 0
	for n, entry := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.progress("reconcile", n, len(list))

		perms, err := s.generate(entry.set, k, true)
		if err != nil {
			return err
		}
		for _, perm := range perms {
			total++
			s.evaluate(req, byID, perm)
			for _, ref := range entry.cells {
				consider(table, ref.goal, ref.param, s.stats.get(ref.goal, ref.param), perm, s.tolerance)
			}
		}
	}
	s.logf("[reconcile] permutations=%d\n", total)
	return nil
}
