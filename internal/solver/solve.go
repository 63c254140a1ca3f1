package solver

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Options tunes a Solver.
type Options struct {
	// Tolerance scales the success-probability term of the replacement rule. Nil selects
	// DefaultTolerance; zero compares by strict EV alone.
	Tolerance *float64
	// Catalogue sets the threshold range of every goal.
	Catalogue Catalogue
	// MaxArenaEntries caps the arena; searches needing more fail before generating anything.
	MaxArenaEntries int
	// Progress receives "[phase] ..." lines. Nil discards them.
	Progress io.Writer
	// PrintInterval rate-limits progress lines.
	PrintInterval time.Duration
}

// DefaultOptions returns the tuning the stored results were generated with.
func DefaultOptions() Options {
	tol := DefaultTolerance
	return Options{
		Tolerance:       &tol,
		Catalogue:       DefaultCatalogue,
		MaxArenaEntries: DefaultMaxArenaEntries,
		PrintInterval:   500 * time.Millisecond,
	}
}

// Solver runs searches. It owns one arena and one scratch accumulator that are reused across
// calls, so a Solver must not be used from more than one goroutine at a time. Give every worker
// its own.
type Solver struct {
	opts      Options
	tolerance float64
	arena     *Arena
	stats     *cellStats

	// per-search scratch
	slots     []Item
	lastPrint time.Time
	start     time.Time
}

// New creates a solver. Unset options fall back to DefaultOptions.
func New(opts Options) (*Solver, error) {
	def := DefaultOptions()
	if opts.Tolerance == nil {
		opts.Tolerance = def.Tolerance
	}
	if *opts.Tolerance < 0 {
		return nil, fmt.Errorf("tolerance must not be negative, got %g", *opts.Tolerance)
	}
	if opts.Catalogue == (Catalogue{}) {
		opts.Catalogue = def.Catalogue
	}
	if opts.MaxArenaEntries <= 0 {
		opts.MaxArenaEntries = def.MaxArenaEntries
	}
	if opts.PrintInterval <= 0 {
		opts.PrintInterval = def.PrintInterval
	}
	if err := opts.Catalogue.Validate(); err != nil {
		return nil, err
	}
	return &Solver{
		opts:      opts,
		tolerance: *opts.Tolerance,
		arena:     NewArena(opts.MaxArenaEntries),
		stats:     newCellStats(opts.Catalogue),
	}, nil
}

// Options returns the effective options.
func (s *Solver) Options() Options { return s.opts }

// ── Validation ──────────────────────────────────────────────────────

func validateRequest(req *Request) error {
	if len(req.Pool) == 0 {
		return ErrEmptyPool
	}
	if err := req.Layout.Validate(); err != nil {
		return err
	}
	if len(req.Pool) < req.Layout.NumSlots {
		return fmt.Errorf("%w: %d items for %d slots", ErrPoolTooSmall, len(req.Pool), req.Layout.NumSlots)
	}
	seen := make(map[ItemID]bool, len(req.Pool))
	for i := range req.Pool {
		it := &req.Pool[i]
		if seen[it.ID] {
			return fmt.Errorf("%w: id %d", ErrDuplicateItem, it.ID)
		}
		seen[it.ID] = true
		if it.Interest < 0 {
			return fmt.Errorf("%w: id %d has negative interest %g", ErrInvalidItem, it.ID, it.Interest)
		}
	}
	return nil
}

// ── Entry point ─────────────────────────────────────────────────────

// Solve searches req and returns a fresh best-candidate table. On error no table is returned.
// ctx is only checked between assignments; a single tree walk always runs to completion.
func (s *Solver) Solve(ctx context.Context, req Request) (*Table, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	s.start = time.Now()
	s.lastPrint = time.Time{}

	table := NewTable(req.Mode, s.opts.Catalogue)
	if req.Layout.NumSlots == 0 {
		return table, nil
	}

	byID := make(map[ItemID]*Item, len(req.Pool))
	ids := make([]ItemID, len(req.Pool))
	for i := range req.Pool {
		byID[req.Pool[i].ID] = &req.Pool[i]
		ids[i] = req.Pool[i].ID
	}
	s.slots = make([]Item, req.Layout.NumSlots)

	var err error
	if req.Mode == ModeFast {
		err = s.solveFast(ctx, &req, byID, ids, table)
	} else {
		err = s.solveExhaustive(ctx, &req, byID, ids, table)
	}
	if err != nil {
		return nil, err
	}
	s.logf("[done] mode=%s elapsed=%v\n", req.Mode, time.Since(s.start).Round(time.Millisecond))
	return table, nil
}

// generate sizes the arena for the requested enumeration and fills it.
func (s *Solver) generate(ids []ItemID, k int, ordered bool) ([][]ItemID, error) {
	count, err := AssignmentCount(len(ids), k, ordered)
	if err != nil {
		return nil, err
	}
	entries, err := arenaEntries(count, k)
	if err != nil {
		return nil, err
	}
	if err := s.arena.Init(entries); err != nil {
		return nil, err
	}
	return Generate(s.arena, ids, k, ordered)
}

// evaluate walks one assignment (ids in slot order) into the scratch accumulator.
func (s *Solver) evaluate(req *Request, byID map[ItemID]*Item, ids []ItemID) {
	for i, id := range ids {
		s.slots[i] = *byID[id]
	}
	s.stats.reset()
	walk(s.slots, req.Layout, req.Interest, req.Favor, s.stats.add, nil)
}

func (s *Solver) solveExhaustive(ctx context.Context, req *Request, byID map[ItemID]*Item, ids []ItemID, table *Table) error {
	k := req.Layout.NumSlots
	s.logf("[gen] items=%d slots=%d ordered=true\n", len(ids), k)
	assignments, err := s.generate(ids, k, true)
	if err != nil {
		return err
	}
	s.logf("[gen] assignments=%d\n", len(assignments))

	for n, a := range assignments {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.progress("walk", n, len(assignments))

		s.evaluate(req, byID, a)
		for g := Goal(0); g < NumGoals; g++ {
			for p := range table.cells[g] {
				consider(table, g, p, s.stats.get(g, p), a, s.tolerance)
			}
		}
	}
	return nil
}

// ── Progress ────────────────────────────────────────────────────────

func (s *Solver) logf(format string, args ...any) {
	if s.opts.Progress == nil {
		return
	}
	fmt.Fprintf(s.opts.Progress, format, args...)
}

func (s *Solver) progress(phase string, n, total int) {
	if s.opts.Progress == nil {
		return
	}
	now := time.Now()
	if !s.lastPrint.IsZero() && now.Sub(s.lastPrint) < s.opts.PrintInterval {
		return
	}
	s.lastPrint = now
	pct := 0.0
	if total > 0 {
		pct = float64(n) / float64(total) * 100
	}
	s.logf("[%s] %d/%d (%.2f%%) %.3fs\n", phase, n, total, pct, now.Sub(s.start).Seconds())
}
