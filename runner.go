package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/store"
)

// Runner ties the catalog, the store and solver construction together for every command.
type Runner struct {
	cfg   Config
	store store.Store
	cat   *catalog.Catalog
	// owner tags the lock rows this process takes.
	owner string
}

// openRunner connects to the configured store and loads the catalog from it, importing the JSON
// dump first if the store is empty.
func openRunner(ctx context.Context, cfg Config) (*Runner, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	r, err := newRunner(ctx, cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return r, nil
}

func newRunner(ctx context.Context, cfg Config, st store.Store) (*Runner, error) {
	cat, err := st.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	r := &Runner{cfg: cfg, store: st, cat: cat, owner: uuid.NewString()}
	if len(cat.Targets) == 0 && cfg.Data != "" {
		if err := r.importCatalog(ctx, cfg.Data); err != nil {
			return nil, err
		}
	}
	r.logCatalog()
	return r, nil
}

// importCatalog upserts a JSON dump into the store and reloads the catalog from it.
func (r *Runner) importCatalog(ctx context.Context, path string) error {
	dump, err := catalog.Load(path)
	if err != nil {
		return err
	}
	if err := r.store.ImportCatalog(ctx, dump); err != nil {
		return err
	}
	cat, err := r.store.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	r.cat = cat
	fmt.Fprintf(logw(), "[catalog] imported %s\n", path)
	return nil
}

// lazyRunner opens a Runner on first use and keeps it. A failed open is not remembered, so a
// store that was briefly unreachable is retried on the next call.
type lazyRunner struct {
	mu   sync.Mutex
	r    *Runner
	open func(ctx context.Context) (*Runner, error)
}

func (l *lazyRunner) get(ctx context.Context) (*Runner, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.r != nil {
		return l.r, nil
	}
	r, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	l.r = r
	return r, nil
}

func (r *Runner) logCatalog() {
	if Verbose {
		for _, w := range r.cat.Warnings {
			fmt.Fprintf(logw(), "[verbose/catalog] %s\n", w)
		}
	}
	fmt.Fprintf(logw(), "[catalog] targets=%d categories=%d knowledge=%d\n",
		len(r.cat.Targets), len(r.cat.Categories), len(r.cat.Knowledge))
}

func (r *Runner) Close() error { return r.store.Close() }

// newSolver builds a solver from the config. Each goroutine needs its own.
func (r *Runner) newSolver() (*solver.Solver, error) {
	opts, err := r.cfg.SolverOptions(progressw())
	if err != nil {
		return nil, err
	}
	return solver.New(opts)
}

// job is one (target, interest, favor) solve.
type job struct {
	target *catalog.Target
	key    store.Key
	mode   solver.Mode
}

func newJob(t *catalog.Target, interest, favor int, mode solver.Mode) job {
	return job{
		target: t,
		key:    store.Key{TargetID: t.ID, Interest: interest, Favor: favor},
		mode:   mode,
	}
}

// solveJob claims the job's lock, solves it and stores the table. It returns store.ErrLocked when
// another process holds the lock.
func (r *Runner) solveJob(ctx context.Context, s *solver.Solver, j job) (*solver.Table, error) {
	ok, err := r.store.Lock(ctx, j.key, r.owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", j.target.Name, j.key, store.ErrLocked)
	}
	defer func() {
		if err := r.store.Unlock(context.WithoutCancel(ctx), j.key); err != nil {
			fmt.Fprintf(logw(), "[unlock] %v\n", err)
		}
	}()

	req, err := r.cat.Request(j.target, j.key.Interest, j.key.Favor, j.mode)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(logw(), "[solve] target=%s interest=%d favor=%d mode=%s items=%d slots=%d\n",
		j.target.Name, j.key.Interest, j.key.Favor, j.mode, len(req.Pool), req.Layout.NumSlots)

	start := time.Now()
	table, err := s.Solve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", j.target.Name, j.key, err)
	}
	if err := r.store.SaveResults(ctx, j.key, table); err != nil {
		return nil, err
	}
	fmt.Fprintf(logw(), "[stored] target=%s interest=%d favor=%d version=%d elapsed=%v\n",
		j.target.Name, j.key.Interest, j.key.Favor, table.Version(), time.Since(start).Round(time.Millisecond))
	return table, nil
}

// CellResult is the answer to one (goal, threshold) query.
type CellResult struct {
	Target   string   `json:"target"`
	Interest int      `json:"interest"`
	Favor    int      `json:"favor"`
	Goal     string   `json:"goal"`
	Param    int      `json:"param"`
	Success  float64  `json:"success"`
	StrictEV float64  `json:"strictEV"`
	Items    []string `json:"items"`
	Cached   bool     `json:"cached"`
}

func (r *Runner) cellResult(j job, goal solver.Goal, param int, best solver.Best, cached bool) CellResult {
	return CellResult{
		Target:   j.target.Name,
		Interest: j.key.Interest,
		Favor:    j.key.Favor,
		Goal:     goal.String(),
		Param:    param,
		Success:  best.Success,
		StrictEV: best.EV,
		Items:    r.cat.ItemNames(best.Items),
		Cached:   cached,
	}
}

// Cell answers one query from the store, solving and storing the whole key on a miss.
func (r *Runner) Cell(ctx context.Context, j job, goal solver.Goal, param int) (CellResult, error) {
	s, err := r.newSolver()
	if err != nil {
		return CellResult{}, err
	}
	if err := s.Options().Catalogue.CheckParam(goal, param); err != nil {
		return CellResult{}, err
	}

	best, err := r.store.FetchResult(ctx, j.key, goal, param, store.MinVersion(j.mode))
	if err == nil {
		return r.cellResult(j, goal, param, best, true), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return CellResult{}, err
	}
	miss := err
	// a solved key without this row has no candidate for it, e.g. a zero-slot constellation
	done, err := r.store.Solved(ctx, j.key, store.MinVersion(j.mode))
	if err != nil {
		return CellResult{}, err
	}
	if done {
		return r.cellResult(j, goal, param, solver.Best{}, true), nil
	}
	if Verbose {
		fmt.Fprintf(logw(), "[verbose] cache miss: %v\n", miss)
	}

	table, err := r.solveJob(ctx, s, j)
	if err != nil {
		return CellResult{}, err
	}
	best, err = table.Cell(goal, param)
	if err != nil {
		return CellResult{}, err
	}
	return r.cellResult(j, goal, param, best, false), nil
}

// lookup resolves the target and level arguments every command shares.
func (r *Runner) lookup(targetName string, interest, favor int, mode solver.Mode) (job, error) {
	t, err := r.cat.FindTarget(targetName)
	if err != nil {
		return job{}, err
	}
	return newJob(t, interest, favor, mode), nil
}
