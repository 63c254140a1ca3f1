package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/store"
)

type planOptions struct {
	mode solver.Mode
	// minOnly plans just each target's minimum interest/favor pair.
	minOnly bool
	// target restricts the plan to one target name.
	target string
}

// planSolveAll lists every key still missing a result at the mode's version. Targets whose
// category is empty or whose constellation is unknown are skipped.
func (r *Runner) planSolveAll(ctx context.Context, opts planOptions) ([]job, error) {
	targets := r.cat.SortedTargets()
	if opts.target != "" {
		t, err := r.cat.FindTarget(opts.target)
		if err != nil {
			return nil, err
		}
		targets = []*catalog.Target{t}
	}

	var jobs []job
	for _, t := range targets {
		pool, err := r.cat.Pool(t.CategoryID)
		if err != nil || len(pool) == 0 {
			fmt.Fprintf(logw(), "[plan] skip target=%s: empty category %d\n", t.Name, t.CategoryID)
			continue
		}
		if _, err := r.cat.Layout(t.ConstellationID); err != nil {
			fmt.Fprintf(logw(), "[plan] skip target=%s: %v\n", t.Name, err)
			continue
		}

		solved, err := r.store.SolvedKeys(ctx, t.ID, store.MinVersion(opts.mode))
		if err != nil {
			return nil, err
		}
		done := make(map[store.Key]bool, len(solved))
		for _, k := range solved {
			done[k] = true
		}

		interestMax, favorMax := t.InterestMax, t.FavorMax
		if opts.minOnly {
			interestMax, favorMax = t.InterestMin, t.FavorMin
		}
		planned := 0
		for interest := t.InterestMin; interest <= interestMax; interest++ {
			for favor := t.FavorMin; favor <= favorMax; favor++ {
				j := newJob(t, interest, favor, opts.mode)
				if done[j.key] {
					continue
				}
				jobs = append(jobs, j)
				planned++
			}
		}
		if Verbose {
			fmt.Fprintf(logw(), "[verbose/plan] target=%s planned=%d solved=%d\n", t.Name, planned, len(solved))
		}
	}
	fmt.Fprintf(logw(), "[plan] jobs=%d mode=%s\n", len(jobs), opts.mode)
	return jobs, nil
}

type solveAllSummary struct {
	Planned int           `json:"planned"`
	Solved  int           `json:"solved"`
	Locked  int           `json:"locked"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"elapsedNs"`
}

// runSolveAll solves jobs on at most workers goroutines. Every worker takes a solver from a pool
// sized to the limit, so no two goroutines share an arena. A job locked by another process is
// skipped; a job that fails on its own is logged and counted. Only cancellation and store errors
// stop the run.
func (r *Runner) runSolveAll(ctx context.Context, jobs []job, workers int) (solveAllSummary, error) {
	start := time.Now()
	sum := solveAllSummary{Planned: len(jobs)}
	if len(jobs) == 0 {
		return sum, nil
	}
	workers = min(workers, len(jobs))

	solvers := make(chan *solver.Solver, workers)
	for range workers {
		s, err := r.newSolver()
		if err != nil {
			return sum, err
		}
		solvers <- s
	}

	var solved, locked, failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, j := range jobs {
		g.Go(func() error {
			s := <-solvers
			defer func() { solvers <- s }()

			_, err := r.solveJob(ctx, s, j)
			switch {
			case err == nil:
				n := solved.Add(1)
				fmt.Fprintf(logw(), "[job] #%d done (%d/%d)\n", i, n, len(jobs))
			case errors.Is(err, store.ErrLocked):
				locked.Add(1)
				fmt.Fprintf(logw(), "[job] #%d skipped: %v\n", i, err)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			case isSolveError(err):
				failed.Add(1)
				fmt.Fprintf(logw(), "[job] #%d failed: %v\n", i, err)
			default:
				return err
			}
			return nil
		})
	}
	err := g.Wait()

	sum.Solved = int(solved.Load())
	sum.Locked = int(locked.Load())
	sum.Failed = int(failed.Load())
	sum.Elapsed = time.Since(start)
	fmt.Fprintf(logw(), "[done] solved=%d locked=%d failed=%d elapsed=%v\n",
		sum.Solved, sum.Locked, sum.Failed, sum.Elapsed.Round(time.Millisecond))
	return sum, err
}

// isSolveError reports errors that belong to one job's data rather than the run.
func isSolveError(err error) bool {
	for _, target := range []error{
		solver.ErrEmptyPool,
		solver.ErrInvalidLayout,
		solver.ErrPoolTooSmall,
		solver.ErrDuplicateItem,
		solver.ErrInvalidItem,
		solver.ErrArenaTooLarge,
		solver.ErrArenaExhausted,
		solver.ErrCountOverflow,
		catalog.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
