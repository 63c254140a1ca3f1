package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/store"
)

const usage = `Usage: conversation-solver [flags] <command> [args]

Commands:
  solve [-fast] <target> <interest> <favor> <goal> [param]
                  Best loadout for one goal, solving and storing on a miss
  results [-fast] <target> <interest> <favor>
                  Every stored cell for one level
  solve-all [-fast] [-min] [-target name] [-workers n]
                  Solve every level not yet stored
  explain <target> <interest> <favor> <knowledge>...
                  Walk one loadout (knowledge in slot order) and score it
  goals           List goals and their parameter ranges
  import <catalog.json>
                  Upsert a catalog dump into the store
  serve [-addr host:port]
                  Serve stored results over HTTP
  export [-fast] [-target name] <out.xlsx>
                  Write stored results to a workbook, one sheet per goal

Flags:
`

// errUsage marks errors caused by bad arguments rather than a failed run.
var errUsage = errors.New("usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// run parses the global flags and dispatches to a command. Results go to stdout, logs to stderr.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("conversation-solver", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	data := fs.String("data", "", "Catalog JSON imported when the store is empty")
	driver := fs.String("store", "", "Store driver: sqlite or postgres")
	dsn := fs.String("dsn", "", "Store DSN (sqlite file path or postgres URL)")
	jsonOut := fs.Bool("json", false, "Output results as JSON")
	verbose := fs.Bool("verbose", false, "Print detailed search progress to stderr")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	Verbose = *verbose

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return usageErr("missing command")
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *data != "" {
		cfg.Data = *data
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dsn != "" {
		cfg.Store.DSN = *dsn
	}

	cmd, cmdArgs := rest[0], rest[1:]
	if cmd == "goals" {
		return cmdGoals(cfg, stdout, *jsonOut)
	}

	r, err := openRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	switch cmd {
	case "solve":
		return r.cmdSolve(ctx, cmdArgs, stdout, *jsonOut)
	case "results":
		return r.cmdResults(ctx, cmdArgs, stdout, *jsonOut)
	case "solve-all":
		return r.cmdSolveAll(ctx, cmdArgs, stdout, *jsonOut)
	case "explain":
		return r.cmdExplain(cmdArgs, stdout, *jsonOut)
	case "import":
		return r.cmdImport(ctx, cmdArgs)
	case "serve":
		return r.cmdServe(ctx, cmdArgs)
	case "export":
		return r.cmdExport(ctx, cmdArgs, stdout, *jsonOut)
	}
	return usageErr("unknown command %q", cmd)
}

// levelArgs parses the <target> <interest> <favor> prefix shared by several commands.
func (r *Runner) levelArgs(args []string, mode solver.Mode) (job, []string, error) {
	if len(args) < 3 {
		return job{}, nil, usageErr("want <target> <interest> <favor>, got %d args", len(args))
	}
	interest, err := strconv.Atoi(args[1])
	if err != nil {
		return job{}, nil, usageErr("invalid interest %q", args[1])
	}
	favor, err := strconv.Atoi(args[2])
	if err != nil {
		return job{}, nil, usageErr("invalid favor %q", args[2])
	}
	j, err := r.lookup(args[0], interest, favor, mode)
	return j, args[3:], err
}

func modeFor(fast bool) solver.Mode {
	if fast {
		return solver.ModeFast
	}
	return solver.ModeExhaustive
}

func cmdGoals(cfg Config, w io.Writer, jsonOut bool) error {
	cat, err := cfg.catalogue()
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, goalInfos(cat))
	}
	printGoals(w, cat)
	return nil
}

func (r *Runner) cmdSolve(ctx context.Context, args []string, w io.Writer, jsonOut bool) error {
	fs := flag.NewFlagSet("solve", flag.ContinueOnError)
	fast := fs.Bool("fast", false, "Use the heuristic search")
	if err := fs.Parse(args); err != nil {
		return err
	}
	j, rest, err := r.levelArgs(fs.Args(), modeFor(*fast))
	if err != nil {
		return err
	}
	if len(rest) < 1 || len(rest) > 2 {
		return usageErr("want <goal> [param]")
	}
	goal, err := solver.ParseGoal(rest[0])
	if err != nil {
		return err
	}
	param := 0
	if len(rest) == 2 {
		if param, err = strconv.Atoi(rest[1]); err != nil {
			return usageErr("invalid param %q", rest[1])
		}
	}

	c, err := r.Cell(ctx, j, goal, param)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, c)
	}
	fmt.Fprint(w, FormatCell(c))
	return nil
}

func (r *Runner) cmdResults(ctx context.Context, args []string, w io.Writer, jsonOut bool) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	fast := fs.Bool("fast", false, "Accept heuristic results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	j, rest, err := r.levelArgs(fs.Args(), modeFor(*fast))
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return usageErr("unexpected args %q", rest)
	}
	results, err := r.store.Results(ctx, j.key)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, r.resultInfos(results, store.MinVersion(j.mode)))
	}
	fmt.Fprintf(w, "%s %s\n", j.target.Name, j.key)
	printResults(w, r.cat, results)
	return nil
}

func (r *Runner) cmdSolveAll(ctx context.Context, args []string, w io.Writer, jsonOut bool) error {
	fs := flag.NewFlagSet("solve-all", flag.ContinueOnError)
	fast := fs.Bool("fast", false, "Use the heuristic search")
	minOnly := fs.Bool("min", false, "Only solve each target's minimum interest/favor")
	target := fs.String("target", "", "Restrict to one target")
	workers := fs.Int("workers", r.cfg.Workers, "Concurrent solves")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *workers < 1 {
		return usageErr("workers must be at least 1")
	}

	jobs, err := r.planSolveAll(ctx, planOptions{mode: modeFor(*fast), minOnly: *minOnly, target: *target})
	if err != nil {
		return err
	}
	sum, err := r.runSolveAll(ctx, jobs, *workers)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, sum)
	}
	fmt.Fprintf(w, "Planned %d, solved %d, locked %d, failed %d in %.1fs\n",
		sum.Planned, sum.Solved, sum.Locked, sum.Failed, sum.Elapsed.Seconds())
	return nil
}

func (r *Runner) cmdExplain(args []string, w io.Writer, jsonOut bool) error {
	j, names, err := r.levelArgs(args, solver.ModeExhaustive)
	if err != nil {
		return err
	}
	items := make([]solver.ItemID, 0, len(names))
	for _, name := range names {
		k, err := r.cat.FindItem(name)
		if err != nil {
			return err
		}
		items = append(items, k.ID)
	}
	req, err := r.cat.Request(j.target, j.key.Interest, j.key.Favor, j.mode)
	if err != nil {
		return err
	}
	s, err := r.newSolver()
	if err != nil {
		return err
	}
	ex, err := s.Explain(req, items)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, ex)
	}
	maxSteps := 64
	if Verbose {
		maxSteps = 0
	}
	fmt.Fprint(w, FormatExplanation(r.cat, ex, maxSteps))
	return nil
}

func (r *Runner) cmdImport(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErr("want <catalog.json>")
	}
	return r.importCatalog(ctx, args[0])
}

func (r *Runner) cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", r.cfg.Addr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return r.serve(ctx, *addr)
}

func (r *Runner) cmdExport(ctx context.Context, args []string, w io.Writer, jsonOut bool) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fast := fs.Bool("fast", false, "Include heuristic results")
	target := fs.String("target", "", "Restrict to one target")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErr("want <out.xlsx>")
	}
	start := time.Now()
	rows, err := r.exportResults(ctx, fs.Arg(0), *target, modeFor(*fast))
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, map[string]any{"path": fs.Arg(0), "rows": rows})
	}
	fmt.Fprintf(w, "Wrote %d rows to %s in %.1fs\n", rows, fs.Arg(0), time.Since(start).Seconds())
	return nil
}
