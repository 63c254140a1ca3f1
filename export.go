package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/store"
)

var exportHeaders = []string{"Target", "Interest", "Favor", "Param", "Success %", "Strict EV", "Version", "Loadout"}

// exportResults writes every stored result at or above mode's version to an .xlsx workbook with
// one sheet per goal. An empty target name exports every target. It returns the row count.
func (r *Runner) exportResults(ctx context.Context, path, targetName string, mode solver.Mode) (int, error) {
	targets := r.cat.SortedTargets()
	if targetName != "" {
		t, err := r.cat.FindTarget(targetName)
		if err != nil {
			return 0, err
		}
		targets = []*catalog.Target{t}
	}

	f := excelize.NewFile()
	defer f.Close()

	next := make([]int, solver.NumGoals) // next free row per goal sheet
	for g := solver.Goal(0); g < solver.NumGoals; g++ {
		if _, err := f.NewSheet(g.String()); err != nil {
			return 0, err
		}
		for i, h := range exportHeaders {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(g.String(), cell, h); err != nil {
				return 0, err
			}
		}
		next[g] = 2
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return 0, err
	}
	if idx, err := f.GetSheetIndex(solver.GoalFreeTalk.String()); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	rows := 0
	for _, t := range targets {
		keys, err := r.store.SolvedKeys(ctx, t.ID, store.MinVersion(mode))
		if err != nil {
			return rows, err
		}
		for _, key := range keys {
			results, err := r.store.Results(ctx, key)
			if err != nil {
				return rows, err
			}
			for _, res := range results {
				if res.Version < store.MinVersion(mode) || !res.Goal.Valid() {
					continue
				}
				values := []any{
					t.Name, key.Interest, key.Favor, res.Param,
					res.Best.Success * 100, res.Best.EV, res.Version,
					strings.Join(r.cat.ItemNames(res.Best.Items), ", "),
				}
				sheet := res.Goal.String()
				for c, v := range values {
					cell, _ := excelize.CoordinatesToCellName(c+1, next[res.Goal])
					if err := f.SetCellValue(sheet, cell, v); err != nil {
						return rows, err
					}
				}
				next[res.Goal]++
				rows++
			}
		}
		if Verbose {
			fmt.Fprintf(logw(), "[verbose/export] target=%s keys=%d\n", t.Name, len(keys))
		}
	}

	if err := f.SaveAs(path); err != nil {
		return rows, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(logw(), "[export] rows=%d path=%s\n", rows, path)
	return rows, nil
}
