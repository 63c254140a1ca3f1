package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/store"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatCell renders one answer the way the solver has always printed it.
func FormatCell(c CellResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s interest=%d favor=%d goal=%s param=%d", c.Target, c.Interest, c.Favor, c.Goal, c.Param)
	if c.Cached {
		b.WriteString(" (cached)")
	}
	b.WriteByte('\n')
	if len(c.Items) == 0 {
		b.WriteString("No combination found\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Best combination - Success: %.2f%% - Strict AFL EV: %.2f\n", c.Success*100, c.StrictEV)
	for i, name := range c.Items {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, name)
	}
	return b.String()
}

type goalInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Range int    `json:"range"`
}

func goalInfos(cat solver.Catalogue) []goalInfo {
	out := make([]goalInfo, 0, solver.NumGoals)
	for g := solver.Goal(0); g < solver.NumGoals; g++ {
		out = append(out, goalInfo{ID: int(g), Name: g.String(), Range: cat[g]})
	}
	return out
}

func printGoals(w io.Writer, cat solver.Catalogue) {
	fmt.Fprintf(w, "%-4s %-28s %s\n", "ID", "Goal", "Params")
	for _, g := range goalInfos(cat) {
		fmt.Fprintf(w, "%-4d %-28s 0..%d\n", g.ID, g.Name, g.Range-1)
	}
}

// FormatExplanation prints the walk of one loadout: every resolved slot with its target
// thresholds, then the leaf summary and the success/EV of the goals at their lowest thresholds.
func FormatExplanation(c *catalog.Catalog, ex *solver.Explanation, maxSteps int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Loadout: %s\n", strings.Join(c.ItemNames(ex.Items), ", "))

	for i, st := range ex.Steps {
		if maxSteps > 0 && i >= maxSteps {
			fmt.Fprintf(&b, "  ... %d more nodes\n", len(ex.Steps)-i)
			break
		}
		fmt.Fprintf(&b, "  %s[%d] slot=%d %-20s interest=%6.2f favor=%3d chance=%5.1f%% reach=%.4f\n",
			strings.Repeat("  ", st.Depth), st.Depth, st.Slot, c.ItemNames([]solver.ItemID{st.Item})[0],
			st.TargetInterest, st.TargetFavor, st.Chance*100, st.Probability)
	}

	fmt.Fprintf(&b, "Leaves: %d  Mass: %.6f  Mean favor: %.2f  Median favor: %.2f\n",
		ex.Leaves, ex.Mass, ex.MeanFavor, ex.MedianFavor)
	for g := solver.Goal(0); g < solver.NumGoals; g++ {
		scores := ex.Scores[g]
		fmt.Fprintf(&b, "%-26s", g)
		for p := 0; p < len(scores) && p < 8; p++ {
			fmt.Fprintf(&b, " p%d=%5.1f%%", p, scores[p].Success*100)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// printResults lists every stored cell of one key.
func printResults(w io.Writer, c *catalog.Catalog, results []store.Result) {
	fmt.Fprintf(w, "%-26s %5s %9s %10s %3s  %s\n", "Goal", "Param", "Success", "Strict EV", "Ver", "Loadout")
	for _, r := range results {
		fmt.Fprintf(w, "%-26s %5d %8.2f%% %10.2f %3d  %s\n",
			r.Goal, r.Param, r.Best.Success*100, r.Best.EV, r.Version, strings.Join(c.ItemNames(r.Best.Items), ", "))
	}
}

type resultInfo struct {
	Goal     string   `json:"goal"`
	Param    int      `json:"param"`
	Success  float64  `json:"success"`
	StrictEV float64  `json:"strictEV"`
	Items    []string `json:"items"`
	Version  int      `json:"version"`
}

// resultInfos names the loadouts of results, dropping rows older than minVersion.
func (r *Runner) resultInfos(results []store.Result, minVersion int) []resultInfo {
	out := make([]resultInfo, 0, len(results))
	for _, res := range results {
		if res.Version < minVersion {
			continue
		}
		out = append(out, resultInfo{
			Goal:     res.Goal.String(),
			Param:    res.Param,
			Success:  res.Best.Success,
			StrictEV: res.Best.EV,
			Items:    r.cat.ItemNames(res.Best.Items),
			Version:  res.Version,
		})
	}
	return out
}
