package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/store"
)

func TestFormatCell(t *testing.T) {
	c := CellResult{
		Target: "Merchant", Interest: 20, Favor: 2, Goal: "Spark", Param: 1,
		Success: 0.5, StrictEV: 12.5, Items: []string{"Trade Route", "Silver Price"}, Cached: true,
	}
	want := "Merchant interest=20 favor=2 goal=Spark param=1 (cached)\n" +
		"Best combination - Success: 50.00% - Strict AFL EV: 12.50\n" +
		"  1. Trade Route\n" +
		"  2. Silver Price\n"
	assert.Equal(t, want, FormatCell(c))

	c.Items = nil
	c.Cached = false
	assert.Equal(t, "Merchant interest=20 favor=2 goal=Spark param=1\nNo combination found\n", FormatCell(c))
}

func TestPrintGoals(t *testing.T) {
	var buf bytes.Buffer
	printGoals(&buf, solver.DefaultCatalogue)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, lines[5], "Accumulated Favor")
	assert.Contains(t, lines[5], "0..249")
	assert.Contains(t, lines[7], "0..0")
}

func TestPrintResults(t *testing.T) {
	r := newTestRunner(t)
	var buf bytes.Buffer
	printResults(&buf, r.cat, []store.Result{{
		Goal:    solver.GoalMaxFavor,
		Param:   3,
		Best:    solver.Best{Items: []solver.ItemID{104, 999, 7}, Success: 0.25, EV: 9},
		Version: 2,
	}})
	out := buf.String()
	assert.Contains(t, out, "Max Favor")
	assert.Contains(t, out, "25.00%")
	assert.Contains(t, out, "Guild Ledger, Orphan, #7")
}

func TestResultInfosDropsOldVersions(t *testing.T) {
	r := newTestRunner(t)
	results := []store.Result{
		{Goal: solver.GoalSpark, Best: solver.Best{Items: []solver.ItemID{101}}, Version: 2},
		{Goal: solver.GoalSpark, Param: 1, Best: solver.Best{Items: []solver.ItemID{102}}, Version: 3},
	}
	got := r.resultInfos(results, 3)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Silver Price"}, got[0].Items)
	assert.Len(t, r.resultInfos(results, 2), 2)
}

func TestFormatExplanation(t *testing.T) {
	r := newTestRunner(t)
	req, err := r.cat.Request(r.cat.Targets[10], 20, 2, solver.ModeExhaustive)
	require.NoError(t, err)
	s, err := r.newSolver()
	require.NoError(t, err)
	ex, err := s.Explain(req, []solver.ItemID{101, 102, 104})
	require.NoError(t, err)

	out := FormatExplanation(r.cat, ex, 2)
	assert.True(t, strings.HasPrefix(out, "Loadout: Trade Route, Silver Price, Guild Ledger\n"), out)
	assert.Contains(t, out, "more nodes")
	assert.Contains(t, out, "Leaves: ")
	assert.Contains(t, out, "Free Talk")

	full := FormatExplanation(r.cat, ex, 0)
	assert.NotContains(t, full, "more nodes")
}
