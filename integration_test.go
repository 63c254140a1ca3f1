package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cli runs the command line against one sqlite file seeded from the test catalog.
type cli struct {
	t   *testing.T
	dsn string
}

func newCLI(t *testing.T) *cli {
	return &cli{t: t, dsn: filepath.Join(t.TempDir(), "solver.db")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	full := append([]string{"-store", "sqlite", "-dsn", c.dsn, "-data", testCatalog}, args...)
	err := run(context.Background(), full, &out)
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "args %q", args)
	return out
}

func TestEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end solve")
	}
	c := newCLI(t)

	out := c.mustRun("-json", "solve", "Merchant", "20", "2", "free talk")
	var first CellResult
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.False(t, first.Cached)
	assert.Len(t, first.Items, 3)

	out = c.mustRun("-json", "solve", "Merchant", "20", "2", "free talk")
	var second CellResult
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.True(t, second.Cached)
	assert.Equal(t, first.Items, second.Items)

	out = c.mustRun("solve", "Merchant", "20", "2", "Spark", "1")
	assert.Contains(t, out, "(cached)")
	assert.Contains(t, out, "Best combination - Success: ")

	out = c.mustRun("-json", "solve-all", "-fast", "-workers", "2")
	var sum solveAllSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 4, sum.Planned) // Merchant 20/2 is already stored
	assert.Equal(t, 4, sum.Solved)

	out = c.mustRun("results", "Scholar", "15", "0")
	assert.Contains(t, out, "Scholar target=11 interest=15 favor=0")
	assert.Contains(t, out, "Consecutive Spark Failure")

	xlsx := filepath.Join(t.TempDir(), "out.xlsx")
	out = c.mustRun("export", "-fast", xlsx)
	assert.True(t, strings.HasPrefix(out, "Wrote "), out)
}

func TestCLIExplain(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("explain", "merchant", "20", "2", "Trade Route", "Silver Price", "Guild Ledger")
	assert.True(t, strings.HasPrefix(out, "Loadout: Trade Route, Silver Price, Guild Ledger\n"), out)

	out = c.mustRun("-json", "explain", "merchant", "20", "2", "101", "102", "104")
	var ex struct {
		Items  []int
		Leaves int
		Mass   float64
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ex))
	assert.Equal(t, []int{101, 102, 104}, ex.Items)
	assert.Positive(t, ex.Leaves)
	assert.InDelta(t, 1.0, ex.Mass, 1e-9)

	_, err := c.run("explain", "merchant", "20", "2", "Trade Route", "Trade Route", "Guild Ledger")
	assert.Error(t, err)
	_, err = c.run("explain", "merchant", "20", "2", "Old Kingdom", "Silver Price", "Guild Ledger")
	assert.Error(t, err)
}

func TestCLIGoalsAndUsage(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("goals")
	assert.Contains(t, out, "Consecutive Spark Failure")

	_, err := c.run()
	assert.ErrorIs(t, err, errUsage)
	_, err = c.run("dance")
	assert.ErrorIs(t, err, errUsage)
	_, err = c.run("solve", "Merchant", "twenty", "2", "spark")
	assert.ErrorIs(t, err, errUsage)
	_, err = c.run("solve", "Merchant", "20", "2")
	assert.ErrorIs(t, err, errUsage)
	_, err = c.run("solve-all", "-workers", "0")
	assert.ErrorIs(t, err, errUsage)
}

func TestCLIImport(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", testCatalog)
	_, err := c.run("import")
	assert.ErrorIs(t, err, errUsage)
}
