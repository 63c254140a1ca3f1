package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCatalog = "internal/catalog/testdata/catalog.json"

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Store.DSN = filepath.Join(t.TempDir(), "solver.db")
	cfg.Data = testCatalog
	cfg.Workers = 2
	return cfg
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := openRunner(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// solved returns a runner with Merchant 20/2 already solved exhaustively.
func solved(t *testing.T) (*Runner, job) {
	t.Helper()
	r := newTestRunner(t)
	j, err := r.lookup("Merchant", 20, 2, modeFor(false))
	require.NoError(t, err)
	s, err := r.newSolver()
	require.NoError(t, err)
	_, err = r.solveJob(context.Background(), s, j)
	require.NoError(t, err)
	return r, j
}
