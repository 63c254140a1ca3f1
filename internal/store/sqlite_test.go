package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "solver.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seededStore(t *testing.T) (*SQLite, *catalog.Catalog) {
	t.Helper()
	s := openTestStore(t)
	c, err := catalog.Load("../catalog/testdata/catalog.json")
	require.NoError(t, err)
	require.NoError(t, s.ImportCatalog(context.Background(), c))
	return s, c
}

func testTable(t *testing.T, mode solver.Mode) *solver.Table {
	t.Helper()
	table := solver.NewTable(mode, solver.DefaultCatalogue)
	require.NoError(t, table.Set(solver.GoalSpark, 2, solver.Best{Items: []solver.ItemID{103, 101, 102}, Success: 0.42, EV: 12.5}))
	require.NoError(t, table.Set(solver.GoalFreeTalk, 0, solver.Best{Items: []solver.ItemID{102, 101, 105}, Success: 1, EV: 30.25}))
	return table
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestCatalogRoundTrip(t *testing.T) {
	s, want := seededStore(t)
	ctx := context.Background()

	got, err := s.LoadCatalog(ctx)
	require.NoError(t, err)

	assert.Len(t, got.Targets, len(want.Targets))
	assert.Len(t, got.Categories, len(want.Categories))
	assert.Len(t, got.Knowledge, len(want.Knowledge))
	assert.Equal(t, want.Constellations, got.Constellations)
	assert.Equal(t, want.Knowledge[105], got.Knowledge[105])
	assert.Equal(t, want.Targets[10], got.Targets[10])
	assert.Equal(t, want.Categories[1].Items, got.Categories[1].Items)
	assert.Len(t, got.Warnings, 1)

	// importing twice replaces rather than duplicates
	require.NoError(t, s.ImportCatalog(ctx, want))
	again, err := s.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, again.Knowledge, len(want.Knowledge))
}

func TestImportLargeCatalog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const n = 6000
	c := catalog.New()
	c.AddCategory(1, "Everything")
	for i := 1; i <= n; i++ {
		it := solver.NewItem(solver.ItemID(i), fmt.Sprintf("knowledge %d", i), float64(i%50), i%10, i%10+5, solver.ComboEffect{})
		require.NoError(t, c.AddKnowledge(catalog.Knowledge{Item: it, CategoryID: 1}))
	}
	require.NoError(t, c.AddConstellation(1, solver.SlotLayout{NumSlots: 2, Order: []int{1, 0}}))
	c.AddTarget(catalog.Target{ID: 1, Name: "Everyone", CategoryID: 1, ConstellationID: 1, InterestMax: 10, FavorMax: 10})

	require.NoError(t, s.ImportCatalog(ctx, c))
	got, err := s.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Knowledge, n)
	assert.Len(t, got.Categories[1].Items, n)
	assert.Equal(t, "knowledge 5999", got.Knowledge[5999].Name)

	// re-import upserts every batch
	require.NoError(t, s.ImportCatalog(ctx, c))
	got, err = s.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Knowledge, n)
}

func TestSaveManyResults(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()
	key := Key{TargetID: 10, Interest: 20, Favor: 3}

	cat := solver.DefaultCatalogue
	cat[solver.GoalAccumulatedFavor] = 4000
	table := solver.NewTable(solver.ModeExhaustive, cat)
	want := 0
	table.Each(func(g solver.Goal, p int, _ solver.Best) {
		require.NoError(t, table.Set(g, p, solver.Best{Items: []solver.ItemID{101, 102}, Success: 0.5, EV: float64(p)}))
		want++
	})
	require.Greater(t, want*9, 32766, "enough bind variables to need several statements")

	require.NoError(t, s.SaveResults(ctx, key, table))
	results, err := s.Results(ctx, key)
	require.NoError(t, err)
	assert.Len(t, results, want)
}

func TestSaveAndFetch(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()
	key := Key{TargetID: 10, Interest: 20, Favor: 3}

	_, err := s.FetchResult(ctx, key, solver.GoalSpark, 2, solver.ResultsVersion)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveResults(ctx, key, testTable(t, solver.ModeExhaustive)))

	best, err := s.FetchResult(ctx, key, solver.GoalSpark, 2, solver.ResultsVersion)
	require.NoError(t, err)
	assert.Equal(t, []solver.ItemID{103, 101, 102}, best.Items)
	assert.Equal(t, 0.42, best.Success)
	assert.Equal(t, 12.5, best.EV)

	_, err = s.FetchResult(ctx, key, solver.GoalSpark, 3, solver.ResultsVersion)
	assert.ErrorIs(t, err, ErrNotFound, "empty cells are not stored")

	results, err := s.Results(ctx, key)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, solver.GoalSpark, results[0].Goal)
	assert.Equal(t, solver.GoalFreeTalk, results[1].Goal)
	assert.Equal(t, solver.ResultsVersion, results[1].Version)

	var hasResults bool
	require.NoError(t, s.db.Get(&hasResults, `SELECT has_results FROM targets WHERE id = 10`))
	assert.True(t, hasResults)
}

func TestSaveReplacesOldRows(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()
	key := Key{TargetID: 10, Interest: 20, Favor: 3}

	require.NoError(t, s.SaveResults(ctx, key, testTable(t, solver.ModeExhaustive)))

	next := solver.NewTable(solver.ModeExhaustive, solver.DefaultCatalogue)
	require.NoError(t, next.Set(solver.GoalMaxFavor, 40, solver.Best{Items: []solver.ItemID{104}, Success: 0.1, EV: 2}))
	require.NoError(t, s.SaveResults(ctx, key, next))

	results, err := s.Results(ctx, key)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, solver.GoalMaxFavor, results[0].Goal)
	assert.Equal(t, 40, results[0].Param)

	// other keys are untouched
	other := Key{TargetID: 10, Interest: 21, Favor: 3}
	require.NoError(t, s.SaveResults(ctx, other, testTable(t, solver.ModeExhaustive)))
	results, err = s.Results(ctx, key)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestFetchVersion(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()
	key := Key{TargetID: 11, Interest: 15, Favor: 0}

	require.NoError(t, s.SaveResults(ctx, key, testTable(t, solver.ModeFast)))

	_, err := s.FetchResult(ctx, key, solver.GoalFreeTalk, 0, MinVersion(solver.ModeExhaustive))
	assert.ErrorIs(t, err, ErrNotFound, "fast results do not satisfy an exhaustive request")

	best, err := s.FetchResult(ctx, key, solver.GoalFreeTalk, 0, MinVersion(solver.ModeFast))
	require.NoError(t, err)
	assert.Equal(t, 30.25, best.EV)
}

func TestSolvedKeys(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResults(ctx, Key{10, 21, 3}, testTable(t, solver.ModeExhaustive)))
	require.NoError(t, s.SaveResults(ctx, Key{10, 20, 2}, testTable(t, solver.ModeFast)))
	require.NoError(t, s.SaveResults(ctx, Key{11, 15, 0}, testTable(t, solver.ModeExhaustive)))

	keys, err := s.SolvedKeys(ctx, 10, MinVersion(solver.ModeFast))
	require.NoError(t, err)
	assert.Equal(t, []Key{{10, 20, 2}, {10, 21, 3}}, keys)

	keys, err = s.SolvedKeys(ctx, 10, MinVersion(solver.ModeExhaustive))
	require.NoError(t, err)
	assert.Equal(t, []Key{{10, 21, 3}}, keys)
}

func TestEmptyTableCountsAsSolved(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()
	key := Key{TargetID: 11, Interest: 15, Favor: 0}

	ok, err := s.Solved(ctx, key, MinVersion(solver.ModeFast))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveResults(ctx, key, solver.NewTable(solver.ModeFast, solver.DefaultCatalogue)))

	results, err := s.Results(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, results)

	ok, err = s.Solved(ctx, key, MinVersion(solver.ModeFast))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Solved(ctx, key, MinVersion(solver.ModeExhaustive))
	require.NoError(t, err)
	assert.False(t, ok, "fast solve does not satisfy exhaustive")

	keys, err := s.SolvedKeys(ctx, 11, MinVersion(solver.ModeFast))
	require.NoError(t, err)
	assert.Equal(t, []Key{key}, keys)

	var hasResults bool
	require.NoError(t, s.db.Get(&hasResults, `SELECT has_results FROM targets WHERE id = 11`))
	assert.True(t, hasResults)
}

func TestMigrateBackfillsSolvedKeys(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()
	key := Key{TargetID: 10, Interest: 21, Favor: 3}

	require.NoError(t, s.SaveResults(ctx, key, testTable(t, solver.ModeExhaustive)))
	// a store written before solved keys were recorded
	_, err := s.db.Exec(`DELETE FROM solved_keys`)
	require.NoError(t, err)

	require.NoError(t, s.Migrate(ctx))
	keys, err := s.SolvedKeys(ctx, 10, MinVersion(solver.ModeExhaustive))
	require.NoError(t, err)
	assert.Equal(t, []Key{key}, keys)
}

func TestLock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := Key{TargetID: 10, Interest: 20, Favor: 3}

	ok, err := s.Lock(ctx, key, uuid.NewString())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Lock(ctx, key, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, ok, "second owner is refused")

	require.NoError(t, s.Unlock(ctx, key))
	ok, err = s.Lock(ctx, key, uuid.NewString())
	require.NoError(t, err)
	assert.True(t, ok)
}
