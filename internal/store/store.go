// Package store persists the catalog and solved result tables. Results are keyed by target and
// interest/favor level, one row per (goal, threshold) cell.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
)

var (
	ErrNotFound      = errors.New("result not found")
	ErrLocked        = errors.New("solve already in progress")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Key identifies one solve.
type Key struct {
	TargetID int
	Interest int
	Favor    int
}

func (k Key) String() string {
	return fmt.Sprintf("target=%d interest=%d favor=%d", k.TargetID, k.Interest, k.Favor)
}

// Result is one stored cell.
type Result struct {
	Goal    solver.Goal
	Param   int
	Best    solver.Best
	Version int
}

type Store interface {
	// Migrate creates missing tables.
	Migrate(ctx context.Context) error
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
	// ImportCatalog upserts every row of c.
	ImportCatalog(ctx context.Context, c *catalog.Catalog) error

	// SaveResults replaces every stored cell for key with the non-empty cells of t, tagged with
	// t.Version(), records key as solved at that version and marks the target as having results.
	// A table with no non-empty cells still counts as solved. It runs in one transaction.
	SaveResults(ctx context.Context, key Key, t *solver.Table) error
	// FetchResult returns ErrNotFound when the cell is missing or older than minVersion.
	FetchResult(ctx context.Context, key Key, goal solver.Goal, param, minVersion int) (solver.Best, error)
	// Results lists every stored cell for key in goal, param order.
	Results(ctx context.Context, key Key) ([]Result, error)
	// Solved reports whether key was saved at minVersion or later.
	Solved(ctx context.Context, key Key, minVersion int) (bool, error)
	// SolvedKeys lists the keys of targetID saved at minVersion or later.
	SolvedKeys(ctx context.Context, targetID, minVersion int) ([]Key, error)

	// Lock claims key for owner. It reports false when someone else holds it.
	Lock(ctx context.Context, key Key, owner string) (bool, error)
	Unlock(ctx context.Context, key Key) error

	Close() error
}

// Open connects to a store by driver name: "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, dsn)
	case "postgres", "pgx":
		return OpenPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// insertBatch caps the rows per INSERT. Ten columns at this size stay far below SQLite's 32766
// and Postgres's 65535 bind-variable limits.
const insertBatch = 500

// MinVersion is the oldest stored version a request in mode accepts.
func MinVersion(mode solver.Mode) int { return mode.Version() }

// resultRow is the flat form shared by both backends.
type resultRow struct {
	TargetID  int     `db:"target_id"`
	Interest  int     `db:"target_interest"`
	Favor     int     `db:"target_favor"`
	Goal      int     `db:"goal"`
	Param     int     `db:"goal_param"`
	Knowledge string  `db:"knowledge_ids"`
	Success   float64 `db:"success_percentage"`
	EV        float64 `db:"strict_afl_ev"`
	Version   int     `db:"version"`
}

func tableRows(key Key, t *solver.Table) []resultRow {
	var rows []resultRow
	version := t.Version()
	t.Each(func(g solver.Goal, p int, b solver.Best) {
		if b.Empty() {
			return
		}
		rows = append(rows, resultRow{
			TargetID:  key.TargetID,
			Interest:  key.Interest,
			Favor:     key.Favor,
			Goal:      int(g),
			Param:     p,
			Knowledge: catalog.FormatIntArray(b.Items),
			Success:   b.Success,
			EV:        b.EV,
			Version:   version,
		})
	})
	return rows
}

func parseItemIDs(ids []int) ([]solver.ItemID, error) {
	out := make([]solver.ItemID, len(ids))
	for i, id := range ids {
		v, err := catalog.ItemID(int64(id))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func checkVersion(key Key, goal solver.Goal, param, version, minVersion int) error {
	if version < minVersion {
		return fmt.Errorf("%w: %s %s p=%d has version %d, need %d", ErrNotFound, key, goal, param, version, minVersion)
	}
	return nil
}

func sortedByID[K comparable, T any](m map[K]T, id func(T) int) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return out
}
