package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLite is a single-file store for local runs.
type SQLite struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one writer; WAL lets readers through
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	s := &SQLite{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ── Catalog ─────────────────────────────────────────────────────────

func (s *SQLite) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	var (
		cats  []categoryRow
		know  []knowledgeRow
		cons  []constellationRow
		tgts  []targetRow
		loads = []struct {
			dst   any
			query string
		}{
			{&cats, `SELECT id, name FROM categories ORDER BY id`},
			{&know, `SELECT id, name, favor_min, favor_max, interest, combo_delay, combo_length, combo_interest, combo_favor, category_id FROM knowledge ORDER BY id`},
			{&cons, `SELECT id, slots, slot_order FROM constellations ORDER BY id`},
			{&tgts, `SELECT id, name, constellation_id, category_id, interest_min, interest_max, favor_min, favor_max FROM targets ORDER BY id`},
		}
	)
	for _, l := range loads {
		if err := s.db.SelectContext(ctx, l.dst, l.query); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}
	return buildCatalog(cats, know, cons, tgts)
}

func (s *SQLite) ImportCatalog(ctx context.Context, c *catalog.Catalog) error {
	cats, know, cons, tgts := catalogRows(c)
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := namedInsert(ctx, tx, `INSERT OR REPLACE INTO categories (id, name) VALUES (:id, :name)`, cats); err != nil {
			return fmt.Errorf("import categories: %w", err)
		}
		if err := namedInsert(ctx, tx, `INSERT OR REPLACE INTO knowledge (id, name, favor_min, favor_max, interest, combo_delay, combo_length, combo_interest, combo_favor, category_id)
			VALUES (:id, :name, :favor_min, :favor_max, :interest, :combo_delay, :combo_length, :combo_interest, :combo_favor, :category_id)`, know); err != nil {
			return fmt.Errorf("import knowledge: %w", err)
		}
		if err := namedInsert(ctx, tx, `INSERT OR REPLACE INTO constellations (id, slots, slot_order) VALUES (:id, :slots, :slot_order)`, cons); err != nil {
			return fmt.Errorf("import constellations: %w", err)
		}
		if err := namedInsert(ctx, tx, `INSERT OR REPLACE INTO targets (id, name, constellation_id, category_id, interest_min, interest_max, favor_min, favor_max)
			VALUES (:id, :name, :constellation_id, :category_id, :interest_min, :interest_max, :favor_min, :favor_max)`, tgts); err != nil {
			return fmt.Errorf("import targets: %w", err)
		}
		return nil
	})
}

// namedInsert runs query once per insertBatch rows. Nothing runs for an empty slice.
func namedInsert[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	for chunk := range slices.Chunk(rows, insertBatch) {
		if _, err := tx.NamedExecContext(ctx, query, chunk); err != nil {
			return err
		}
	}
	return nil
}

// ── Results ─────────────────────────────────────────────────────────

func (s *SQLite) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLite) SaveResults(ctx context.Context, key Key, t *solver.Table) error {
	rows := tableRows(key, t)
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM results WHERE target_id = ? AND target_interest = ? AND target_favor = ?`,
			key.TargetID, key.Interest, key.Favor); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		if err := namedInsert(ctx, tx, `INSERT INTO results
			(target_id, target_interest, target_favor, goal, goal_param, knowledge_ids, success_percentage, strict_afl_ev, version)
			VALUES (:target_id, :target_interest, :target_favor, :goal, :goal_param, :knowledge_ids, :success_percentage, :strict_afl_ev, :version)`,
			rows); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO solved_keys (target_id, target_interest, target_favor, version) VALUES (?, ?, ?, ?)`,
			key.TargetID, key.Interest, key.Favor, t.Version()); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE targets SET has_results = 1 WHERE id = ?`, key.TargetID); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	})
}

func (s *SQLite) FetchResult(ctx context.Context, key Key, goal solver.Goal, param, minVersion int) (solver.Best, error) {
	var r resultRow
	err := s.db.GetContext(ctx, &r, `SELECT target_id, target_interest, target_favor, goal, goal_param, knowledge_ids, success_percentage, strict_afl_ev, version
		FROM results WHERE target_id = ? AND target_interest = ? AND target_favor = ? AND goal = ? AND goal_param = ?`,
		key.TargetID, key.Interest, key.Favor, int(goal), param)
	if errors.Is(err, sql.ErrNoRows) {
		return solver.Best{}, fmt.Errorf("%w: %s %s p=%d", ErrNotFound, key, goal, param)
	}
	if err != nil {
		return solver.Best{}, err
	}
	if err := checkVersion(key, goal, param, r.Version, minVersion); err != nil {
		return solver.Best{}, err
	}
	res, err := r.result()
	if err != nil {
		return solver.Best{}, err
	}
	return res.Best, nil
}

func (s *SQLite) Results(ctx context.Context, key Key) ([]Result, error) {
	var rows []resultRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT target_id, target_interest, target_favor, goal, goal_param, knowledge_ids, success_percentage, strict_afl_ev, version
		FROM results WHERE target_id = ? AND target_interest = ? AND target_favor = ?
		ORDER BY goal, goal_param`, key.TargetID, key.Interest, key.Favor); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		res, err := r.result()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *SQLite) Solved(ctx context.Context, key Key, minVersion int) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM solved_keys
		WHERE target_id = ? AND target_interest = ? AND target_favor = ? AND version >= ?`,
		key.TargetID, key.Interest, key.Favor, minVersion)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLite) SolvedKeys(ctx context.Context, targetID, minVersion int) ([]Key, error) {
	var keys []Key
	rows, err := s.db.QueryxContext(ctx, `SELECT target_interest, target_favor FROM solved_keys
		WHERE target_id = ? AND version >= ?
		ORDER BY target_interest, target_favor`, targetID, minVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		k := Key{TargetID: targetID}
		if err := rows.Scan(&k.Interest, &k.Favor); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ── Locks ───────────────────────────────────────────────────────────

func (s *SQLite) Lock(ctx context.Context, key Key, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO solve_in_progress (target_id, target_interest, target_favor, owner) VALUES (?, ?, ?, ?)`,
		key.TargetID, key.Interest, key.Favor, owner)
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLite) Unlock(ctx context.Context, key Key) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM solve_in_progress WHERE target_id = ? AND target_interest = ? AND target_favor = ?`,
		key.TargetID, key.Interest, key.Favor)
	if err != nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	return nil
}
