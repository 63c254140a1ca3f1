package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres is the shared store several solver processes coordinate through.
type Postgres struct {
	pool      *pgxpool.Pool
	txManager trm.Manager
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	m, err := manager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create tx manager: %w", err)
	}
	p := &Postgres{pool: pool, txManager: m}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// conn returns the transaction bound to ctx, or the pool outside one.
func (p *Postgres) conn(ctx context.Context) trmpgx.Tr {
	return trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, p.pool)
}

func (p *Postgres) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := p.conn(ctx).Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) query(ctx context.Context, b sq.Sqlizer) (pgx.Rows, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return p.conn(ctx).Query(ctx, sqlStr, args...)
}

func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ── Catalog ─────────────────────────────────────────────────────────

func collect[T any](ctx context.Context, p *Postgres, b sq.Sqlizer) ([]T, error) {
	rows, err := p.query(ctx, b)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

func (p *Postgres) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	cats, err := collect[categoryRow](ctx, p, psql.Select(colID, colName).From(tblCategories).OrderBy(colID))
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	know, err := collect[knowledgeRow](ctx, p, psql.
		Select(colID, colName, "favor_min", "favor_max", "interest", "combo_delay", "combo_length", "combo_interest", "combo_favor", "category_id").
		From(tblKnowledge).OrderBy(colID))
	if err != nil {
		return nil, fmt.Errorf("load knowledge: %w", err)
	}
	cons, err := collect[constellationRow](ctx, p, psql.Select(colID, "slots", "slot_order").From(tblConstellations).OrderBy(colID))
	if err != nil {
		return nil, fmt.Errorf("load constellations: %w", err)
	}
	tgts, err := collect[targetRow](ctx, p, psql.
		Select(colID, colName, "constellation_id", "category_id", "interest_min", "interest_max", "favor_min", "favor_max").
		From(tblTargets).OrderBy(colID))
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	return buildCatalog(cats, know, cons, tgts)
}

func upsert(table string, cols ...string) sq.InsertBuilder {
	set := ""
	for i, c := range cols[1:] {
		if i > 0 {
			set += ", "
		}
		set += c + " = EXCLUDED." + c
	}
	return psql.Insert(table).Columns(cols...).Suffix("ON CONFLICT (" + cols[0] + ") DO UPDATE SET " + set)
}

func (p *Postgres) ImportCatalog(ctx context.Context, c *catalog.Catalog) error {
	cats, know, cons, tgts := catalogRows(c)
	return p.txManager.Do(ctx, func(ctx context.Context) error {
		err := insertBatches(ctx, p, upsert(tblCategories, colID, colName), cats, func(r categoryRow) []any {
			return []any{r.ID, r.Name}
		})
		if err != nil {
			return fmt.Errorf("import categories: %w", err)
		}
		err = insertBatches(ctx, p, upsert(tblKnowledge, colID, colName, "favor_min", "favor_max", "interest", "combo_delay", "combo_length", "combo_interest", "combo_favor", "category_id"), know, func(r knowledgeRow) []any {
			return []any{r.ID, r.Name, r.FavorMin, r.FavorMax, r.Interest, r.ComboDelay, r.ComboLength, r.ComboInterest, r.ComboFavor, r.CategoryID}
		})
		if err != nil {
			return fmt.Errorf("import knowledge: %w", err)
		}
		err = insertBatches(ctx, p, upsert(tblConstellations, colID, "slots", "slot_order"), cons, func(r constellationRow) []any {
			return []any{r.ID, r.Slots, r.SlotOrder}
		})
		if err != nil {
			return fmt.Errorf("import constellations: %w", err)
		}
		err = insertBatches(ctx, p, upsert(tblTargets, colID, colName, "constellation_id", "category_id", "interest_min", "interest_max", "favor_min", "favor_max"), tgts, func(r targetRow) []any {
			return []any{r.ID, r.Name, r.ConstellationID, r.CategoryID, r.InterestMin, r.InterestMax, r.FavorMin, r.FavorMax}
		})
		if err != nil {
			return fmt.Errorf("import targets: %w", err)
		}
		return nil
	})
}

// insertBatches adds rows to base insertBatch at a time, one statement per batch.
func insertBatches[T any](ctx context.Context, p *Postgres, base sq.InsertBuilder, rows []T, values func(T) []any) error {
	for chunk := range slices.Chunk(rows, insertBatch) {
		q := base
		for _, r := range chunk {
			q = q.Values(values(r)...)
		}
		if _, err := p.exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// ── Results ─────────────────────────────────────────────────────────

func keyEq(key Key) sq.Eq {
	return sq.Eq{colTargetID: key.TargetID, colInterest: key.Interest, colFavor: key.Favor}
}

var resultCols = []string{colTargetID, colInterest, colFavor, colGoal, colGoalParam, colKnowledgeIDs, colSuccess, colStrictEV, colVersion}

func (p *Postgres) SaveResults(ctx context.Context, key Key, t *solver.Table) error {
	rows := tableRows(key, t)
	return p.txManager.Do(ctx, func(ctx context.Context) error {
		if _, err := p.exec(ctx, psql.Delete(tblResults).Where(keyEq(key))); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		err := insertBatches(ctx, p, psql.Insert(tblResults).Columns(resultCols...), rows, func(r resultRow) []any {
			return []any{r.TargetID, r.Interest, r.Favor, r.Goal, r.Param, r.Knowledge, r.Success, r.EV, r.Version}
		})
		if err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		solved := psql.Insert(tblSolved).
			Columns(colTargetID, colInterest, colFavor, colVersion).
			Values(key.TargetID, key.Interest, key.Favor, t.Version()).
			Suffix("ON CONFLICT (" + colTargetID + ", " + colInterest + ", " + colFavor + ") DO UPDATE SET version = EXCLUDED.version, solved_at = now()")
		if _, err := p.exec(ctx, solved); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		upd := psql.Update(tblTargets).Set(colHasResults, true).Where(sq.Eq{colID: key.TargetID})
		if _, err := p.exec(ctx, upd); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	})
}

func (p *Postgres) FetchResult(ctx context.Context, key Key, goal solver.Goal, param, minVersion int) (solver.Best, error) {
	sqlStr, args, err := psql.Select(resultCols...).From(tblResults).
		Where(keyEq(key)).
		Where(sq.Eq{colGoal: int(goal), colGoalParam: param}).
		ToSql()
	if err != nil {
		return solver.Best{}, err
	}
	rows, err := p.conn(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return solver.Best{}, err
	}
	r, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[resultRow])
	if errors.Is(err, pgx.ErrNoRows) {
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

func (p *Postgres) Results(ctx context.Context, key Key) ([]Result, error) {
	rows, err := collect[resultRow](ctx, p, psql.Select(resultCols...).From(tblResults).
		Where(keyEq(key)).
		OrderBy(colGoal, colGoalParam))
	if err != nil {
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

func (p *Postgres) Solved(ctx context.Context, key Key, minVersion int) (bool, error) {
	rows, err := p.query(ctx, psql.Select("COUNT(*)").From(tblSolved).
		Where(keyEq(key)).
		Where(sq.GtOrEq{colVersion: minVersion}))
	if err != nil {
		return false, err
	}
	n, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Postgres) SolvedKeys(ctx context.Context, targetID, minVersion int) ([]Key, error) {
	rows, err := p.query(ctx, psql.Select(colInterest, colFavor).From(tblSolved).
		Where(sq.Eq{colTargetID: targetID}).
		Where(sq.GtOrEq{colVersion: minVersion}).
		OrderBy(colInterest, colFavor))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Key, error) {
		k := Key{TargetID: targetID}
		err := row.Scan(&k.Interest, &k.Favor)
		return k, err
	})
}

// ── Locks ───────────────────────────────────────────────────────────

func (p *Postgres) Lock(ctx context.Context, key Key, owner string) (bool, error) {
	n, err := p.exec(ctx, psql.Insert(tblLocks).
		Columns(colTargetID, colInterest, colFavor, colOwner).
		Values(key.TargetID, key.Interest, key.Favor, owner).
		Suffix("ON CONFLICT DO NOTHING"))
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", key, err)
	}
	return n == 1, nil
}

func (p *Postgres) Unlock(ctx context.Context, key Key) error {
	if _, err := p.exec(ctx, psql.Delete(tblLocks).Where(keyEq(key))); err != nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	return nil
}
