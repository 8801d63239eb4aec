package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements the store primitives on a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

// CreateTableIfNotExists provisions an entity's table. The statement is
// idempotent, so concurrent creators converge on one physical table.
func (p *Postgres) CreateTableIfNotExists(ctx context.Context, ent Entity) error {
	sql := createTableSQL(ent)
	if _, err := p.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s: %w", ent.Name, err)
	}
	return nil
}

// DropTable removes an entity's table. Administrative only.
func (p *Postgres) DropTable(ctx context.Context, name string, ifExists bool) error {
	sql := "DROP TABLE "
	if ifExists {
		sql += "IF EXISTS "
	}
	sql += pgx.Identifier{name}.Sanitize()
	if _, err := p.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}
	return nil
}

// ListTableNames enumerates user tables in the connected database.
func (p *Postgres) ListTableNames(ctx context.Context) ([]string, error) {
	const sql = `SELECT relname FROM pg_class WHERE relkind='r' AND relname !~ '^(pg_|sql_)'`

	rows, err := p.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// UpsertRows writes rows in a single parameterized statement and reports how
// many rows the statement actually touched.
func (p *Postgres) UpsertRows(ctx context.Context, ent Entity, rows [][]any, policy ConflictPolicy) (int64, error) {
	sql := upsertSQL(ent, len(rows), policy)
	tag, err := p.pool.Exec(ctx, sql, flattenRows(rows)...)
	if err != nil {
		return 0, fmt.Errorf("upsert into %s: %w", ent.Name, err)
	}
	return tag.RowsAffected(), nil
}

// AllRows returns every row of an entity ordered by its time column.
func (p *Postgres) AllRows(ctx context.Context, ent Entity, desc bool) ([][]any, error) {
	return p.collect(ctx, ent.Name, allRowsSQL(ent, desc))
}

// LatestRows returns the limit most recent rows by the entity's time column,
// most-recent-first, or chronological when asc is set.
func (p *Postgres) LatestRows(ctx context.Context, ent Entity, limit int, asc bool) ([][]any, error) {
	return p.collect(ctx, ent.Name, latestRowsSQL(ent, asc), limit)
}

// RowsInRange returns rows whose time column falls in [start, end],
// chronological. Times are milliseconds since epoch.
func (p *Postgres) RowsInRange(ctx context.Context, ent Entity, start, end int64) ([][]any, error) {
	return p.collect(ctx, ent.Name, rowsInRangeSQL(ent), start, end)
}

func (p *Postgres) collect(ctx context.Context, entity, sql string, args ...any) ([][]any, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &PersistenceError{Entity: entity, Op: "query", Err: err}
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, &PersistenceError{Entity: entity, Op: "query", Err: err}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Entity: entity, Op: "query", Err: err}
	}
	return out, nil
}
