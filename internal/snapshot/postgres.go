package snapshot

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/civicworks/parcel-cli/internal/table"
)

// Pool is the subset of pgxpool.Pool the Postgres store uses. pgxmock
// satisfies it for tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// psql builds queries with Postgres-style $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	columns    JSONB NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshot_rows (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
	seq         INTEGER NOT NULL,
	doc         JSONB NOT NULL,
	PRIMARY KEY (snapshot_id, seq)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, name string, f *table.Frame) (*Meta, error) {
	docs, err := encodeRows(f)
	if err != nil {
		return nil, err
	}
	columnsJSON, err := json.Marshal(f.Columns())
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal columns")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	// Overwrite semantics: drop any previous snapshot under this name.
	if _, err := tx.Exec(ctx,
		`DELETE FROM snapshot_rows WHERE snapshot_id IN (SELECT id FROM snapshots WHERE name = $1)`,
		name,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: clear rows for %s", name)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM snapshots WHERE name = $1`, name); err != nil {
		return nil, eris.Wrapf(err, "postgres: clear snapshot %s", name)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO snapshots (id, name, columns, row_count, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, name, string(columnsJSON), f.Len(), now,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert snapshot %s", name)
	}

	// COPY the row docs in bulk.
	rows := make([][]any, len(docs))
	for seq, doc := range docs {
		rows[seq] = []any{id, seq, doc}
	}
	copySource := pgx.CopyFromRows(rows)
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"snapshot_rows"}, []string{"snapshot_id", "seq", "doc"}, copySource); err != nil {
		return nil, eris.Wrapf(err, "postgres: COPY rows for %s", name)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit tx")
	}

	return &Meta{
		ID:        id,
		Name:      name,
		Columns:   f.Columns(),
		Rows:      f.Len(),
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) Load(ctx context.Context, name string) (*table.Frame, error) {
	meta, err := s.getMeta(ctx, name)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.
		Select("doc").
		From("snapshot_rows").
		Where(sq.Eq{"snapshot_id": meta.ID}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build rows query")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load rows for %s", name)
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: load rows for %s iterate", name)
	}

	return decodeRows(meta.Columns, docs)
}

func (s *PostgresStore) List(ctx context.Context) ([]Meta, error) {
	query, args, err := psql.
		Select("id", "name", "columns", "row_count", "created_at").
		From("snapshots").
		OrderBy("created_at DESC", "name").
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list query")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		var m Meta
		var columnsJSON string
		if err := rows.Scan(&m.ID, &m.Name, &columnsJSON, &m.Rows, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		if err := json.Unmarshal([]byte(columnsJSON), &m.Columns); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal columns")
		}
		metas = append(metas, m)
	}
	return metas, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM snapshot_rows WHERE snapshot_id IN (SELECT id FROM snapshots WHERE name = $1)`,
		name,
	); err != nil {
		return eris.Wrapf(err, "postgres: delete rows for %s", name)
	}

	query, args, err := psql.Delete("snapshots").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build delete query")
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete snapshot %s", name)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: delete %s", name)
	}
	return nil
}

func (s *PostgresStore) getMeta(ctx context.Context, name string) (*Meta, error) {
	query, args, err := psql.
		Select("id", "name", "columns", "row_count", "created_at").
		From("snapshots").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build meta query")
	}

	var m Meta
	var columnsJSON string
	row := s.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&m.ID, &m.Name, &columnsJSON, &m.Rows, &m.CreatedAt); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: snapshot %s", name)
		}
		return nil, eris.Wrapf(err, "postgres: get snapshot %s", name)
	}
	if err := json.Unmarshal([]byte(columnsJSON), &m.Columns); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal columns")
	}
	return &m, nil
}
