package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/civicworks/parcel-cli/internal/table"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	columns    TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS snapshot_rows (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
	seq         INTEGER NOT NULL,
	doc         TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, name string, f *table.Frame) (*Meta, error) {
	docs, err := encodeRows(f)
	if err != nil {
		return nil, err
	}
	columnsJSON, err := json.Marshal(f.Columns())
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal columns")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	// Overwrite semantics: drop any previous snapshot under this name.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshot_rows WHERE snapshot_id IN (SELECT id FROM snapshots WHERE name = ?)`,
		name,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: clear rows for %s", name)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name); err != nil {
		return nil, eris.Wrapf(err, "sqlite: clear snapshot %s", name)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, columns, row_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, string(columnsJSON), f.Len(), now,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert snapshot %s", name)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_rows (snapshot_id, seq, doc) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare row insert")
	}
	defer stmt.Close()

	for seq, doc := range docs {
		if _, err := stmt.ExecContext(ctx, id, seq, doc); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert row %d of %s", seq, name)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit tx")
	}

	return &Meta{
		ID:        id,
		Name:      name,
		Columns:   f.Columns(),
		Rows:      f.Len(),
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (*table.Frame, error) {
	meta, err := s.getMeta(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM snapshot_rows WHERE snapshot_id = ? ORDER BY seq`,
		meta.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load rows for %s", name)
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: load rows for %s iterate", name)
	}

	return decodeRows(meta.Columns, docs)
}

func (s *SQLiteStore) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, columns, row_count, created_at FROM snapshots ORDER BY created_at DESC, name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		metas = append(metas, *m)
	}
	return metas, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshot_rows WHERE snapshot_id IN (SELECT id FROM snapshots WHERE name = ?)`,
		name,
	); err != nil {
		return eris.Wrapf(err, "sqlite: delete rows for %s", name)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete snapshot %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: delete %s", name)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) getMeta(ctx context.Context, name string) (*Meta, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, columns, row_count, created_at FROM snapshots WHERE name = ?`,
		name,
	)
	m, err := scanMeta(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: snapshot %s", name)
	}
	return m, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMeta(row scannable) (*Meta, error) {
	var m Meta
	var columnsJSON string
	if err := row.Scan(&m.ID, &m.Name, &columnsJSON, &m.Rows, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan snapshot")
	}
	if err := json.Unmarshal([]byte(columnsJSON), &m.Columns); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal columns")
	}
	return &m, nil
}
