// Package snapshot persists analysis frames so later runs can reload a
// tax roll or boundary pull without refetching it. SQLite backs local
// work; Postgres backs shared snapshots.
package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/civicworks/parcel-cli/internal/table"
)

// ErrNotFound is returned when no snapshot exists under the requested name.
var ErrNotFound = eris.New("snapshot: not found")

// Meta describes a stored snapshot.
type Meta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Columns   []string  `json:"columns"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence contract shared by the SQLite and Postgres
// backends. Save overwrites an existing snapshot of the same name.
type Store interface {
	Save(ctx context.Context, name string, f *table.Frame) (*Meta, error)
	Load(ctx context.Context, name string) (*table.Frame, error)
	List(ctx context.Context) ([]Meta, error)
	Delete(ctx context.Context, name string) error
	Migrate(ctx context.Context) error
	Close() error
}

// encodeRows serializes each frame row as a JSON array aligned with the
// frame's column order. Arrays rather than objects so duplicate lookups
// stay positional and column order survives the round trip.
func encodeRows(f *table.Frame) ([]string, error) {
	columns := f.Columns()
	docs := make([]string, f.Len())
	for i := range docs {
		row := make([]any, len(columns))
		for j, name := range columns {
			row[j] = f.Column(name)[i]
		}
		doc, err := json.Marshal(row)
		if err != nil {
			return nil, eris.Wrapf(err, "snapshot: marshal row %d", i)
		}
		docs[i] = string(doc)
	}
	return docs, nil
}

// decodeRows rebuilds a frame from column names and positional JSON docs.
func decodeRows(columns []string, docs []string) (*table.Frame, error) {
	f := table.New(len(docs))
	cols := make([][]any, len(columns))
	for j := range cols {
		cols[j] = make([]any, len(docs))
	}
	for i, doc := range docs {
		var row []any
		if err := json.Unmarshal([]byte(doc), &row); err != nil {
			return nil, eris.Wrapf(err, "snapshot: unmarshal row %d", i)
		}
		if len(row) != len(columns) {
			return nil, eris.Errorf("snapshot: row %d has %d cells, snapshot has %d columns", i, len(row), len(columns))
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}
	for j, name := range columns {
		if err := f.Set(name, cols[j]); err != nil {
			return nil, err
		}
	}
	return f, nil
}
