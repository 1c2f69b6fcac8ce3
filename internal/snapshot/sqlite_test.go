package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/parcel-cli/internal/table"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func rollFrame(t *testing.T) *table.Frame {
	t.Helper()
	f := table.New(3)
	require.NoError(t, f.Set("pin", []any{"17-03-101-001", "17-03-101-002", "17-03-101-003"}))
	require.NoError(t, f.Set("market_value", []any{250_000.0, 0.0, 1_250_000.0}))
	require.NoError(t, f.Set("class", []any{"2-03", "1-00", "5-95"}))
	return f
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta, err := s.Save(ctx, "cook-2023", rollFrame(t))
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, 3, meta.Rows)
	assert.Equal(t, []string{"pin", "market_value", "class"}, meta.Columns)

	loaded, err := s.Load(ctx, "cook-2023")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
	assert.Equal(t, []string{"pin", "market_value", "class"}, loaded.Columns())
	assert.Equal(t, []string{"17-03-101-001", "17-03-101-002", "17-03-101-003"}, loaded.Strings("pin"))
	assert.Equal(t, []float64{250_000, 0, 1_250_000}, loaded.Numeric("market_value"))
}

func TestSQLiteStore_SaveOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "roll", rollFrame(t))
	require.NoError(t, err)

	smaller := table.New(1)
	require.NoError(t, smaller.Set("pin", []any{"99-99-999-999"}))
	_, err = s.Save(ctx, "roll", smaller)
	require.NoError(t, err)

	metas, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 1, metas[0].Rows)

	loaded, err := s.Load(ctx, "roll")
	require.NoError(t, err)
	assert.Equal(t, []string{"99-99-999-999"}, loaded.Strings("pin"))
}

func TestSQLiteStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "roll", rollFrame(t))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "roll"))

	_, err = s.Load(ctx, "roll")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(ctx, "roll")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "cook-2023", rollFrame(t))
	require.NoError(t, err)
	_, err = s.Save(ctx, "dupage-2023", rollFrame(t))
	require.NoError(t, err)

	metas, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)

	names := []string{metas[0].Name, metas[1].Name}
	assert.ElementsMatch(t, []string{"cook-2023", "dupage-2023"}, names)
}

func TestEncodeDecodeRows(t *testing.T) {
	f := rollFrame(t)

	docs, err := encodeRows(f)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	back, err := decodeRows(f.Columns(), docs)
	require.NoError(t, err)
	assert.Equal(t, f.Strings("pin"), back.Strings("pin"))
	assert.Equal(t, f.Numeric("market_value"), back.Numeric("market_value"))
}

func TestDecodeRows_CellCountMismatch(t *testing.T) {
	_, err := decodeRows([]string{"a", "b"}, []string{`["only-one"]`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cells")
}
