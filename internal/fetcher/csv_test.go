package fetcher

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/parcel-cli/internal/table"
)

func TestReadCSVFrame(t *testing.T) {
	input := "parcel_id,land_value,improvement_value\nP1,100000,20000\nP2,\"250,000\",0\nP3,50000\n"

	f, err := ReadCSVFrame(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"parcel_id", "land_value", "improvement_value"}, f.Columns())
	assert.Equal(t, []float64{100_000, 250_000, 50_000}, f.Numeric("land_value"))
	// Ragged row: missing improvement coerces to 0.
	assert.Equal(t, []float64{20_000, 0, 0}, f.Numeric("improvement_value"))
}

func TestReadCSVFrame_TrimSpace(t *testing.T) {
	input := "owner\n  Acme LLC  \n"

	f, err := ReadCSVFrame(strings.NewReader(input), CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme LLC"}, f.Strings("owner"))
}

func TestReadCSVFrame_Empty(t *testing.T) {
	_, err := ReadCSVFrame(strings.NewReader(""), CSVOptions{})
	assert.Error(t, err)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	f := table.New(2)
	require.NoError(t, f.Set("parcel_id", []any{"P1", "P2"}))
	require.NoError(t, f.Set("land_value", []any{100_000.0, 50_000.0}))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))

	back, err := ReadCSVFrame(&buf, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, f.Numeric("land_value"), back.Numeric("land_value"))
	assert.Equal(t, f.Strings("parcel_id"), back.Strings("parcel_id"))
}
