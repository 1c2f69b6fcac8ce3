package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/parcel-cli/internal/table"
)

type capturedPut struct {
	path        string
	query       string
	blobType    string
	contentType string
	body        []byte
}

func blobTestServer(t *testing.T, puts *[]capturedPut) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		*puts = append(*puts, capturedPut{
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			blobType:    r.Header.Get("x-ms-blob-type"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		w.WriteHeader(http.StatusCreated)
	}))
}

func testFrame(t *testing.T) *table.Frame {
	t.Helper()
	f := table.New(2)
	require.NoError(t, f.Set("pin", []any{"17-03-101-001", "17-03-101-002"}))
	require.NoError(t, f.Set("land_value", []any{50_000.0, 75_000.0}))
	return f
}

func newTestUploader(t *testing.T, srv *httptest.Server, format DictFormat) *Uploader {
	t.Helper()
	u, err := NewUploader(Config{
		AccountURL: srv.URL,
		Container:  "datasets",
		Folder:     "parcels",
		SASToken:   "sv=2022&sig=abc",
		DictFormat: format,
	})
	require.NoError(t, err)
	u.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return u
}

func TestUploadFrame(t *testing.T) {
	var puts []capturedPut
	srv := blobTestServer(t, &puts)
	defer srv.Close()

	u := newTestUploader(t, srv, DictJSON)

	blob, err := u.UploadFrame(context.Background(), "parking_lots", testFrame(t))
	require.NoError(t, err)
	assert.Equal(t, "parcels/parking_lots_20240315.csv", blob)

	require.Len(t, puts, 2)

	csvPut := puts[0]
	assert.Equal(t, "/datasets/parcels/parking_lots_20240315.csv", csvPut.path)
	assert.Equal(t, "sv=2022&sig=abc", csvPut.query)
	assert.Equal(t, "BlockBlob", csvPut.blobType)
	assert.Equal(t, "text/csv", csvPut.contentType)
	assert.Contains(t, string(csvPut.body), "pin,land_value")
	assert.Contains(t, string(csvPut.body), "17-03-101-001,50000")

	dictPut := puts[1]
	assert.Equal(t, "/datasets/parcels/parking_lots_20240315_dictionary.json", dictPut.path)
	assert.Equal(t, "BlockBlob", dictPut.blobType)

	var dict Dictionary
	require.NoError(t, json.Unmarshal(dictPut.body, &dict))
	assert.Equal(t, []string{"pin", "land_value"}, dict.Columns)
	assert.Equal(t, 2, dict.RecordCount)
	assert.Equal(t, "20240315", dict.Timestamp)
	assert.Equal(t, "object", dict.Types["pin"])
	assert.Equal(t, "float64", dict.Types["land_value"])
}

func TestUploadFrame_YAMLDictionary(t *testing.T) {
	var puts []capturedPut
	srv := blobTestServer(t, &puts)
	defer srv.Close()

	u := newTestUploader(t, srv, DictYAML)

	_, err := u.UploadFrame(context.Background(), "rolls", testFrame(t))
	require.NoError(t, err)

	require.Len(t, puts, 2)
	assert.Equal(t, "/datasets/parcels/rolls_20240315_dictionary.yaml", puts[1].path)
	assert.Contains(t, string(puts[1].body), "record_count: 2")
}

func TestUploadFrame_Empty(t *testing.T) {
	u, err := NewUploader(Config{AccountURL: "http://x", Container: "c", SASToken: "s"})
	require.NoError(t, err)

	_, err = u.UploadFrame(context.Background(), "empty", table.New(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data")
}

func TestUploadFrame_ServerRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "auth failed", http.StatusForbidden)
	}))
	defer srv.Close()

	u := newTestUploader(t, srv, DictJSON)

	_, err := u.UploadFrame(context.Background(), "rolls", testFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestNewUploader_Validation(t *testing.T) {
	_, err := NewUploader(Config{Container: "c", SASToken: "s"})
	assert.Error(t, err)

	_, err = NewUploader(Config{AccountURL: "http://x", Container: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAS token")
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name string
		col  []any
		want string
	}{
		{"floats", []any{1.5, 2.0}, "float64"},
		{"numeric strings", []any{"100", "2.5"}, "float64"},
		{"mixed", []any{"100", "abc"}, "object"},
		{"strings", []any{"a", "b"}, "object"},
		{"nils only", []any{nil, nil}, "object"},
		{"blanks then numbers", []any{"", nil, "42"}, "float64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferType(tt.col))
		})
	}
}
