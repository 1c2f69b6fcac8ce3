package census

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/parcel-cli/internal/fetcher"
)

func testHTTPFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	})
}

func TestBlockGroupProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "block group:*", q.Get("for"))
		assert.Equal(t, "state:42 county:101", q.Get("in"))
		assert.Equal(t, "test-key", q.Get("key"))

		fmt.Fprint(w, `[
			["NAME","B19013_001E","B01003_001E","B03002_003E","B03002_004E","B03002_012E","state","county","tract","block group"],
			["Block Group 1","55000","1000","600","300","80","42","101","000100","1"],
			["Block Group 2",null,"0","0","0","0","42","101","000100","2"]
		]`)
	}))
	defer srv.Close()

	frame, err := BlockGroupProfile(context.Background(), testHTTPFetcher(), "42101", ACSOptions{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)

	require.Equal(t, 2, frame.Len())
	assert.Equal(t, []float64{55_000, 0}, frame.Numeric("median_income"))
	assert.Equal(t, []string{"421010001001", "421010001002"}, frame.Strings("std_geoid"))

	// 400 of 1000 residents are non-white.
	assert.Equal(t, 40.0, frame.Numeric("minority_pct")[0])
	assert.Equal(t, 30.0, frame.Numeric("black_pct")[0])

	// Zero population never divides.
	assert.Equal(t, 0.0, frame.Numeric("minority_pct")[1])
}

func TestBlockGroupProfile_Validation(t *testing.T) {
	f := testHTTPFetcher()

	_, err := BlockGroupProfile(context.Background(), f, "421", ACSOptions{APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "5 digits")

	_, err = BlockGroupProfile(context.Background(), f, "42101", ACSOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestValidateFIPS(t *testing.T) {
	assert.NoError(t, validateFIPS("42101"))
	assert.Error(t, validateFIPS("4210"))
	assert.Error(t, validateFIPS("42101X"))
	assert.Error(t, validateFIPS("abcde"))
}
