package census

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bgFeature(tract, blkgrp string) map[string]any {
	return map[string]any{
		"attributes": map[string]any{
			"STATE":  "42",
			"COUNTY": "101",
			"TRACT":  tract,
			"BLKGRP": blkgrp,
		},
		"geometry": map[string]any{
			"rings": [][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		},
	}
}

func writeFeatures(t *testing.T, w http.ResponseWriter, features []map[string]any) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"features":              features,
		"exceededTransferLimit": false,
	}))
}

// tigerwebTestServer emulates the block-group and tract layers under /bg and
// /tracts. When failDirect is set, whole-county block-group queries fail so
// only the per-tract path works.
func tigerwebTestServer(t *testing.T, failDirect bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		where := q.Get("where")

		if q.Get("returnCountOnly") == "true" {
			if strings.Contains(where, "TRACT=") {
				fmt.Fprint(w, `{"count":1}`)
			} else {
				fmt.Fprint(w, `{"count":2}`)
			}
			return
		}

		switch {
		case strings.HasPrefix(r.URL.Path, "/tracts"):
			writeFeatures(t, w, []map[string]any{
				{"attributes": map[string]any{"TRACT": "000200"}},
				{"attributes": map[string]any{"TRACT": "000100"}},
				{"attributes": map[string]any{"TRACT": "000100"}}, // dup
			})

		case strings.Contains(where, "TRACT="):
			var tract string
			fmt.Sscanf(where[strings.Index(where, "TRACT="):], "TRACT='%6s'", &tract)
			writeFeatures(t, w, []map[string]any{bgFeature(tract, "1")})

		default:
			if failDirect {
				fmt.Fprint(w, `{"error":{"code":500,"message":"layer too large"}}`)
				return
			}
			writeFeatures(t, w, []map[string]any{
				bgFeature("000100", "1"),
				bgFeature("000100", "2"),
			})
		}
	}))
}

func boundaryOpts(srv *httptest.Server) BoundaryOptions {
	return BoundaryOptions{
		BlockGroupsURL: srv.URL + "/bg",
		TractsURL:      srv.URL + "/tracts",
		MaxParallel:    2,
	}
}

func TestBlockGroupBoundaries_Direct(t *testing.T) {
	srv := tigerwebTestServer(t, false)
	defer srv.Close()

	layer, err := BlockGroupBoundaries(context.Background(), testHTTPFetcher(), "42101", boundaryOpts(srv))
	require.NoError(t, err)

	assert.Equal(t, 2, layer.Frame.Len())
	assert.Equal(t, []string{"421010001001", "421010001002"}, layer.Frame.Strings("std_geoid"))
	require.Len(t, layer.Geoms, 2)
	assert.NotNil(t, layer.Geoms[0])
}

func TestBlockGroupBoundaries_FallsBackToChunked(t *testing.T) {
	srv := tigerwebTestServer(t, true)
	defer srv.Close()

	layer, err := BlockGroupBoundaries(context.Background(), testHTTPFetcher(), "42101", boundaryOpts(srv))
	require.NoError(t, err)

	// One block group per tract, tracts deduplicated and sorted.
	assert.Equal(t, 2, layer.Frame.Len())
	geoids := layer.Frame.Strings("std_geoid")
	assert.Equal(t, []string{"421010001001", "421010002001"}, geoids)
}

func TestBlockGroupBoundaries_LargeCountyUsesChunked(t *testing.T) {
	srv := tigerwebTestServer(t, true)
	defer srv.Close()

	// Cook County always goes per tract; failDirect proves the direct path
	// was never tried.
	layer, err := BlockGroupBoundaries(context.Background(), testHTTPFetcher(), "17031", boundaryOpts(srv))
	require.NoError(t, err)
	assert.Equal(t, 2, layer.Frame.Len())
}

func TestBlockGroupBoundaries_BadFIPS(t *testing.T) {
	_, err := BlockGroupBoundaries(context.Background(), testHTTPFetcher(), "1", BoundaryOptions{})
	assert.Error(t, err)
}

func TestConcatFrames_Empty(t *testing.T) {
	f, err := concatFrames(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
}
