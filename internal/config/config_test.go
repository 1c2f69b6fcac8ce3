package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Snapshot.Driver)
	assert.Equal(t, "parcel-snapshots.db", cfg.Snapshot.Path)
	assert.Equal(t, 2022, cfg.Census.Year)
	assert.Equal(t, "https://api.census.gov/data", cfg.Census.ACSBaseURL)
	assert.Equal(t, 4, cfg.Census.MaxParallel)
	assert.Equal(t, "ftp2.census.gov", cfg.Tiger.FTPHost)
	assert.Equal(t, 60, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 2000, cfg.Fetch.ChunkSize)
	assert.Equal(t, "land_value", cfg.Columns.Land)
	assert.Equal(t, "improvement_value", cfg.Columns.Improvement)
	assert.Equal(t, "Vacant Land", cfg.Policy.VacantIdentifier)
	assert.Equal(t, "Trans - Parking", cfg.Policy.ParkingIdentifier)
	assert.InDelta(t, 50_000, cfg.Policy.MinLandValue, 0.001)
	assert.InDelta(t, 0.1, cfg.Policy.MaxImprovementRatio, 0.001)
	assert.InDelta(t, 0.012, cfg.Policy.MillageRate, 0.0001)
	assert.Equal(t, 30, cfg.Policy.Years)
	assert.InDelta(t, 0.05, cfg.Policy.DiscountRate, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
snapshot:
  driver: postgres
  database_url: postgres://localhost/parcels
columns:
  land: LAND_AV
  owner: TAXPAYER
policy:
  millage_rate: 0.015
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(".", "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Snapshot.Driver)
	assert.Equal(t, "postgres://localhost/parcels", cfg.Snapshot.DatabaseURL)
	assert.Equal(t, "LAND_AV", cfg.Columns.Land)
	assert.Equal(t, "TAXPAYER", cfg.Columns.Owner)
	assert.InDelta(t, 0.015, cfg.Policy.MillageRate, 0.0001)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "improvement_value", cfg.Columns.Improvement)
	assert.Equal(t, 30, cfg.Policy.Years)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtemp(t)

	yaml := `
snapshot:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0644))

	t.Setenv("PARCEL_SNAPSHOT_DRIVER", "postgres")
	t.Setenv("PARCEL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Snapshot.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("PARCEL_CENSUS_API_KEY", "env-key")
	t.Setenv("PARCEL_FETCH_CHUNK_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Census.APIKey)
	assert.Equal(t, 500, cfg.Fetch.ChunkSize)
}

func TestValidateAnalyze(t *testing.T) {
	cfg := &Config{}
	cfg.Columns.Land = "land_value"
	cfg.Policy.MaxImprovementRatio = 0.1
	assert.NoError(t, cfg.Validate("analyze"))

	cfg.Columns.Land = ""
	err := cfg.Validate("analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns.land")

	cfg.Columns.Land = "land_value"
	cfg.Policy.MaxImprovementRatio = 1.5
	err = cfg.Validate("analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_improvement_ratio")
}

func TestValidateCensus(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("census")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census.api_key")

	cfg.Census.APIKey = "key"
	assert.NoError(t, cfg.Validate("census"))
}

func TestValidateSnapshot(t *testing.T) {
	cfg := &Config{}
	cfg.Snapshot.Driver = "sqlite"
	err := cfg.Validate("snapshot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot.path")

	cfg.Snapshot.Path = "x.db"
	assert.NoError(t, cfg.Validate("snapshot"))

	cfg.Snapshot.Driver = "postgres"
	err = cfg.Validate("snapshot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")

	cfg.Snapshot.Driver = "mysql"
	err = cfg.Validate("snapshot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite or postgres")
}

func TestValidateUpload(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("upload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload.account_url")
	assert.Contains(t, err.Error(), "upload.container")
	assert.Contains(t, err.Error(), "upload.sas_token")

	cfg.Upload.AccountURL = "https://acct.blob.core.windows.net"
	cfg.Upload.Container = "datasets"
	cfg.Upload.SASToken = "sv=..."
	assert.NoError(t, cfg.Validate("upload"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
