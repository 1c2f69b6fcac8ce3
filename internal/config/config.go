package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Census   CensusConfig   `yaml:"census" mapstructure:"census"`
	Tiger    TigerConfig    `yaml:"tiger" mapstructure:"tiger"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Upload   UploadConfig   `yaml:"upload" mapstructure:"upload"`
	Columns  ColumnConfig   `yaml:"columns" mapstructure:"columns"`
	Policy   PolicyConfig   `yaml:"policy" mapstructure:"policy"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SnapshotConfig configures the snapshot store backend.
type SnapshotConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CensusConfig holds Census Bureau API settings.
type CensusConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	Year        int    `yaml:"year" mapstructure:"year"`
	ACSBaseURL  string `yaml:"acs_base_url" mapstructure:"acs_base_url"`
	MaxParallel int    `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// TigerConfig configures TIGER/Line shapefile pulls.
type TigerConfig struct {
	Year    int    `yaml:"year" mapstructure:"year"`
	FTPHost string `yaml:"ftp_host" mapstructure:"ftp_host"`
	WorkDir string `yaml:"work_dir" mapstructure:"work_dir"`
}

// FetchConfig tunes the retrying HTTP fetcher.
type FetchConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
	ChunkSize   int `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// UploadConfig holds the blob storage target.
type UploadConfig struct {
	AccountURL  string `yaml:"account_url" mapstructure:"account_url"`
	Container   string `yaml:"container" mapstructure:"container"`
	Folder      string `yaml:"folder" mapstructure:"folder"`
	SASToken    string `yaml:"sas_token" mapstructure:"sas_token"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DictFormat  string `yaml:"dict_format" mapstructure:"dict_format"`
}

// ColumnConfig maps the roll's column names onto the analysis inputs.
// Rolls differ by assessor; these defaults match the Cook County export.
type ColumnConfig struct {
	Land          string `yaml:"land" mapstructure:"land"`
	Improvement   string `yaml:"improvement" mapstructure:"improvement"`
	Exemption     string `yaml:"exemption" mapstructure:"exemption"`
	ExemptionFlag string `yaml:"exemption_flag" mapstructure:"exemption_flag"`
	PropertyType  string `yaml:"property_type" mapstructure:"property_type"`
	Category      string `yaml:"category" mapstructure:"category"`
	Neighborhood  string `yaml:"neighborhood" mapstructure:"neighborhood"`
	Zoning        string `yaml:"zoning" mapstructure:"zoning"`
	Owner         string `yaml:"owner" mapstructure:"owner"`
}

// PolicyConfig holds the analysis knobs.
type PolicyConfig struct {
	VacantIdentifier    string  `yaml:"vacant_identifier" mapstructure:"vacant_identifier"`
	ParkingIdentifier   string  `yaml:"parking_identifier" mapstructure:"parking_identifier"`
	MinLandValue        float64 `yaml:"min_land_value" mapstructure:"min_land_value"`
	MaxImprovementRatio float64 `yaml:"max_improvement_ratio" mapstructure:"max_improvement_ratio"`
	MillageRate         float64 `yaml:"millage_rate" mapstructure:"millage_rate"`
	Years               int     `yaml:"years" mapstructure:"years"`
	DiscountRate        float64 `yaml:"discount_rate" mapstructure:"discount_rate"`
	ConstructionPerSqf  float64 `yaml:"construction_per_sqft" mapstructure:"construction_per_sqft"`
	UnitSizeSqf         float64 `yaml:"unit_size_sqft" mapstructure:"unit_size_sqft"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PARCEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("snapshot.driver", "sqlite")
	v.SetDefault("snapshot.path", "parcel-snapshots.db")
	v.SetDefault("census.year", 2022)
	v.SetDefault("census.acs_base_url", "https://api.census.gov/data")
	v.SetDefault("census.max_parallel", 4)
	v.SetDefault("tiger.year", 2022)
	v.SetDefault("tiger.ftp_host", "ftp2.census.gov")
	v.SetDefault("tiger.work_dir", "/tmp/parcel-cli")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.chunk_size", 2000)
	v.SetDefault("upload.timeout_secs", 120)
	v.SetDefault("upload.dict_format", "json")
	v.SetDefault("columns.land", "land_value")
	v.SetDefault("columns.improvement", "improvement_value")
	v.SetDefault("columns.exemption", "exemption_amount")
	v.SetDefault("columns.exemption_flag", "fully_exempt")
	v.SetDefault("columns.property_type", "property_type")
	v.SetDefault("columns.category", "property_class")
	v.SetDefault("columns.neighborhood", "neighborhood")
	v.SetDefault("columns.zoning", "zoning")
	v.SetDefault("columns.owner", "owner_name")
	v.SetDefault("policy.vacant_identifier", "Vacant Land")
	v.SetDefault("policy.parking_identifier", "Trans - Parking")
	v.SetDefault("policy.min_land_value", 50_000)
	v.SetDefault("policy.max_improvement_ratio", 0.1)
	v.SetDefault("policy.millage_rate", 0.012)
	v.SetDefault("policy.years", 30)
	v.SetDefault("policy.discount_rate", 0.05)
	v.SetDefault("policy.construction_per_sqft", 150)
	v.SetDefault("policy.unit_size_sqft", 1200)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration supports the requested mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "analyze":
		if c.Columns.Land == "" {
			problems = append(problems, "columns.land is required")
		}
		if c.Policy.Years < 0 {
			problems = append(problems, "policy.years must be >= 0")
		}
		if c.Policy.MaxImprovementRatio < 0 || c.Policy.MaxImprovementRatio > 1 {
			problems = append(problems, "policy.max_improvement_ratio must be between 0 and 1")
		}
	case "census":
		if c.Census.APIKey == "" {
			problems = append(problems, "census.api_key is required")
		}
	case "snapshot":
		switch c.Snapshot.Driver {
		case "sqlite":
			if c.Snapshot.Path == "" {
				problems = append(problems, "snapshot.path is required for sqlite")
			}
		case "postgres":
			if c.Snapshot.DatabaseURL == "" {
				problems = append(problems, "snapshot.database_url is required for postgres")
			}
		default:
			problems = append(problems, "snapshot.driver must be sqlite or postgres")
		}
	case "upload":
		if c.Upload.AccountURL == "" {
			problems = append(problems, "upload.account_url is required")
		}
		if c.Upload.Container == "" {
			problems = append(problems, "upload.container is required")
		}
		if c.Upload.SASToken == "" {
			problems = append(problems, "upload.sas_token is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
