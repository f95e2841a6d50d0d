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
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Query   QueryConfig   `yaml:"query" mapstructure:"query"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the startup datasets.
type DataConfig struct {
	// TractShapefile is the census tract boundary shapefile (.shp with
	// sidecar .dbf carrying GEOID/NAME/STUSPS).
	TractShapefile string `yaml:"tract_shapefile" mapstructure:"tract_shapefile"`
	// ScoresCSV is the GEI scores table joined to tracts on GEOID.
	ScoresCSV string `yaml:"scores_csv" mapstructure:"scores_csv"`
	// SitesCSV is the CIMC hazard site table.
	SitesCSV string `yaml:"sites_csv" mapstructure:"sites_csv"`
	// FeatureTable is the feature reference table (.csv or .xlsx).
	FeatureTable string `yaml:"feature_table" mapstructure:"feature_table"`
}

// GeocodeConfig configures the external geocoder.
type GeocodeConfig struct {
	// Provider is "nominatim" (default) or "census".
	Provider string `yaml:"provider" mapstructure:"provider"`
	// NominatimURL overrides the Nominatim endpoint (tests, self-hosted).
	NominatimURL string `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	// UserAgent identifies this tool to Nominatim, which requires one.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	// RateLimit is the provider request budget in requests per second.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	// TimeoutSecs bounds a single geocoder HTTP call.
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	// MaxAttempts bounds retries of transient geocoder failures.
	// 1 disables retries.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// CacheConfig configures the geocode cache.
type CacheConfig struct {
	// Path is an optional SQLite file backing the in-memory cache so
	// resolutions survive restarts. Empty keeps the cache memory-only.
	Path string `yaml:"path" mapstructure:"path"`
}

// QueryConfig bounds query inputs.
type QueryConfig struct {
	// MaxRadiusMiles is the largest accepted search radius. Matches the
	// radius slider bound of the original dashboard UI.
	MaxRadiusMiles float64 `yaml:"max_radius_miles" mapstructure:"max_radius_miles"`
}

// ServerConfig configures the HTTP query server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("GEI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.tract_shapefile", "data/census_tracts_with_gei.shp")
	v.SetDefault("data.scores_csv", "data/gei_scores.csv")
	v.SetDefault("data.sites_csv", "data/cimc_sites_hazard_score.csv")
	v.SetDefault("data.feature_table", "data/feature_reference.csv")
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "geoequity-gei/1.0")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.max_attempts", 2)
	v.SetDefault("query.max_radius_miles", 25.0)
	v.SetDefault("server.port", 8080)
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
