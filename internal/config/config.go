// Package config holds the runtime configuration of itvetl.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file (itvetl.yaml in the working directory or --config), a .env file,
// and ITV_-prefixed environment variables (ITV_STORAGE_DSN, ...). Command-line
// flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"itvetl/internal/domain"
	"itvetl/internal/normalize"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "ITV"

// Config is the root configuration document.
type Config struct {
	Sources   map[string]SourceConfig `mapstructure:"sources"`
	Storage   StorageConfig           `mapstructure:"storage"`
	Geocoder  GeocoderConfig          `mapstructure:"geocoder"`
	Normalize NormalizeConfig         `mapstructure:"normalize"`
	Metrics   MetricsConfig           `mapstructure:"metrics"`
	HTTP      HTTPConfig              `mapstructure:"http"`
	Log       LogConfig               `mapstructure:"log"`
}

// SourceConfig locates and describes one raw directory.
type SourceConfig struct {
	// Location is a local path or an http(s) URL.
	Location string `mapstructure:"location"`
	// Format is one of json, xml or csv.
	Format string `mapstructure:"format"`
	// RecordTag names the XML element that wraps one record.
	RecordTag string `mapstructure:"record_tag"`
	// Delimiter is the CSV field separator.
	Delimiter string `mapstructure:"delimiter"`
}

// StorageConfig selects the relational backend.
type StorageConfig struct {
	Kind string `mapstructure:"kind"`
	DSN  string `mapstructure:"dsn"`
}

// GeocoderConfig drives the web geocoding session used to validate CV
// coordinates.
type GeocoderConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BaseURL       string        `mapstructure:"base_url"`
	ConsentPath   string        `mapstructure:"consent_path"`
	SearchPath    string        `mapstructure:"search_path"`
	LatSelector   string        `mapstructure:"lat_selector"`
	LonSelector   string        `mapstructure:"lon_selector"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// NormalizeConfig overrides the normalizer heuristics.
type NormalizeConfig struct {
	FuzzyThreshold   float64 `mapstructure:"fuzzy_threshold"`
	NearZero         float64 `mapstructure:"near_zero"`
	GarbageMagnitude float64 `mapstructure:"garbage_magnitude"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	Backend        string `mapstructure:"backend"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	StatsdAddr     string `mapstructure:"statsd_addr"`
	Job            string `mapstructure:"job"`
}

// HTTPConfig configures the load endpoint.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sources.cv.location", "data/estaciones.json")
	v.SetDefault("sources.cv.format", "json")
	v.SetDefault("sources.cat.location", "data/ITV-CAT.xml")
	v.SetDefault("sources.cat.format", "xml")
	v.SetDefault("sources.cat.record_tag", "row")
	v.SetDefault("sources.gal.location", "data/Estacions_ITVs.csv")
	v.SetDefault("sources.gal.format", "csv")
	v.SetDefault("sources.gal.delimiter", ";")

	v.SetDefault("storage.kind", "sqlite")
	v.SetDefault("storage.dsn", "itv.db")

	v.SetDefault("geocoder.enabled", false)
	v.SetDefault("geocoder.base_url", "")
	v.SetDefault("geocoder.consent_path", "/")
	v.SetDefault("geocoder.search_path", "/search")
	v.SetDefault("geocoder.lat_selector", "#latitude")
	v.SetDefault("geocoder.lon_selector", "#longitude")
	v.SetDefault("geocoder.user_agent", "itvetl/1.0")
	v.SetDefault("geocoder.timeout", 10*time.Second)
	v.SetDefault("geocoder.rate_per_second", 1.0)
	v.SetDefault("geocoder.redis_addr", "")
	v.SetDefault("geocoder.cache_ttl", 30*24*time.Hour)

	th := normalize.DefaultThresholds()
	v.SetDefault("normalize.fuzzy_threshold", th.FuzzyMatch)
	v.SetDefault("normalize.near_zero", th.NearZero)
	v.SetDefault("normalize.garbage_magnitude", th.GarbageMagnitude)

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.statsd_addr", "")
	v.SetDefault("metrics.job", "itvetl")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load builds a Config. An empty path searches for itvetl.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("itvetl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read itvetl.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// Source returns the configuration of s. Keys are matched case-insensitively
// because viper lower-cases map keys.
func (c *Config) Source(s domain.Source) (SourceConfig, bool) {
	sc, ok := c.Sources[strings.ToLower(string(s))]
	return sc, ok
}

// Thresholds converts the normalize section into normalizer thresholds.
func (c *Config) Thresholds() normalize.Thresholds {
	return normalize.Thresholds{
		FuzzyMatch:       c.Normalize.FuzzyThreshold,
		NearZero:         c.Normalize.NearZero,
		GarbageMagnitude: c.Normalize.GarbageMagnitude,
	}
}
