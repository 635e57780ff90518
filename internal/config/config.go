package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/siteselect/internal/projection"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	CRS      CRSConfig      `yaml:"crs" mapstructure:"crs"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the local input files.
type InputConfig struct {
	Elevation       string   `yaml:"elevation" mapstructure:"elevation"`
	Flood           string   `yaml:"flood" mapstructure:"flood"`
	FloodEPSG       int      `yaml:"flood_epsg" mapstructure:"flood_epsg"`
	FloodNameField  string   `yaml:"flood_name_field" mapstructure:"flood_name_field"`
	FloodRiskField  string   `yaml:"flood_risk_field" mapstructure:"flood_risk_field"`
	FloodRiskValues []string `yaml:"flood_risk_values" mapstructure:"flood_risk_values"`
}

// CRSConfig sets the projected CRS of the elevation raster.
type CRSConfig struct {
	EPSG int `yaml:"epsg" mapstructure:"epsg"`
}

// OutputConfig controls where and what is written.
type OutputConfig struct {
	Dir             string `yaml:"dir" mapstructure:"dir"`
	PlaceholderName string `yaml:"placeholder_name" mapstructure:"placeholder_name"`
	Maps            bool   `yaml:"maps" mapstructure:"maps"`
	MapScale        int    `yaml:"map_scale" mapstructure:"map_scale"` // pixels per cell edge
}

// OverpassConfig configures the amenity feature service.
type OverpassConfig struct {
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Offline     bool    `yaml:"offline" mapstructure:"offline"` // skip amenity retrieval
}

// AnalysisConfig tunes the reference grid and concurrency.
type AnalysisConfig struct {
	CoarsenFactor int `yaml:"coarsen_factor" mapstructure:"coarsen_factor"`
	Workers       int `yaml:"workers" mapstructure:"workers"`
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
	v.SetEnvPrefix("SITESELECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.elevation", "data/elevation.asc")
	v.SetDefault("input.flood", "data/flood_zones.shp")
	v.SetDefault("input.flood_epsg", projection.EPSGWGS84)
	v.SetDefault("input.flood_name_field", "name")
	v.SetDefault("input.flood_risk_field", "")
	v.SetDefault("input.flood_risk_values", []string{})
	v.SetDefault("crs.epsg", 32630)
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.placeholder_name", "unnamed")
	v.SetDefault("output.maps", true)
	v.SetDefault("output.map_scale", 4)
	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_secs", 180)
	v.SetDefault("overpass.rate_per_sec", 1.0)
	v.SetDefault("overpass.offline", false)
	v.SetDefault("analysis.coarsen_factor", 4)
	v.SetDefault("analysis.workers", 4)
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

// Validate checks the settings a command needs. mode is one of "run",
// "amenities" or "inspect".
func (c *Config) Validate(mode string) error {
	var problems []string
	require := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	switch mode {
	case "run":
		require(c.Input.Elevation != "", "input.elevation is required")
		require(c.Input.Flood != "", "input.flood is required")
		require(c.Output.Dir != "", "output.dir is required")
		require(c.Output.MapScale >= 1 && c.Output.MapScale <= 32, "output.map_scale must be between 1 and 32")
		require(c.Analysis.Workers >= 1 && c.Analysis.Workers <= 16, "analysis.workers must be between 1 and 16")
		if _, err := projection.Parse(c.Input.FloodEPSG); err != nil {
			problems = append(problems, fmt.Sprintf("input.flood_epsg %d is not supported", c.Input.FloodEPSG))
		}
		if c.Input.FloodRiskField != "" {
			require(len(c.Input.FloodRiskValues) > 0, "input.flood_risk_values is required when flood_risk_field is set")
		}
		c.validateAnalysis(require)
		if !c.Overpass.Offline {
			c.validateOverpass(require)
		}
	case "amenities":
		require(c.Input.Elevation != "", "input.elevation is required")
		c.validateAnalysis(require)
		c.validateOverpass(require)
	case "inspect":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateAnalysis(require func(bool, string, ...any)) {
	crs, err := projection.Parse(c.CRS.EPSG)
	require(err == nil, "crs.epsg %d is not supported", c.CRS.EPSG)
	require(err != nil || !crs.Geographic(), "crs.epsg must be a projected CRS, got %d", c.CRS.EPSG)
	// slope and distances assume true metres
	require(err != nil || crs.Geographic() || crs.Zone != 0, "crs.epsg must be a UTM CRS, got %d", c.CRS.EPSG)
	require(c.Analysis.CoarsenFactor >= 1 && c.Analysis.CoarsenFactor <= 64, "analysis.coarsen_factor must be between 1 and 64")
}

func (c *Config) validateOverpass(require func(bool, string, ...any)) {
	require(c.Overpass.Endpoint != "", "overpass.endpoint is required")
	require(c.Overpass.TimeoutSecs > 0, "overpass.timeout_secs must be > 0")
	require(c.Overpass.RatePerSec > 0, "overpass.rate_per_sec must be > 0")
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
