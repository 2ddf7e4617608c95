package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	DB         DBConfig         `yaml:"db"`
	Server     ServerConfig     `yaml:"server"`
	Ticker     TickerConfig     `yaml:"ticker"`
	Logbook    LogbookConfig    `yaml:"logbook"`
	Output     OutputConfig     `yaml:"output"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Voyage     VoyageConfig     `yaml:"voyage"`
	Polar      PolarConfig      `yaml:"polar"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path         string   `yaml:"path"`
	RunRetention Duration `yaml:"run_retention"` // run history older than this is pruned, 0 keeps everything
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// TickerConfig holds scheduler settings.
type TickerConfig struct {
	Interval    Duration `yaml:"interval"`     // how often the log directory is checked for changes
	FullRefresh Duration `yaml:"full_refresh"` // forced regeneration period, 0 disables
}

// LogbookConfig describes where daily log files live.
type LogbookConfig struct {
	Dir                string   `yaml:"dir"`
	Patterns           []string `yaml:"patterns"`
	MergeCourseChanges bool     `yaml:"merge_course_changes"`
}

// OutputConfig holds dataset output paths. An empty path disables that output.
type OutputConfig struct {
	Voyages      string `yaml:"voyages"`
	Polar        string `yaml:"polar"`
	GeoJSON      string `yaml:"geojson"`
	PolarTable   string `yaml:"polar_table"`
	PolarDiagram string `yaml:"polar_diagram"`
}

// ClassifierConfig holds the activity classifier thresholds.
type ClassifierConfig struct {
	MoveThreshold       Distance `yaml:"move_threshold"`        // path length still considered "at anchor"
	NearAnchorThreshold Distance `yaml:"near_anchor_threshold"` // below this a moving point is motoring
	GapDuration         Duration `yaml:"gap_duration"`          // silence after which a slow point is anchored
	GapSOG              Speed    `yaml:"gap_sog"`
	LowWind             Speed    `yaml:"low_wind"`
	FastSpeed           Speed    `yaml:"fast_speed"`
}

// VoyageConfig holds voyage grouping settings.
type VoyageConfig struct {
	MaxDayGap Duration `yaml:"max_day_gap"`
	Workers   int      `yaml:"workers"`
}

// PolarConfig holds polar dataset and curve settings.
type PolarConfig struct {
	TWAIncrement    float64  `yaml:"twa_increment"`
	TWSIncrement    float64  `yaml:"tws_increment"`
	BinSize         int      `yaml:"bin_size"`
	Percentile      float64  `yaml:"percentile"`
	MinSamples      int      `yaml:"min_samples"`
	EdgeExclusion   Duration `yaml:"edge_exclusion"`
	MinTWA          float64  `yaml:"min_twa"`
	MaxSOGWindRatio float64  `yaml:"max_sog_wind_ratio"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:         "./data/voyagelog.db",
			RunRetention: Duration(30 * 24 * time.Hour),
		},
		Server: ServerConfig{
			Enabled: false,
			Address: "localhost:1921",
		},
		Ticker: TickerConfig{
			Interval:    Duration(30 * time.Second),
			FullRefresh: Duration(0),
		},
		Logbook: LogbookConfig{
			Dir:      "./logbook",
			Patterns: []string{"*.yml", "*.yaml"},
		},
		Output: OutputConfig{
			Voyages:      "./public/voyages.json",
			Polar:        "./public/polar.json",
			GeoJSON:      "./public/voyages.geojson",
			PolarTable:   "./public/polar.txt",
			PolarDiagram: "./public/polar_diagram.png",
		},
		Classifier: ClassifierConfig{
			MoveThreshold:       Distance(0.25 * NauticalMile),
			NearAnchorThreshold: Distance(0.5 * NauticalMile),
			GapDuration:         Duration(4 * time.Hour),
			GapSOG:              Speed(1),
			LowWind:             Speed(7),
			FastSpeed:           Speed(4),
		},
		Voyage: VoyageConfig{
			MaxDayGap: Duration(48 * time.Hour),
			Workers:   1,
		},
		Polar: PolarConfig{
			TWAIncrement:    5,
			TWSIncrement:    5,
			BinSize:         10,
			Percentile:      80,
			MinSamples:      3,
			EdgeExclusion:   Duration(time.Hour),
			MinTWA:          30,
			MaxSOGWindRatio: 0.8,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)
	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides selected values from the environment (never saved back to disk).
func applyEnv(cfg *Config) {
	if dir := os.Getenv("VOYAGELOG_LOG_DIR"); dir != "" {
		cfg.Logbook.Dir = dir
	}
	if p := os.Getenv("VOYAGELOG_DB_PATH"); p != "" {
		cfg.DB.Path = p
	}
}

var winEnvRe = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

// ExpandPath expands $VAR, ${VAR} and %VAR% references in a path.
func ExpandPath(p string) string {
	p = winEnvRe.ReplaceAllStringFunc(p, func(m string) string {
		return os.Getenv(strings.Trim(m, "%"))
	})
	return os.ExpandEnv(p)
}

func expandPaths(cfg *Config) {
	for _, p := range []*string{
		&cfg.Log.Server.Path,
		&cfg.Log.Requests.Path,
		&cfg.DB.Path,
		&cfg.Logbook.Dir,
		&cfg.Output.Voyages,
		&cfg.Output.Polar,
		&cfg.Output.GeoJSON,
		&cfg.Output.PolarTable,
		&cfg.Output.PolarDiagram,
	} {
		*p = ExpandPath(*p)
	}
}

// Validate checks value ranges that would make the pipeline meaningless.
func (c *Config) Validate() error {
	var errs []error
	if c.Logbook.Dir == "" {
		errs = append(errs, errors.New("logbook.dir must be set"))
	}
	if c.Classifier.MoveThreshold < 0 || c.Classifier.NearAnchorThreshold < 0 {
		errs = append(errs, errors.New("classifier distances must not be negative"))
	}
	if c.Classifier.GapDuration < 0 {
		errs = append(errs, errors.New("classifier.gap_duration must not be negative"))
	}
	if c.Voyage.MaxDayGap < 0 {
		errs = append(errs, errors.New("voyage.max_day_gap must not be negative"))
	}
	if c.Polar.Percentile < 0 || c.Polar.Percentile > 100 {
		errs = append(errs, fmt.Errorf("polar.percentile %v out of range [0, 100]", c.Polar.Percentile))
	}
	if c.Polar.BinSize <= 0 || c.Polar.BinSize > 360 {
		errs = append(errs, fmt.Errorf("polar.bin_size %d out of range (0, 360]", c.Polar.BinSize))
	}
	return errors.Join(errs...)
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# voyagelog Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles)
#   Speed:    kn (knots), m/s, km/h

`)
	data = append(header, data...)

	reLevel := regexp.MustCompile(`(?m)^(\s+)level:`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: TRACE, DEBUG, INFO, WARN, ERROR\n${1}level:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
