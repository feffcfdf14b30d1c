package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/snapsort/config.yaml"

// Config holds all snapsort configuration.
type Config struct {
	Scan      ScanConfig      `yaml:"scan"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Patterns  []PatternSpec   `yaml:"patterns"`
}

type ScanConfig struct {
	// Workers is the scan pool size. 0 means auto: min(32, NumCPU+4).
	Workers         int      `yaml:"workers"`
	PhotoExtensions []string `yaml:"photo_extensions"`
	VideoExtensions []string `yaml:"video_extensions"`
	SkipDirs        []string `yaml:"skip_dirs"`
}

type ClusterConfig struct {
	SameDayHours   int     `yaml:"same_day_hours"`
	EventMaxDays   int     `yaml:"event_max_days"`
	GeoRadiusKm    float64 `yaml:"geo_radius_km"`
	MinEventPhotos int     `yaml:"min_event_photos"`
}

type GeocodingConfig struct {
	Enabled            bool    `yaml:"enabled"`
	Endpoint           string  `yaml:"endpoint"`
	MinIntervalSeconds float64 `yaml:"min_interval_seconds"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	MaxRetries         int     `yaml:"max_retries"`
}

type CacheConfig struct {
	// Dir holds the snapshot files and the locations database.
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PatternSpec is one entry of the ordered filename pattern table. Groups must
// be 6 (year month day hour minute second) or 3 (year month day; time defaults
// to noon). Patterns are matching rules, never executable logic.
type PatternSpec struct {
	Name   string `yaml:"name"`
	Regexp string `yaml:"regexp"`
	Groups int    `yaml:"groups"`
}

// Load reads a YAML config file at path, merges it with defaults, and
// validates it. Returns an error if the file cannot be read, contains
// invalid YAML, or fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every threshold and pattern entry. Configuration errors are
// fatal before any file is touched, so everything is checked up front.
func (c *Config) Validate() error {
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must be >= 0, got %d", c.Scan.Workers)
	}
	if c.Cluster.SameDayHours < 0 {
		return fmt.Errorf("cluster.same_day_hours must be >= 0, got %d", c.Cluster.SameDayHours)
	}
	if c.Cluster.EventMaxDays <= 0 {
		return fmt.Errorf("cluster.event_max_days must be > 0, got %d", c.Cluster.EventMaxDays)
	}
	if c.Cluster.GeoRadiusKm < 0 {
		return fmt.Errorf("cluster.geo_radius_km must be >= 0, got %g", c.Cluster.GeoRadiusKm)
	}
	if c.Cluster.MinEventPhotos <= 0 {
		return fmt.Errorf("cluster.min_event_photos must be > 0, got %d", c.Cluster.MinEventPhotos)
	}
	if c.Geocoding.MinIntervalSeconds <= 0 {
		return fmt.Errorf("geocoding.min_interval_seconds must be > 0, got %g", c.Geocoding.MinIntervalSeconds)
	}
	if c.Geocoding.MaxRetries < 0 {
		return fmt.Errorf("geocoding.max_retries must be >= 0, got %d", c.Geocoding.MaxRetries)
	}

	for i, p := range c.Patterns {
		if err := validatePattern(p); err != nil {
			return fmt.Errorf("patterns[%d] (%s): %w", i, p.Name, err)
		}
	}

	return nil
}

// validatePattern enforces the pattern table contract: a compilable regular
// expression whose capture-group count is exactly 3 or 6 and matches the
// declared arity. Malformed entries are rejected, not silently ignored.
func validatePattern(p PatternSpec) error {
	if p.Name == "" {
		return fmt.Errorf("pattern name must not be empty")
	}
	if p.Groups != 3 && p.Groups != 6 {
		return fmt.Errorf("group arity must be 3 or 6, got %d", p.Groups)
	}
	re, err := regexp.Compile(p.Regexp)
	if err != nil {
		return fmt.Errorf("invalid regexp: %w", err)
	}
	if re.NumSubexp() != p.Groups {
		return fmt.Errorf("regexp captures %d groups, declared %d", re.NumSubexp(), p.Groups)
	}
	return nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// CacheDir returns the cache directory with ~ expanded.
func (c *Config) CacheDir() (string, error) {
	return expandPath(c.Cache.Dir)
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
