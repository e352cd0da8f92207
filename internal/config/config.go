package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

type DriverCfg struct {
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"` // Per-invocation timeout (0 = none)
}

type HistoryCfg struct {
	DatabasePath string `yaml:"database_path" json:"database_path"` // Path to SQLite run history ("" = disabled)
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"` // Metrics listen port (0 = disabled)
}

type LoggingCfg struct {
	File         string `yaml:"file" json:"file"`                   // Log file path ("" = stderr only)
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type Config struct {
	TestDir         string        `yaml:"test_dir" json:"test_dir"`                 // Directory holding the test files
	TestPattern     string        `yaml:"test_pattern" json:"test_pattern"`         // Glob matched against test file names
	ArtifactPattern string        `yaml:"artifact_pattern" json:"artifact_pattern"` // Glob matched against generated artifact names
	OutputDir       string        `yaml:"output_dir" json:"output_dir"`             // Build-output directory removed by clean
	Interpreter     string        `yaml:"interpreter" json:"interpreter"`           // Interpreter invoked once per test file
	Venv            string        `yaml:"venv" json:"venv"`                         // Virtualenv root ("" = host PATH)
	Driver          DriverCfg     `yaml:"driver" json:"driver"`
	History         HistoryCfg    `yaml:"history" json:"history"`
	Prometheus      PrometheusCfg `yaml:"prometheus" json:"prometheus"`
	Logging         LoggingCfg    `yaml:"logging" json:"logging"`
}

var (
	errBadPattern     = errors.New("invalid glob pattern")
	errNegativeValue  = errors.New("value cannot be negative")
	errInvalidPort    = errors.New("prometheus port out of range")
	errEmptyDirectory = errors.New("directory must not be empty")
)

// DefaultPath is where suitedriver looks for configuration when no -config
// flag is given. A missing file at this path is not an error; the defaults
// below describe a conventional Python project layout.
const DefaultPath = "suitedriver.yaml"

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load, except that a missing file yields the
// default configuration instead of an error. Any other failure (unreadable
// file, bad YAML, invalid values) still surfaces.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TestDir == "" {
		c.TestDir = "test"
	}
	if c.TestPattern == "" {
		c.TestPattern = "test_*.py"
	}
	if c.ArtifactPattern == "" {
		c.ArtifactPattern = "*output*.csv"
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.Interpreter == "" {
		c.Interpreter = "python3"
	}
	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30 // Default: keep logs for 30 days
	}
}

func (c *Config) validateAndDefault() error {
	c.applyDefaults()

	if c.TestDir == "" {
		return fmt.Errorf("test_dir: %w", errEmptyDirectory)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir: %w", errEmptyDirectory)
	}
	if !doublestar.ValidatePattern(c.TestPattern) {
		return fmt.Errorf("test_pattern %q: %w", c.TestPattern, errBadPattern)
	}
	if !doublestar.ValidatePattern(c.ArtifactPattern) {
		return fmt.Errorf("artifact_pattern %q: %w", c.ArtifactPattern, errBadPattern)
	}
	if c.Driver.TimeoutSeconds < 0 {
		return fmt.Errorf("driver.timeout_seconds: %w", errNegativeValue)
	}
	if c.Prometheus.Port < 0 || c.Prometheus.Port > 65535 {
		return fmt.Errorf("prometheus.port %d: %w", c.Prometheus.Port, errInvalidPort)
	}
	return nil
}

// Timeout returns the per-invocation timeout, zero meaning none.
func (c *DriverCfg) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
