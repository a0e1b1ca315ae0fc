package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Hook names a point in the test run lifecycle
type Hook string

const (
	BeforeSuite Hook = "beforeSuite"
	AfterSuite  Hook = "afterSuite"
	BeforeTest  Hook = "beforeTest"
	AfterTest   Hook = "afterTest"
)

// Hooks lists every recognized hook in firing order
var Hooks = []Hook{BeforeSuite, BeforeTest, AfterTest, AfterSuite}

// Valid reports whether h is one of the four recognized hooks
func (h Hook) Valid() bool {
	switch h {
	case BeforeSuite, AfterSuite, BeforeTest, AfterTest:
		return true
	}
	return false
}

// Job is a named set of cleanup actions
type Job struct {
	Delete PathList `yaml:"delete" json:"delete"` // Files or directories removed entirely
	Empty  PathList `yaml:"empty" json:"empty"`   // Directories whose files are removed
}

type LoggingCfg struct {
	File         string `yaml:"file" json:"file"`                 // Optional log file, appended to alongside stderr
	RotationDays int    `yaml:"rotationDays" json:"rotationDays"` // Days to keep the log file before rotation
	Debug        bool   `yaml:"debug" json:"debug"`
}

type MetricsCfg struct {
	Textfile string `yaml:"textfile" json:"textfile"` // Prometheus text format output written on close
}

type Config struct {
	RootDir      string         `yaml:"rootDir" json:"rootDir"`
	KeepDotFiles bool           `yaml:"keepDotFiles" json:"keepDotFiles"` // empty leaves dot entries in place
	HistoryDB    string         `yaml:"historyDB" json:"historyDB"`       // SQLite removal history, disabled when empty
	Logging      LoggingCfg     `yaml:"logging" json:"logging"`
	Metrics      MetricsCfg     `yaml:"metrics" json:"metrics"`
	Jobs         map[string]Job `yaml:"jobs" json:"jobs"`

	BeforeSuite Binding `yaml:"beforeSuite" json:"beforeSuite"`
	AfterSuite  Binding `yaml:"afterSuite" json:"afterSuite"`
	BeforeTest  Binding `yaml:"beforeTest" json:"beforeTest"`
	AfterTest   Binding `yaml:"afterTest" json:"afterTest"`

	// Source is the file the configuration was loaded from, if any
	Source string `yaml:"-" json:"-"`
}

var (
	ErrNoRoot           = errors.New("cannot resolve root directory")
	ErrRootNotDir       = errors.New("root directory is not a directory")
	errNegativeRotation = errors.New("logging.rotationDays cannot be negative")
)

// Load reads configuration from path. An empty rootOverride defers to rootDir
// in the file and then to the module root.
func Load(path, rootOverride string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.Source = abs
	if err := cfg.validateAndDefault(filepath.Dir(abs), rootOverride); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration held in memory. Relative paths resolve
// against the working directory.
func Parse(data []byte, rootOverride string) (*Config, error) {
	cfg, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	if err := cfg.validateAndDefault(wd, rootOverride); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		// An empty document is a valid configuration with nothing bound
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault(baseDir, rootOverride string) error {
	if c.Jobs == nil {
		c.Jobs = map[string]Job{}
	}

	if c.Logging.RotationDays < 0 {
		return errNegativeRotation
	}
	if c.Logging.RotationDays == 0 {
		c.Logging.RotationDays = 30
	}

	c.Logging.File = absFrom(baseDir, c.Logging.File)
	c.Metrics.Textfile = absFrom(baseDir, c.Metrics.Textfile)
	c.HistoryDB = absFrom(baseDir, c.HistoryDB)

	root, err := resolveRoot(baseDir, c.RootDir, rootOverride)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRootNotDir, root)
	}
	c.RootDir = root
	return nil
}

// Binding returns the ordered job names bound to h, nil when unbound
func (c *Config) Binding(h Hook) []string {
	switch h {
	case BeforeSuite:
		return c.BeforeSuite
	case AfterSuite:
		return c.AfterSuite
	case BeforeTest:
		return c.BeforeTest
	case AfterTest:
		return c.AfterTest
	}
	return nil
}

// resolveRoot picks the override, then rootDir, then the nearest go.mod
// ancestor of the working directory, then the working directory itself.
func resolveRoot(baseDir, configured, override string) (string, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoRoot, err)
		}
		return abs, nil
	}
	if configured != "" {
		return absFrom(baseDir, configured), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRoot, err)
	}
	if mod := findModuleRoot(wd); mod != "" {
		return mod, nil
	}
	return wd, nil
}

func findModuleRoot(dir string) string {
	dir = filepath.Clean(dir)
	for {
		if fi, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func absFrom(baseDir, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}
