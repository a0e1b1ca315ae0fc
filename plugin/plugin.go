// Package plugin deletes or empties configured paths around test lifecycle
// hooks. A Plugin is built from a YAML configuration and driven by a host
// test framework through BeforeSuite, AfterSuite, BeforeTest and AfterTest.
package plugin

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"cache-cleanup/internal/cleanup"
	"cache-cleanup/internal/config"
	"cache-cleanup/internal/database"
	"cache-cleanup/internal/logging"
	"cache-cleanup/internal/metrics"
)

// Hook names a point in the test run lifecycle
type Hook = config.Hook

const (
	BeforeSuite = config.BeforeSuite
	AfterSuite  = config.AfterSuite
	BeforeTest  = config.BeforeTest
	AfterTest   = config.AfterTest
)

// ErrUnknownHook is returned for hook names outside the four lifecycle hooks
var ErrUnknownHook = cleanup.ErrUnknownHook

// ErrClosed is returned by hooks invoked after Close
var ErrClosed = errors.New("plugin closed")

type options struct {
	root     string
	logger   *log.Logger
	fs       afero.Fs
	textfile string
	debug    bool
}

// Option customizes Open and FromYAML
type Option func(*options)

// WithRoot overrides rootDir from the configuration
func WithRoot(dir string) Option {
	return func(o *options) { o.root = dir }
}

// WithLogger sends plugin output to l instead of stderr and logging.file
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFs runs every lookup and removal against fsys
func WithFs(fsys afero.Fs) Option {
	return func(o *options) { o.fs = fsys }
}

// WithDebug turns on debug logging regardless of logging.debug
func WithDebug() Option {
	return func(o *options) { o.debug = true }
}

// WithMetricsTextfile overrides metrics.textfile from the configuration
func WithMetricsTextfile(path string) Option {
	return func(o *options) { o.textfile = path }
}

// Plugin runs cleanup jobs for lifecycle hooks. Hooks are serialized, so a
// host may call them from parallel tests.
type Plugin struct {
	mu       sync.Mutex
	runner   *cleanup.Runner
	cfg      *config.Config
	logger   logging.Logger
	history  *database.HistoryDB
	logFile  io.Closer
	textfile string
	closed   bool
}

// Open loads the configuration file at path and builds a Plugin
func Open(path string, opts ...Option) (*Plugin, error) {
	o := collect(opts)
	cfg, err := config.Load(path, o.root)
	if err != nil {
		return nil, err
	}
	return build(cfg, o)
}

// FromYAML builds a Plugin from an in-memory configuration document.
// Relative paths resolve against the working directory.
func FromYAML(data []byte, opts ...Option) (*Plugin, error) {
	o := collect(opts)
	cfg, err := config.Parse(data, o.root)
	if err != nil {
		return nil, err
	}
	return build(cfg, o)
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func build(cfg *config.Config, o options) (*Plugin, error) {
	if o.debug {
		cfg.Logging.Debug = true
	}
	if o.textfile != "" {
		abs, err := filepath.Abs(o.textfile)
		if err != nil {
			return nil, fmt.Errorf("metrics textfile: %w", err)
		}
		cfg.Metrics.Textfile = abs
	}
	p := &Plugin{cfg: cfg, textfile: cfg.Metrics.Textfile}

	if o.logger != nil {
		p.logger = logging.Wrap(o.logger, cfg.Logging.Debug)
	} else {
		logger, closer, err := logging.Open(cfg.Logging.File, cfg.Logging.RotationDays, cfg.Logging.Debug)
		if err != nil {
			return nil, err
		}
		p.logger = logger
		p.logFile = closer
	}

	runner, err := cleanup.NewRunner(cfg, p.logger)
	if err != nil {
		_ = p.closeLog()
		return nil, err
	}
	if o.fs != nil {
		runner.SetFs(o.fs)
	}
	p.runner = runner

	if cfg.HistoryDB != "" {
		db, err := database.NewHistoryDB(cfg.HistoryDB)
		if err != nil {
			_ = p.closeLog()
			return nil, fmt.Errorf("open history: %w", err)
		}
		p.history = db
		runner.SetRecorder(db)
	}

	p.logger.Debug("Plugin ready", "root", cfg.RootDir, "jobs", len(cfg.Jobs))
	return p, nil
}

// Root returns the directory every configured path is relative to
func (p *Plugin) Root() string {
	return p.runner.Root()
}

func (p *Plugin) BeforeSuite() error { return p.RunHook(BeforeSuite) }
func (p *Plugin) AfterSuite() error  { return p.RunHook(AfterSuite) }
func (p *Plugin) BeforeTest() error  { return p.RunHook(BeforeTest) }
func (p *Plugin) AfterTest() error   { return p.RunHook(AfterTest) }

// RunHook runs every job bound to hook and returns once they are done
func (p *Plugin) RunHook(hook Hook) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return p.runner.RunHook(hook)
}

// Plan reports what hook would do without touching the filesystem
func (p *Plugin) Plan(hook Hook) (*cleanup.Plan, error) {
	return p.runner.Plan(hook)
}

// History returns the removal history, or nil when historyDB is not set
func (p *Plugin) History() *database.HistoryDB {
	return p.history
}

// Close writes the metrics textfile when configured and releases the
// history database and log file. Later hooks fail with ErrClosed.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.textfile != "" {
		if err := metrics.WriteTextfile(p.textfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if p.history != nil {
		if err := p.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	if err := p.closeLog(); err != nil {
		errs = append(errs, fmt.Errorf("close log: %w", err))
	}
	return errors.Join(errs...)
}

func (p *Plugin) closeLog() error {
	if p.logFile == nil {
		return nil
	}
	err := p.logFile.Close()
	p.logFile = nil
	return err
}
