package cleanup

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/spf13/afero"

	"cache-cleanup/internal/config"
	"cache-cleanup/internal/database"
	"cache-cleanup/internal/fsops"
	"cache-cleanup/internal/logging"
	"cache-cleanup/internal/metrics"
	"cache-cleanup/internal/safety"
)

// ErrUnknownHook is returned for hook names outside the four lifecycle hooks
var ErrUnknownHook = errors.New("unknown hook")

// Action is a cleanup action kind
type Action string

const (
	ActionDelete Action = "delete"
	ActionEmpty  Action = "empty"
)

// Recorder receives one record per removal attempt
type Recorder interface {
	RecordRemoval(rec database.Record) error
}

type target struct {
	rel string
	abs string
}

// resolvedJob is a job with every path validated and joined onto the root
type resolvedJob struct {
	delete []target
	empty  []target
}

// Runner executes the cleanup jobs bound to lifecycle hooks
type Runner struct {
	cfg       *config.Config
	jobs      map[string]resolvedJob
	fs        afero.Fs
	deleter   fsops.Deleter
	validator *safety.Validator
	logger    logging.Logger
	recorder  Recorder
	removals  int // Paths removed by the hook in progress
}

// NewRunner validates every configured path against the root and returns a
// Runner on the real filesystem. Nothing is touched on disk.
func NewRunner(cfg *config.Config, logger logging.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = logging.Discard
	}
	metrics.Init()

	validator := safety.NewValidator(cfg.RootDir, protectedTrees(cfg))

	names := make([]string, 0, len(cfg.Jobs))
	for name := range cfg.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make(map[string]resolvedJob, len(cfg.Jobs))
	for _, name := range names {
		job := cfg.Jobs[name]
		var rj resolvedJob
		for _, rel := range job.Delete {
			abs, err := validator.Resolve(rel, true)
			if err != nil {
				return nil, fmt.Errorf("job %s: %s %s: %w", name, ActionDelete, rel, err)
			}
			rj.delete = append(rj.delete, target{rel: rel, abs: abs})
		}
		for _, rel := range job.Empty {
			abs, err := validator.Resolve(rel, false)
			if err != nil {
				return nil, fmt.Errorf("job %s: %s %s: %w", name, ActionEmpty, rel, err)
			}
			rj.empty = append(rj.empty, target{rel: rel, abs: abs})
		}
		jobs[name] = rj
	}

	deleter := fsops.NewOsDeleter()
	return &Runner{
		cfg:       cfg,
		jobs:      jobs,
		fs:        deleter.Fs,
		deleter:   deleter,
		validator: validator,
		logger:    logger,
	}, nil
}

// protectedTrees lists the plugin's own files, which no job may remove
func protectedTrees(cfg *config.Config) []string {
	trees := []string{cfg.Source, cfg.Logging.File, cfg.Metrics.Textfile}
	if cfg.HistoryDB != "" {
		trees = append(trees,
			cfg.HistoryDB,
			cfg.HistoryDB+"-wal",
			cfg.HistoryDB+"-shm",
			cfg.HistoryDB+"-journal",
		)
	}
	return trees
}

// SetFs switches the filesystem used for lookups and removals
func (r *Runner) SetFs(fsys afero.Fs) {
	r.fs = fsys
	r.deleter = fsops.FsDeleter{Fs: fsys}
}

// SetDeleter replaces only the removal side, lookups keep the current filesystem
func (r *Runner) SetDeleter(d fsops.Deleter) {
	r.deleter = d
}

// SetRecorder enables removal history
func (r *Runner) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// Root returns the resolved root directory
func (r *Runner) Root() string {
	return r.cfg.RootDir
}

func (r *Runner) BeforeSuite() error { return r.RunHook(config.BeforeSuite) }
func (r *Runner) AfterSuite() error  { return r.RunHook(config.AfterSuite) }
func (r *Runner) BeforeTest() error  { return r.RunHook(config.BeforeTest) }
func (r *Runner) AfterTest() error   { return r.RunHook(config.AfterTest) }

// RunHook executes every job bound to hook, in binding order. An unbound
// hook or a bound name with no job definition is not an error. The first
// filesystem failure aborts the hook and is returned.
func (r *Runner) RunHook(hook config.Hook) error {
	if !hook.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownHook, hook)
	}

	start := time.Now()
	r.removals = 0
	defer func() {
		elapsed := time.Since(start)
		metrics.RecordHookRun(string(hook), elapsed)
		if r.removals > 0 {
			r.logger.Info("Hook finished", "hook", hook, "removed", r.removals, "elapsed", elapsed)
		}
	}()

	r.logger.Debug("Running hook", "hook", hook)

	for _, name := range r.cfg.Binding(hook) {
		job, ok := r.jobs[name]
		if !ok {
			r.logger.Debug("Skipping undefined job", "hook", hook, "job", name)
			metrics.RecordMissingJob(string(hook))
			continue
		}
		if err := r.executeJob(hook, name, job); err != nil {
			return fmt.Errorf("%s: %w", hook, err)
		}
	}
	return nil
}

// executeJob always deletes before it empties
func (r *Runner) executeJob(hook config.Hook, name string, job resolvedJob) error {
	if err := r.applyDelete(hook, name, job.delete); err != nil {
		return err
	}
	return r.applyEmpty(hook, name, job.empty)
}

func (r *Runner) applyDelete(hook config.Hook, job string, targets []target) error {
	for _, t := range targets {
		kind, err := fsops.KindOf(r.fs, t.abs)
		if err != nil {
			return r.fail(hook, job, ActionDelete, t.abs, fsops.Missing, err)
		}

		switch kind {
		case fsops.Missing:
			r.logger.Debug("Nothing to delete", "job", job, "path", t.abs)
			continue
		case fsops.Dir:
			err = r.deleter.RemoveAll(t.abs)
		default:
			err = r.deleter.Remove(t.abs)
		}

		if err != nil {
			// Gone between the lookup and the remove
			if errors.Is(err, fs.ErrNotExist) {
				r.logger.Debug("Already deleted", "job", job, "path", t.abs)
				continue
			}
			return r.fail(hook, job, ActionDelete, t.abs, kind, err)
		}
		r.removed(hook, job, ActionDelete, t.abs, kind)
	}
	return nil
}

func (r *Runner) applyEmpty(hook config.Hook, job string, targets []target) error {
	for _, t := range targets {
		isDir, err := fsops.IsDir(r.fs, t.abs)
		if err != nil {
			return r.fail(hook, job, ActionEmpty, t.abs, fsops.Missing, err)
		}
		if !isDir {
			r.logger.Debug("Nothing to empty", "job", job, "path", t.abs)
			continue
		}

		entries, err := fsops.ListFiles(r.fs, t.abs, r.cfg.KeepDotFiles)
		if err != nil {
			return r.fail(hook, job, ActionEmpty, t.abs, fsops.Dir, err)
		}

		for _, e := range entries {
			if r.validator.Protected(e.Path) {
				r.logger.Debug("Keeping protected file", "job", job, "path", e.Path)
				continue
			}
			if err := r.deleter.Remove(e.Path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return r.fail(hook, job, ActionEmpty, e.Path, e.Kind, err)
			}
			r.removed(hook, job, ActionEmpty, e.Path, e.Kind)
		}
	}
	return nil
}

func (r *Runner) removed(hook config.Hook, job string, action Action, path string, kind fsops.Kind) {
	r.removals++
	r.logger.Debug("Removed", "hook", hook, "job", job, "action", action, "path", path, "object", kind)
	metrics.RecordRemoval(string(action), kind.String())
	r.record(database.Record{
		Hook:       string(hook),
		Job:        job,
		Action:     string(action),
		Path:       path,
		ObjectType: kind.String(),
		Status:     database.StatusRemoved,
	})
}

func (r *Runner) fail(hook config.Hook, job string, action Action, path string, kind fsops.Kind, err error) error {
	r.logger.Error("Failed to remove", "hook", hook, "job", job, "action", action, "path", path, "error", err)
	metrics.RecordError(string(hook))
	r.record(database.Record{
		Hook:         string(hook),
		Job:          job,
		Action:       string(action),
		Path:         path,
		ObjectType:   kind.String(),
		Status:       database.StatusError,
		ErrorMessage: err.Error(),
	})
	return fmt.Errorf("job %s: %s %s: %w", job, action, path, err)
}

// record never fails the hook, history is best effort
func (r *Runner) record(rec database.Record) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordRemoval(rec); err != nil {
		r.logger.Error("Failed to record to history", "path", rec.Path, "error", err)
	}
}
