package cleanup

import (
	"fmt"

	"cache-cleanup/internal/config"
)

// Step is one action on one resolved path
type Step struct {
	Job    string
	Action Action
	Rel    string
	Path   string
}

// Plan is what a hook would do, computed without touching the filesystem
type Plan struct {
	Hook        config.Hook
	Bound       bool
	Steps       []Step
	MissingJobs []string
}

// Plan resolves hook into its ordered steps
func (r *Runner) Plan(hook config.Hook) (*Plan, error) {
	if !hook.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHook, hook)
	}

	names := r.cfg.Binding(hook)
	p := &Plan{Hook: hook, Bound: names != nil}
	for _, name := range names {
		job, ok := r.jobs[name]
		if !ok {
			p.MissingJobs = append(p.MissingJobs, name)
			continue
		}
		for _, t := range job.delete {
			p.Steps = append(p.Steps, Step{Job: name, Action: ActionDelete, Rel: t.rel, Path: t.abs})
		}
		for _, t := range job.empty {
			p.Steps = append(p.Steps, Step{Job: name, Action: ActionEmpty, Rel: t.rel, Path: t.abs})
		}
	}
	return p, nil
}
