package cron

import (
	"context"
	"fmt"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in the order they run. Names double as metric labels
// so they must be unique.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order and panics on a duplicate name, which
// is a wiring bug.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends job. Nil jobs are ignored.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if _, dup := r.names[job.Name()]; dup {
		return fmt.Errorf("cron job %q already registered", job.Name())
	}
	r.names[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
