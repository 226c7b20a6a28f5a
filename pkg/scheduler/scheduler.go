// Package scheduler runs stored programs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/oarkflow/log"
	"github.com/robfig/cron/v3"

	"github.com/oarkflow/bella"
	"github.com/oarkflow/bella/interpreter"
	"github.com/oarkflow/bella/pkg/history"
)

type job struct {
	name    string
	spec    string
	source  string
	program *interpreter.Program
	entry   cron.EntryID
}

// Scheduler parses each program once and records every scheduled run.
type Scheduler struct {
	cron     *cron.Cron
	recorder *history.Recorder
	logger   *log.Logger
	jobs     map[string]*job
	mu       sync.Mutex
}

func New(recorder *history.Recorder, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Scheduler{
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
		recorder: recorder,
		logger:   logger,
		jobs:     make(map[string]*job),
	}
}

// Add registers source under name. The source must parse and spec must be a
// valid cron expression or descriptor such as "@every 1m".
func (s *Scheduler) Add(name, spec, source string) error {
	program, err := bella.Parse(source)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("schedule %s already exists", name)
	}
	j := &job{name: name, spec: spec, source: source, program: program}
	entry, err := s.cron.AddFunc(spec, func() { s.runJob(context.Background(), j) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	j.entry = entry
	s.jobs[name] = j
	return nil
}

func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return false
	}
	s.cron.Remove(j.entry)
	delete(s.jobs, name)
	return true
}

// RunNow executes a registered program immediately.
func (s *Scheduler) RunNow(ctx context.Context, name string) (history.Run, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return history.Run{}, fmt.Errorf("schedule %s not found", name)
	}
	return s.runJob(ctx, j)
}

func (s *Scheduler) runJob(ctx context.Context, j *job) (history.Run, error) {
	run, err := s.recorder.RecordProgram(ctx, j.source, j.program)
	entry := s.logger.Info().Str("schedule", j.name).Str("run_id", run.ID)
	if run.Failed() {
		entry = entry.Str("code", run.ErrorCode)
	}
	if err != nil {
		entry = entry.Err(err)
	}
	entry.Msg("scheduled run finished")
	return run, err
}

// Names lists the registered schedules in order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
