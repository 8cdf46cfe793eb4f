// Package scheduler runs named jobs on fixed intervals. A job never runs
// twice at once: ticks that fire while a run is in flight are skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownJob   = errors.New("unknown job")
	ErrJobRunning   = errors.New("job already running")
	ErrDuplicateJob = errors.New("duplicate job")
	ErrNotStarted   = errors.New("scheduler not started")
	ErrStopped      = errors.New("scheduler stopped")
)

// Func performs one run and reports a short outcome label.
type Func func(ctx context.Context) (string, error)

type Job struct {
	Name     string
	Interval time.Duration
	Run      Func
}

// Trigger sources.
const (
	TriggerTick   = "tick"
	TriggerManual = "manual"
)

// Run is one finished execution.
type Run struct {
	Job       string        `json:"job"`
	Trigger   string        `json:"trigger"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
}

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

type Stats struct {
	Name         string     `json:"name"`
	Interval     string     `json:"interval"`
	Running      bool       `json:"running"`
	Runs         int64      `json:"runs"`
	Failures     int64      `json:"failures"`
	Skipped      int64      `json:"skipped"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastDuration string     `json:"last_duration,omitempty"`
	LastOutcome  string     `json:"last_outcome,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

type entry struct {
	job     Job
	running atomic.Bool

	mu       sync.Mutex
	runs     int64
	failures int64
	skipped  int64
	last     *Run
}

type Scheduler struct {
	logger   *logrus.Logger
	recorder Recorder

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	ctx     context.Context
	stopped bool

	loops sync.WaitGroup
	runs  sync.WaitGroup
}

func New(logger *logrus.Logger, recorder Recorder) *Scheduler {
	return &Scheduler{
		logger:   logger,
		recorder: recorder,
		entries:  make(map[string]*entry),
	}
}

func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("invalid job %q", job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	s.entries[job.Name] = &entry{job: job}
	s.order = append(s.order, job.Name)
	return nil
}

// Start launches one ticker loop per registered job. Loops and in-flight
// runs stop when ctx is cancelled; Wait blocks until they have.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	entries := make([]*entry, 0, len(s.order))
	for _, name := range s.order {
		entries = append(entries, s.entries[name])
	}
	s.mu.Unlock()

	for _, e := range entries {
		s.loops.Add(1)
		go s.loop(ctx, e)
		s.logger.WithFields(logrus.Fields{
			"job":      e.job.Name,
			"interval": e.job.Interval.String(),
		}).Info("Job scheduled")
	}
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.loops.Done()
	ticker := time.NewTicker(e.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.launch(ctx, e, TriggerTick); errors.Is(err, ErrStopped) {
				return
			}
		}
	}
}

// launch starts a run in the background unless one is already in flight or
// the scheduler is shutting down. runs.Add happens under s.mu so it never
// races with Wait.
func (s *Scheduler) launch(ctx context.Context, e *entry, trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || ctx.Err() != nil {
		return ErrStopped
	}

	if !e.running.CompareAndSwap(false, true) {
		e.mu.Lock()
		e.skipped++
		e.mu.Unlock()
		s.logger.WithFields(logrus.Fields{
			"job":     e.job.Name,
			"trigger": trigger,
		}).Debug("Previous run still in flight, skipping")
		return fmt.Errorf("%w: %s", ErrJobRunning, e.job.Name)
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.execute(ctx, e, trigger)
	}()
	return nil
}

// execute runs the job; the caller must hold e.running.
func (s *Scheduler) execute(ctx context.Context, e *entry, trigger string) Run {
	defer e.running.Store(false)

	run := Run{
		Job:       e.job.Name,
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	outcome, err := s.safeRun(ctx, e.job)
	run.Duration = time.Since(run.StartedAt)
	run.Outcome = outcome
	if err != nil {
		run.Error = err.Error()
	}

	e.mu.Lock()
	e.runs++
	if err != nil {
		e.failures++
	}
	e.last = &run
	e.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{
		"job":         run.Job,
		"trigger":     trigger,
		"outcome":     outcome,
		"duration_ms": run.Duration.Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Warn("Job run failed")
	} else {
		log.Info("Job run finished")
	}

	if s.recorder != nil {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if rerr := s.recorder.Record(recordCtx, run); rerr != nil {
			s.logger.WithError(rerr).WithField("job", run.Job).Warn("Failed to record job run")
		}
		cancel()
	}
	return run
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}

func (s *Scheduler) lookup(name string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return e, nil
}

// Trigger starts a run of name in the background under the scheduler's
// context.
func (s *Scheduler) Trigger(name string) error {
	e, err := s.lookup(name)
	if err != nil {
		return err
	}
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx == nil {
		return ErrNotStarted
	}
	return s.launch(ctx, e, TriggerManual)
}

// RunNow runs name synchronously on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Run, error) {
	e, err := s.lookup(name)
	if err != nil {
		return Run{}, err
	}
	if !e.running.CompareAndSwap(false, true) {
		e.mu.Lock()
		e.skipped++
		e.mu.Unlock()
		return Run{}, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	return s.execute(ctx, e, TriggerManual), nil
}

// Wait blocks until every loop and in-flight run has returned. Once Wait is
// called no new run is launched.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.loops.Wait()
	s.runs.Wait()
}

func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

func (s *Scheduler) Stats() []Stats {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.order))
	for _, name := range s.order {
		entries = append(entries, s.entries[name])
	}
	s.mu.RUnlock()

	out := make([]Stats, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		st := Stats{
			Name:     e.job.Name,
			Interval: e.job.Interval.String(),
			Running:  e.running.Load(),
			Runs:     e.runs,
			Failures: e.failures,
			Skipped:  e.skipped,
		}
		if e.last != nil {
			started := e.last.StartedAt
			st.LastRun = &started
			st.LastDuration = e.last.Duration.String()
			st.LastOutcome = e.last.Outcome
			st.LastError = e.last.Error
		}
		e.mu.Unlock()
		out = append(out, st)
	}
	return out
}
