// Package jobs runs the periodic mail and retention work.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"taskhub/internal/metrics"
)

// runTimeout bounds a single job run.
const runTimeout = 5 * time.Minute

var ErrUnknownJob = errors.New("unknown job")

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job      Job
	schedule Schedule
}

// Scheduler runs each registered job in its own loop, sleeping until the
// schedule's next instant.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{entries: make(map[string]entry), now: time.Now}
}

func (s *Scheduler) Register(job Job, schedule Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[job.Name()] = entry{job: job, schedule: schedule}
}

// Names lists registered jobs, sorted.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Start launches one loop per job. Loops exit when ctx is cancelled; Wait
// blocks until they have.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
}

func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()
	for {
		next := e.schedule.Next(s.now())
		log.Printf("[jobs][%s] next run at %s (%s)", e.job.Name(), next.Format(time.RFC3339), e.schedule)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			_ = s.run(ctx, e.job)
		}
	}
}

// RunOnce runs the named job immediately.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return s.run(ctx, e.job)
}

func (s *Scheduler) run(ctx context.Context, job Job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			log.Printf("[jobs][%s][err] %v", job.Name(), err)
		} else {
			log.Printf("[jobs][%s][ok] took %s", job.Name(), time.Since(started).Round(time.Millisecond))
		}
		metrics.JobRuns.WithLabelValues(job.Name(), outcome).Inc()
		metrics.JobDuration.WithLabelValues(job.Name()).Observe(time.Since(started).Seconds())
	}()

	return job.Run(ctx)
}
