package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"taskhub/internal/metrics"
)

// Job is one best-effort side effect of a mutation (a push or a message).
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher runs side effects off the request path. Failures go to the
// dispatcher's own error channel; they are logged and never retried.
type Dispatcher interface {
	Submit(job Job)
	Close()
}

// JobError is what the error channel carries.
type JobError struct {
	Job string
	Err error
}

func (e JobError) Error() string { return fmt.Sprintf("%s: %v", e.Job, e.Err) }

// AsyncDispatcher runs jobs on a single worker in submission order, which
// keeps per-recipient ordering.
type AsyncDispatcher struct {
	mu      sync.RWMutex
	closed  bool
	queue   chan Job
	errs    chan JobError
	timeout time.Duration

	workerDone chan struct{}
	errsDone   chan struct{}
}

func NewAsyncDispatcher(buffer int, jobTimeout time.Duration) *AsyncDispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Second
	}
	d := &AsyncDispatcher{
		queue:      make(chan Job, buffer),
		errs:       make(chan JobError, 64),
		timeout:    jobTimeout,
		workerDone: make(chan struct{}),
		errsDone:   make(chan struct{}),
	}
	go d.work()
	go d.drainErrors()
	return d
}

// Submit enqueues job. A full queue or a closed dispatcher drops it.
func (d *AsyncDispatcher) Submit(job Job) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Printf("[dispatch][drop] closed job=%s", job.Name)
		return
	}
	select {
	case d.queue <- job:
	default:
		metrics.DispatchQueueFull.Inc()
		log.Printf("[dispatch][drop] queue full job=%s", job.Name)
	}
}

// Close stops accepting jobs and waits until queued jobs have run.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.workerDone
	close(d.errs)
	<-d.errsDone
}

func (d *AsyncDispatcher) work() {
	defer close(d.workerDone)
	for job := range d.queue {
		if err := d.run(job); err != nil {
			d.errs <- JobError{Job: job.Name, Err: err}
		}
	}
}

func (d *AsyncDispatcher) run(job Job) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Run(ctx)
}

func (d *AsyncDispatcher) drainErrors() {
	defer close(d.errsDone)
	for e := range d.errs {
		metrics.DispatchErrors.WithLabelValues(e.Job).Inc()
		log.Printf("[dispatch][err] %v", e)
	}
}

// InlineDispatcher runs every job synchronously on Submit. Used by the CLI
// and in tests.
type InlineDispatcher struct {
	// OnError, when set, receives failures instead of the log.
	OnError func(JobError)
}

func (d *InlineDispatcher) Submit(job Job) {
	if err := job.Run(context.Background()); err != nil {
		je := JobError{Job: job.Name, Err: err}
		if d.OnError != nil {
			d.OnError(je)
			return
		}
		metrics.DispatchErrors.WithLabelValues(job.Name).Inc()
		log.Printf("[dispatch][err] %v", je)
	}
}

func (d *InlineDispatcher) Close() {}
