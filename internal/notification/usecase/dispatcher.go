package usecase

import (
	"context"
	"sync"
	"time"

	"newsroom-backend/internal/notification/domain"

	"go.uber.org/zap"
)

// Runner executes one fan-out.
type Runner interface {
	Run(ctx context.Context, ev domain.Event) Report
}

// Dispatcher decouples event sources from fan-out latency: a bounded queue
// served by a fixed worker pool. Each job gets its own timeout and a panic
// in one job never takes down a worker.
type Dispatcher struct {
	runner      Runner
	jobQueue    chan domain.Event
	workerWg    sync.WaitGroup
	workerCount int
	timeout     time.Duration
	log         *zap.SugaredLogger

	mu      sync.RWMutex
	started bool
	stopped bool

	// onDone observes every finished job; used by tests.
	onDone func(Report)
}

func NewDispatcher(runner Runner, workerCount, queueSize int, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if workerCount <= 0 {
		workerCount = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Dispatcher{
		runner:      runner,
		jobQueue:    make(chan domain.Event, queueSize),
		workerCount: workerCount,
		timeout:     timeout,
		log:         log.Sugar().Named("dispatcher"),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.stopped {
		return
	}
	for i := 0; i < d.workerCount; i++ {
		d.workerWg.Add(1)
		go d.worker()
	}
	d.started = true
	d.log.Infow("dispatcher started", "workers", d.workerCount, "queue", cap(d.jobQueue))
}

// Dispatch enqueues ev without blocking. It reports false when the queue is
// full or the dispatcher is stopped; the event is then dropped.
func (d *Dispatcher) Dispatch(ev domain.Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.log.Warnw("dispatcher stopped, dropping event", "event_type", ev.Kind, "id", ev.ID)
		return false
	}
	select {
	case d.jobQueue <- ev:
		return true
	default:
		d.log.Warnw("fan-out queue full, dropping event", "event_type", ev.Kind, "id", ev.ID)
		return false
	}
}

// Stop drains queued events, then waits for workers and pending cleanups.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobQueue)
	started := d.started
	d.mu.Unlock()

	if !started {
		// No workers will ever drain the queue.
		for ev := range d.jobQueue {
			d.log.Warnw("dispatcher never started, dropping queued event", "event_type", ev.Kind, "id", ev.ID)
		}
		d.log.Info("dispatcher stopped")
		return
	}

	d.workerWg.Wait()
	if w, ok := d.runner.(interface{ Wait() }); ok {
		w.Wait()
	}
	d.log.Info("dispatcher stopped")
}

func (d *Dispatcher) worker() {
	defer d.workerWg.Done()
	for ev := range d.jobQueue {
		d.process(ev)
	}
}

func (d *Dispatcher) process(ev domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	rep := Report{Event: ev.Kind}
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("fan-out panicked", "event_type", ev.Kind, "id", ev.ID, "panic", r)
		}
		if d.onDone != nil {
			d.onDone(rep)
		}
	}()
	rep = d.runner.Run(ctx, ev)
}
