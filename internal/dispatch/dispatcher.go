package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/astroserve/astroserve/internal/auth"
	"github.com/astroserve/astroserve/internal/chart"
	"github.com/astroserve/astroserve/internal/engine"
	"github.com/astroserve/astroserve/internal/metrics"
	"github.com/astroserve/astroserve/internal/notify"
	"github.com/astroserve/astroserve/internal/store"
)

// Notification texts recorded on terminal outcomes.
const (
	successTitle   = "Astral Chart Calculated"
	successMessage = "Your astral chart is ready! Open the Astrology menu to see the result."
	errorTitle     = "Astral Chart Calculation Failed"
	errorMessage   = "Something went wrong while calculating your astral chart. Please try again later or contact support."
)

// Task is one queued computation: the authenticated subject plus the
// validated input it submitted. Tasks live only in memory; a task is
// discarded once its outcome is persisted.
type Task struct {
	Subject     auth.Subject
	Input       chart.Input
	SubmittedAt time.Time
}

// Options configures a Dispatcher.
type Options struct {
	Engine        engine.Engine
	Results       store.Results
	Notifications store.Notifications
	Sinks         []notify.Sink
	Metrics       *metrics.Registry

	// Workers is the number of concurrent computation goroutines.
	Workers int

	// QueueSize is the pending-task buffer depth. Enqueue never blocks:
	// a full queue drops the task with a logged warning.
	QueueSize int

	// Timeout bounds one computation. Zero means no dispatcher-side bound.
	Timeout time.Duration
}

// Dispatcher owns the background computation lifecycle.
type Dispatcher struct {
	engine  engine.Engine
	results store.Results
	notifs  store.Notifications
	sinks   []notify.Sink
	metrics *metrics.Registry
	tracer  trace.Tracer
	timeout time.Duration

	queue   chan Task
	workers int
	wg      sync.WaitGroup

	stopMu  sync.RWMutex
	stopped bool

	now func() time.Time // injectable for deterministic tests
}

// New creates a Dispatcher. Run must be called before tasks are processed.
func New(opts Options) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	return &Dispatcher{
		engine:  opts.Engine,
		results: opts.Results,
		notifs:  opts.Notifications,
		sinks:   opts.Sinks,
		metrics: opts.Metrics,
		tracer:  otel.Tracer("astroserve/dispatch"),
		timeout: opts.Timeout,
		queue:   make(chan Task, opts.QueueSize),
		workers: opts.Workers,
		now:     time.Now,
	}
}

// Enqueue schedules a computation without blocking. It returns false if the
// queue is full or the dispatcher is shutting down; the caller has already
// acknowledged the submission, so a false return is logged, never surfaced.
func (d *Dispatcher) Enqueue(subject auth.Subject, in chart.Input) bool {
	d.stopMu.RLock()
	defer d.stopMu.RUnlock()

	if d.stopped {
		slog.Warn("dispatch: rejecting task, dispatcher stopped", "subject", subject)
		return false
	}

	t := Task{Subject: subject, Input: in, SubmittedAt: d.now()}
	select {
	case d.queue <- t:
		return true
	default:
		slog.Warn("dispatch: queue full, task dropped", "subject", subject)
		d.metrics.Inc(metrics.TasksDropped)
		return false
	}
}

// Pending returns the number of queued, unstarted tasks.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Run starts the worker pool and blocks until ctx is cancelled, then drains
// the queue: already-accepted tasks finish before Run returns.
func (d *Dispatcher) Run(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	slog.Info("dispatch: workers started", "workers", d.workers, "queue", cap(d.queue))

	<-ctx.Done()

	d.stopMu.Lock()
	d.stopped = true
	close(d.queue)
	d.stopMu.Unlock()

	d.wg.Wait()
	slog.Info("dispatch: drained and stopped")
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.process(t)
	}
}

// process runs one task to its terminal outcome. Background tasks detach
// from the request context: the caller is gone, so a fresh context carries
// the computation bound.
func (d *Dispatcher) process(t Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch: task panicked", "subject", t.Subject, "panic", r)
			d.metrics.Inc(metrics.ComputationsFailed)
			d.emit(context.Background(), t.Subject, store.KindError, errorTitle, errorMessage)
		}
	}()

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	ctx, span := d.tracer.Start(ctx, "chart.compute",
		trace.WithAttributes(attribute.String("astroserve.subject", string(t.Subject))))
	defer span.End()

	started := d.now()
	result, err := d.engine.Compute(ctx, t.Input)
	if err != nil {
		span.RecordError(err)
		slog.Error("dispatch: computation failed",
			"subject", t.Subject,
			"elapsed", d.now().Sub(started),
			"err", err,
		)
		d.fail(ctx, t)
		return
	}

	rec := store.ResultRecord{
		Input:      t.Input,
		Result:     result,
		Status:     store.StatusCompleted,
		ComputedAt: d.now(),
	}
	if err := d.results.SetResult(ctx, string(t.Subject), rec); err != nil {
		span.RecordError(err)
		slog.Error("dispatch: persisting result failed", "subject", t.Subject, "err", err)
		d.fail(ctx, t)
		return
	}

	span.SetAttributes(attribute.String("astroserve.outcome", store.StatusCompleted))
	d.metrics.Inc(metrics.ComputationsComplete)
	slog.Info("dispatch: chart computed",
		"subject", t.Subject,
		"elapsed", d.now().Sub(started),
	)
	d.emit(ctx, t.Subject, store.KindSuccess, successTitle, successMessage)
}

// fail records the failed outcome. The result-slot write is best effort; a
// secondary persistence failure here is logged and swallowed, there is no
// caller left to report to.
func (d *Dispatcher) fail(ctx context.Context, t Task) {
	d.metrics.Inc(metrics.ComputationsFailed)

	rec := store.ResultRecord{
		Status:     store.StatusFailed,
		Error:      errorMessage,
		ComputedAt: d.now(),
	}
	if err := d.results.SetResult(ctx, string(t.Subject), rec); err != nil {
		slog.Error("dispatch: persisting failed outcome also failed",
			"subject", t.Subject, "err", err)
	}
	d.emit(ctx, t.Subject, store.KindError, errorTitle, errorMessage)
}

// emit appends the notification and, once it is durable, fans it out to the
// sinks. An append failure is logged and swallowed so a failing store cannot
// start a failure loop.
func (d *Dispatcher) emit(ctx context.Context, subject auth.Subject, kind, title, message string) {
	stored, err := d.notifs.AddNotification(ctx, string(subject), store.Notification{
		Title:   title,
		Message: message,
		Kind:    kind,
	})
	if err != nil {
		slog.Error("dispatch: appending notification failed",
			"subject", subject, "kind", kind, "err", err)
		return
	}

	for _, s := range d.sinks {
		s.Deliver(string(subject), stored)
	}
}
