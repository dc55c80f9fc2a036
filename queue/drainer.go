package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonwraymond/dispatchops/delivery"
	"github.com/jonwraymond/dispatchops/observe"
	"github.com/jonwraymond/dispatchops/provider"
	"github.com/jonwraymond/dispatchops/resilience"
)

// ErrInvalidSchedule indicates a schedule the cron parser rejected.
var ErrInvalidSchedule = errors.New("queue: invalid schedule")

// Submitter delivers one message. *delivery.Orchestrator implements it.
type Submitter interface {
	Submit(ctx context.Context, msg provider.Message) (delivery.Result, error)
}

// sweeper is implemented by submitters that can evict expired records.
type sweeper interface {
	Sweep(ctx context.Context) int
}

// DrainerConfig configures a Drainer.
type DrainerConfig struct {
	// Schedule is a standard cron spec or descriptor.
	// Default: "@every 10s"
	Schedule string

	// MaxConcurrent bounds the submissions in flight during a drain.
	// Default: 10
	MaxConcurrent int

	// MaxWait is how long a drain waits for a free slot before putting the
	// message back for the next tick.
	// Default: 1m
	MaxWait time.Duration

	// MaxResults caps the result log; older entries are dropped first.
	// Default: 1000
	MaxResults int
}

// Drainer periodically submits everything in a Queue.
type Drainer struct {
	queue    *Queue
	sub      Submitter
	bulkhead *resilience.Bulkhead
	config   DrainerConfig
	logger   observe.Logger
	now      func() time.Time

	results resultLog

	mu   sync.Mutex
	cron *cron.Cron
}

// DrainerOption configures a Drainer.
type DrainerOption func(*Drainer)

// WithLogger sets the drainer logger.
func WithLogger(logger observe.Logger) DrainerOption {
	return func(d *Drainer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides the result timestamp source.
func WithClock(now func() time.Time) DrainerOption {
	return func(d *Drainer) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDrainer creates a drainer for q. The schedule is parsed up front so a
// bad spec fails here instead of at Start.
func NewDrainer(q *Queue, sub Submitter, config DrainerConfig, opts ...DrainerOption) (*Drainer, error) {
	if q == nil || sub == nil {
		return nil, errors.New("queue: queue and submitter are required")
	}
	if config.Schedule == "" {
		config.Schedule = "@every 10s"
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Minute
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 1000
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, config.Schedule, err)
	}

	d := &Drainer{
		queue: q,
		sub:   sub,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: config.MaxConcurrent,
			MaxWait:       config.MaxWait,
		}),
		config:  config,
		logger:  observe.NopLogger(),
		now:     time.Now,
		results: resultLog{limit: config.MaxResults},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Enqueue pushes msg and logs it.
func (d *Drainer) Enqueue(ctx context.Context, msg provider.Message) {
	n := d.queue.Push(msg)
	d.logger.Info(ctx, "delivery queued", observe.F("to", msg.To), observe.F("queued", n))
}

// Start begins draining on the configured schedule. A tick that fires while
// the previous drain is still running is skipped.
func (d *Drainer) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron != nil {
		return errors.New("queue: drainer already started")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(d.config.Schedule, func() {
		d.Drain(context.Background())
	}); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, d.config.Schedule, err)
	}
	c.Start()
	d.cron = c

	d.logger.Info(context.Background(), "drainer started", observe.F("schedule", d.config.Schedule))
	return nil
}

// Stop halts the schedule and waits for a running drain to finish or for
// ctx to end.
func (d *Drainer) Stop(ctx context.Context) error {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain submits everything currently queued and returns how many messages
// were submitted. Messages that could not get a slot within MaxWait are
// put back. Expired status records are swept afterwards.
func (d *Drainer) Drain(ctx context.Context) int {
	msgs := d.queue.PopAll()
	if len(msgs) == 0 {
		return 0
	}
	d.logger.Info(ctx, "draining queue", observe.F("count", len(msgs)))

	var wg sync.WaitGroup
	submitted := 0
	for i, msg := range msgs {
		if err := d.bulkhead.Acquire(ctx); err != nil {
			d.queue.PushFront(msgs[i:]...)
			d.logger.Warn(ctx, "drain interrupted",
				observe.F("requeued", len(msgs)-i),
				observe.F("error", err),
			)
			break
		}
		submitted++

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer d.bulkhead.Release()

			res, err := d.sub.Submit(ctx, msg)
			d.results.append(newResult(msg, res, err, d.now()))
		}()
	}
	wg.Wait()

	if s, ok := d.sub.(sweeper); ok {
		s.Sweep(ctx)
	}
	return submitted
}

// Results returns the drain log, oldest first.
func (d *Drainer) Results() []Result {
	return d.results.snapshot()
}

// Queue returns the drained queue.
func (d *Drainer) Queue() *Queue {
	return d.queue
}

// Metrics reports the drainer's concurrency usage.
func (d *Drainer) Metrics() resilience.BulkheadMetrics {
	return d.bulkhead.Metrics()
}
