package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/actmeter/metric"
)

// Pool processes items of type T on a fixed number of goroutines.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error

	workChan chan T
	metrics  *Metrics
	logger   *slog.Logger
	wg       sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	metricsRegistry *metric.MetricsRegistry
	metricsPrefix   string
}

// Metrics holds Prometheus metrics for worker pool monitoring
type Metrics struct {
	queueDepth     prometheus.Gauge
	submitted      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime *prometheus.HistogramVec
}

// Option represents a configuration option for the worker pool
type Option[T any] func(*Pool[T])

// WithMetricsRegistry registers pool metrics under prefix.
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.metricsRegistry = registry
		p.metricsPrefix = prefix
	}
}

// WithLogger sets the logger used for failed items. Nil keeps slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Pool[T]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPool creates a pool. Non-positive workers or queueSize take 1 and 100.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) (*Pool[T], error) {
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	p := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		workChan:  make(chan T, queueSize),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.metricsRegistry != nil && p.metricsPrefix != "" {
		if err := p.initializeMetrics(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pool[T]) initializeMetrics() error {
	subsystem := p.metricsPrefix + "_pool"
	m := &Metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Items waiting in the worker pool queue",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "submitted_total",
			Help:      "Items submitted to the worker pool",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "failed_total",
			Help:      "Items whose processing returned an error",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "dropped_total",
			Help:      "Items dropped because the queue was full",
		}),
		processingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing one item",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"status"}),
	}

	component := "worker_pool"
	if err := p.metricsRegistry.RegisterGauge(component, subsystem+"_queue_depth", m.queueDepth); err != nil {
		return err
	}
	if err := p.metricsRegistry.RegisterCounter(component, subsystem+"_submitted", m.submitted); err != nil {
		return err
	}
	if err := p.metricsRegistry.RegisterCounter(component, subsystem+"_failed", m.failed); err != nil {
		return err
	}
	if err := p.metricsRegistry.RegisterCounter(component, subsystem+"_dropped", m.dropped); err != nil {
		return err
	}
	if err := p.metricsRegistry.RegisterHistogramVec(component, subsystem+"_processing_duration", m.processingTime); err != nil {
		return err
	}
	p.metrics = m
	return nil
}

// Submit queues work without blocking. It returns ErrQueueFull when the
// queue is at capacity.
func (p *Pool[T]) Submit(work T) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.workChan <- work:
		p.submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.workChan)))
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Start starts the workers. They exit when ctx ends or Stop is called.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.started = true
	return nil
}

// Stop closes the queue and waits up to timeout for queued items to be
// processed.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started || p.stopped {
		return nil
	}
	p.stopped = true
	close(p.workChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.workChan),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.workChan:
			if !ok {
				return
			}
			p.process(ctx, work)
		}
	}
}

func (p *Pool[T]) process(ctx context.Context, work T) {
	start := time.Now()
	err := p.processor(ctx, work)

	p.processed.Add(1)
	status := "success"
	if err != nil {
		p.failed.Add(1)
		status = "error"
		p.logger.Warn("Work item failed", "error", err)
	}

	if p.metrics != nil {
		if err != nil {
			p.metrics.failed.Inc()
		}
		p.metrics.processingTime.WithLabelValues(status).Observe(time.Since(start).Seconds())
		p.metrics.queueDepth.Set(float64(len(p.workChan)))
	}
}
