// Package archive persists completed encounters to a JetStream key-value
// bucket so the history survives restarts.
//
// Each encounter is stored as the payload it was decoded from plus its
// receipt time; loading re-decodes the payloads. Keys sort by receipt
// time, and the bucket is trimmed to the configured size after every save.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360/actmeter/combat"
	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/metric"
	"github.com/c360/actmeter/natsclient"
	"github.com/c360/actmeter/pkg/worker"
)

// DefaultBucket is the bucket name used when none is configured.
const DefaultBucket = "actmeter_encounters"

// KV is the subset of natsclient.KVStore the archive needs.
type KV interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Get(ctx context.Context, key string) (*natsclient.KVEntry, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Purge(ctx context.Context) error
}

var _ KV = (*natsclient.KVStore)(nil)

// record is the stored form of one encounter.
type record struct {
	Received time.Time       `json:"received"`
	Title    string          `json:"title,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// Archive stores completed encounters.
type Archive struct {
	kv      KV
	maxSize int
	logger  *slog.Logger
	pool    *worker.Pool[task]
}

// task is one unit of the save queue. A nil event purges the bucket, so a
// clear is ordered after the saves queued before it.
type task struct {
	ev *combat.Event
}

// Option configures an Archive.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
	queueSize int
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics exports the save queue metrics to registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *config) {
		c.registry = registry
	}
}

// WithQueueSize bounds the number of encounters waiting to be saved.
func WithQueueSize(n int) Option {
	return func(c *config) {
		c.queueSize = n
	}
}

// New creates an archive over kv keeping at most maxSize encounters.
func New(kv KV, maxSize int, opts ...Option) (*Archive, error) {
	if kv == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "archive", "New", "check store")
	}
	cfg := config{logger: slog.Default(), queueSize: 32}
	for _, opt := range opts {
		opt(&cfg)
	}
	if maxSize < 1 {
		maxSize = 1
	}

	a := &Archive{
		kv:      kv,
		maxSize: maxSize,
		logger:  cfg.logger.With("component", "archive"),
	}

	poolOpts := []worker.Option[task]{worker.WithLogger[task](a.logger)}
	if cfg.registry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[task](cfg.registry, "archive"))
	}
	// One worker keeps saves and purges in submission order.
	pool, err := worker.NewPool(1, cfg.queueSize, a.process, poolOpts...)
	if err != nil {
		return nil, errors.WrapTransient(err, "archive", "New", "create save queue")
	}
	a.pool = pool
	return a, nil
}

// Start runs the background save queue until ctx ends or Stop is called.
func (a *Archive) Start(ctx context.Context) error {
	return a.pool.Start(ctx)
}

// Stop waits up to timeout for queued saves.
func (a *Archive) Stop(timeout time.Duration) error {
	return a.pool.Stop(timeout)
}

// Enqueue schedules ev to be saved. It never blocks; when the queue is full
// the encounter is dropped and logged. Its signature fits
// history.WithArchiveHook.
func (a *Archive) Enqueue(ev *combat.Event) {
	if ev == nil {
		return
	}
	if err := a.pool.Submit(task{ev: ev}); err != nil {
		a.logger.Warn("Encounter not archived", "title", ev.Encounter.Title, "error", err)
	}
}

// EnqueueClear schedules a purge of the bucket after every save already
// queued. Its signature fits history.WithClearHook.
func (a *Archive) EnqueueClear() {
	if err := a.pool.Submit(task{}); err != nil {
		a.logger.Error("Archive not cleared", "error", err)
	}
}

func (a *Archive) process(ctx context.Context, t task) error {
	if t.ev == nil {
		return a.Clear(ctx)
	}
	return a.Save(ctx, t.ev)
}

// key orders records by receipt time; the suffix keeps equal times apart.
func key(received time.Time) string {
	return fmt.Sprintf("%020d-%s", received.UnixNano(), uuid.NewString()[:8])
}

// Save stores ev and trims the bucket to the archive size.
func (a *Archive) Save(ctx context.Context, ev *combat.Event) error {
	if ev == nil || len(ev.Raw) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidData, "archive", "Save", "check payload")
	}

	rec := record{Received: ev.Timestamp, Payload: json.RawMessage(ev.Raw)}
	if ev.Encounter != nil {
		rec.Title = ev.Encounter.Title
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.WrapInvalid(err, "archive", "Save", "encode record")
	}

	k := key(ev.Timestamp)
	if _, err := a.kv.Put(ctx, k, data); err != nil {
		return errors.WrapTransient(err, "archive", "Save", "put "+k)
	}
	a.logger.Debug("Encounter archived", "key", k, "title", rec.Title)

	return a.trim(ctx)
}

func (a *Archive) trim(ctx context.Context) error {
	keys, err := a.kv.Keys(ctx)
	if err != nil {
		return errors.WrapTransient(err, "archive", "trim", "list keys")
	}
	for len(keys) > a.maxSize {
		if err := a.kv.Delete(ctx, keys[0]); err != nil && !natsclient.IsKVNotFoundError(err) {
			return errors.WrapTransient(err, "archive", "trim", "delete "+keys[0])
		}
		keys = keys[1:]
	}
	return nil
}

// Load returns the stored encounters, oldest first. Records that no longer
// decode are skipped and logged.
func (a *Archive) Load(ctx context.Context) ([]*combat.Event, error) {
	keys, err := a.kv.Keys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "archive", "Load", "list keys")
	}
	if len(keys) > a.maxSize {
		keys = keys[len(keys)-a.maxSize:]
	}

	events := make([]*combat.Event, 0, len(keys))
	for _, k := range keys {
		entry, err := a.kv.Get(ctx, k)
		if err != nil {
			if natsclient.IsKVNotFoundError(err) {
				continue
			}
			return nil, errors.WrapTransient(err, "archive", "Load", "get "+k)
		}

		var rec record
		if err := json.Unmarshal(entry.Value, &rec); err != nil {
			a.logger.Warn("Skipping unreadable record", "key", k, "error", err)
			continue
		}
		ev, err := combat.Decode(rec.Payload, rec.Received)
		if err != nil {
			a.logger.Warn("Skipping undecodable encounter", "key", k, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Clear removes every stored encounter.
func (a *Archive) Clear(ctx context.Context) error {
	if err := a.kv.Purge(ctx); err != nil {
		return errors.WrapTransient(err, "archive", "Clear", "purge bucket")
	}
	a.logger.Info("Archive cleared")
	return nil
}
