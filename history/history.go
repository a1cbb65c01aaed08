// Package history keeps the current event, the last accepted event and a
// bounded list of completed encounters.
//
// Manager applies the acceptance rules to every decoded event: incomplete
// events and repeats of the previous event are ignored, every other event
// becomes current, and an event whose encounter has ended is archived unless
// it repeats the newest archived one. All state sits behind one lock, so a
// reader never sees the archive and the current/last pointers disagree.
package history

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/actmeter/combat"
	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/metric"
	"github.com/c360/actmeter/pkg/buffer"
)

// DefaultMaxSize is the number of completed encounters kept by default.
const DefaultMaxSize = 20

// Outcome is what Offer did with an event.
type Outcome int

// Offer outcomes.
const (
	// OutcomeIncomplete: no encounter or no combatants; nothing changed.
	OutcomeIncomplete Outcome = iota
	// OutcomeDuplicate: equal to the last accepted event; nothing changed.
	OutcomeDuplicate
	// OutcomeAccepted: the event is now current.
	OutcomeAccepted
	// OutcomeArchived: the event is now current and was appended to the
	// archive.
	OutcomeArchived
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIncomplete:
		return "incomplete"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// Kept reports whether the event became current.
func (o Outcome) Kept() bool {
	return o == OutcomeAccepted || o == OutcomeArchived
}

// ArchiveHook is called with each newly archived event, after the manager's
// lock is released.
type ArchiveHook func(ev *combat.Event)

// ClearHook is called after Clear, once the manager's lock is released.
type ClearHook func()

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics exports offer outcomes and archive size to registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(m *Manager) {
		m.registry = registry
	}
}

// WithArchiveHook sets the archive hook.
func WithArchiveHook(hook ArchiveHook) Option {
	return func(m *Manager) {
		m.onArchive = hook
	}
}

// WithClearHook sets the clear hook.
func WithClearHook(hook ClearHook) Option {
	return func(m *Manager) {
		m.onClear = hook
	}
}

// Manager holds the event history. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	current *combat.Event
	last    *combat.Event
	past    *buffer.Ring[*combat.Event]

	logger    *slog.Logger
	registry  *metric.MetricsRegistry
	outcomes  *prometheus.CounterVec
	onArchive ArchiveHook
	onClear   ClearHook
}

// NewManager creates an empty manager keeping at most maxSize completed
// encounters. maxSize below 1 is raised to 1.
func NewManager(maxSize int, opts ...Option) (*Manager, error) {
	m := &Manager{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "history")

	ringOpts := []buffer.Option[*combat.Event]{
		buffer.WithEvictCallback[*combat.Event](func(ev *combat.Event) {
			m.logger.Debug("Encounter dropped from history",
				"title", ev.Encounter.Title, "duration", ev.Encounter.DurationRaw)
		}),
	}
	if m.registry != nil {
		ringOpts = append(ringOpts, buffer.WithMetrics[*combat.Event](m.registry, "history"))

		m.outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "history",
			Name:      "offers_total",
			Help:      "Events offered to the history, by outcome",
		}, []string{"outcome"})
		if err := m.registry.RegisterCounterVec("history", "offers", m.outcomes); err != nil {
			return nil, errors.WrapTransient(err, "history", "NewManager", "metrics registration")
		}
	}

	past, err := buffer.NewRing[*combat.Event](maxSize, ringOpts...)
	if err != nil {
		return nil, errors.WrapTransient(err, "history", "NewManager", "create archive")
	}
	m.past = past
	return m, nil
}

// Offer applies the acceptance rules to ev.
func (m *Manager) Offer(ev *combat.Event) Outcome {
	outcome := m.offer(ev)
	if m.outcomes != nil {
		m.outcomes.WithLabelValues(outcome.String()).Inc()
	}
	if outcome == OutcomeArchived && m.onArchive != nil {
		m.onArchive(ev)
	}
	return outcome
}

func (m *Manager) offer(ev *combat.Event) Outcome {
	if !ev.Complete() {
		return OutcomeIncomplete
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.Equal(m.last) {
		return OutcomeDuplicate
	}

	outcome := OutcomeAccepted
	if !ev.IsActive() {
		if tail, ok := m.past.Last(); !ok || !ev.Equal(tail) {
			m.past.Push(ev)
			outcome = OutcomeArchived
		}
	}

	m.last = ev
	m.current = ev
	return outcome
}

// Current returns the most recent accepted event, active or not.
func (m *Manager) Current() *combat.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Last returns the event new offers are compared against.
func (m *Manager) Last() *combat.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// At returns the archived event at i, 0 being the oldest, or nil when i is
// out of range.
func (m *Manager) At(i int) *combat.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, _ := m.past.At(i)
	return ev
}

// Len returns the number of archived events.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.past.Len()
}

// MaxSize returns the archive capacity.
func (m *Manager) MaxSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.past.Cap()
}

// Snapshot is a consistent copy of the manager state.
type Snapshot struct {
	Current *combat.Event
	Last    *combat.Event
	Past    []*combat.Event
}

// Snapshot returns the current, last and archived events as one
// consistent view.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Current: m.current,
		Last:    m.last,
		Past:    m.past.Snapshot(),
	}
}

// Clear drops the archive and the current and last events together.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.past.Clear()
	m.current = nil
	m.last = nil
	m.mu.Unlock()

	if m.onClear != nil {
		m.onClear()
	}
}

// SetMaxSize changes the archive capacity, dropping the oldest encounters
// that no longer fit.
func (m *Manager) SetMaxSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past.Resize(n)
}

// Restore appends previously archived events, oldest first, without
// touching the current and last events. Incomplete or still active events
// and repeats of the newest archived event are skipped. It returns the
// number of events restored.
func (m *Manager) Restore(events []*combat.Event) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, ev := range events {
		if !ev.Complete() || ev.IsActive() {
			continue
		}
		if tail, ok := m.past.Last(); ok && ev.Equal(tail) {
			continue
		}
		m.past.Push(ev)
		n++
	}
	return n
}
