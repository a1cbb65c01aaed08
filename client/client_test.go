package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/metric"
)

// fakeTransport feeds payloads from a channel. Closing the channel ends the
// session from the remote side with runErr.
type fakeTransport struct {
	payloads chan []byte
	runErr   error

	connectErr   error
	failConnects int32 // number of leading Connect calls that fail
	blockConnect chan struct{}
	ignoreClose  bool

	connects atomic.Int32
	closes   atomic.Int32
	aborts   atomic.Int32
	resets   atomic.Int32

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		payloads: make(chan []byte, 16),
		stop:     make(chan struct{}),
	}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Connect(ctx context.Context, _ Sink) error {
	n := f.connects.Add(1)
	if f.blockConnect != nil {
		select {
		case <-f.blockConnect:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.failConnects == 0 || n <= f.failConnects {
		return f.connectErr
	}
	return nil
}

func (f *fakeTransport) stopCh() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stop
}

func (f *fakeTransport) Run(ctx context.Context, sink Sink) error {
	stop := f.stopCh()
	for {
		select {
		case p, ok := <-f.payloads:
			if !ok {
				return f.runErr
			}
			sink.Ingest(p)
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *fakeTransport) Close(context.Context) error {
	f.closes.Add(1)
	if f.ignoreClose {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		close(f.stop)
		f.stopped = true
	}
	return nil
}

func (f *fakeTransport) Abort() { f.aborts.Add(1) }

func (f *fakeTransport) Reset() error {
	f.resets.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stop = make(chan struct{})
	f.stopped = false
	return nil
}

type mockCommander struct {
	mock.Mock
}

func (m *mockCommander) SendCommand(ctx context.Context, command string) error {
	args := m.Called(ctx, command)
	return args.Error(0)
}

func newTestClient(t *testing.T, tr Transport, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithShutdownTimeout(200 * time.Millisecond)}, opts...)
	c, err := New(tr, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	return c
}

func waitStatus(t *testing.T, c *Client, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return c.Status() == want },
		2*time.Second, 5*time.Millisecond, "want status %s, have %s", want, c.Status())
}

func combatPayload(active bool, duration string, damage int, combatants int) []byte {
	members := ""
	for i := 0; i < combatants; i++ {
		if i > 0 {
			members += ","
		}
		members += fmt.Sprintf(`"c%d":{"name":"Member %d","Job":"SCH","damage":"%d"}`, i, i, damage/(i+1))
	}
	return []byte(fmt.Sprintf(`{"type":"CombatData","isActive":"%t","Encounter":`+
		`{"title":"Dummy","duration":%q,"damage":"%d"},"Combatant":{%s}}`, active, duration, damage, members))
}

func TestNew_RequiresTransport(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.IsInvalid(err))
}

func TestClient_EncounterScenario(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)

	require.NoError(t, c.Start())
	waitStatus(t, c, Connected)

	tr.payloads <- combatPayload(true, "00:30", 1000, 2)
	require.Eventually(t, func() bool { return c.GetEvent(-1) != nil }, time.Second, 5*time.Millisecond)
	current := c.GetEvent(-1)
	assert.True(t, current.IsActive())
	assert.Equal(t, 0, c.History().Len())

	tr.payloads <- combatPayload(false, "00:30", 1000, 2)
	require.Eventually(t, func() bool { return c.History().Len() == 1 }, time.Second, 5*time.Millisecond)

	archived := c.GetEvent(0)
	require.NotNil(t, archived)
	assert.False(t, archived.IsActive())
	assert.Same(t, archived, c.GetEvent(-1))
	assert.Nil(t, c.GetEvent(1))

	c.Shutdown()
	assert.Equal(t, NotConnected, c.Status())
}

func TestClient_StartTwiceRejected(t *testing.T) {
	tr := newFakeTransport()
	tr.blockConnect = make(chan struct{})
	c := newTestClient(t, tr)

	require.NoError(t, c.Start())
	assert.Equal(t, Connecting, c.Status())

	err := c.Start()
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)
	assert.Equal(t, Connecting, c.Status())

	close(tr.blockConnect)
	waitStatus(t, c, Connected)
	assert.Error(t, c.Start())
	assert.Equal(t, int32(1), tr.connects.Load(), "no second connection attempt")
}

func TestClient_ShutdownWhileConnecting(t *testing.T) {
	tr := newFakeTransport()
	tr.blockConnect = make(chan struct{})
	c := newTestClient(t, tr)

	require.NoError(t, c.Start())
	c.Shutdown()
	assert.Equal(t, NotConnected, c.Status())
	assert.Nil(t, c.LastError(), "cancelled handshake is not a failure")
}

func TestClient_ShutdownWhileConnectingRecordsNoError(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	tr := newFakeTransport()
	tr.blockConnect = make(chan struct{})
	c := newTestClient(t, tr, WithMetrics(registry))

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Start())
		c.Shutdown()
		require.Equal(t, NotConnected, c.Status())
		require.Nil(t, c.LastError())
	}
	assert.Equal(t, 0, testutil.CollectAndCount(registry.CoreMetrics().ErrorsTotal))
}

func TestClient_IngestGate(t *testing.T) {
	c := newTestClient(t, newFakeTransport())

	c.Ingest(combatPayload(true, "00:10", 500, 1))
	before := c.GetEvent(-1)
	require.NotNil(t, before)

	c.Ingest(combatPayload(false, "00:12", 700, 0))
	c.Ingest([]byte(`   `))
	c.Ingest([]byte(`{not json`))
	c.Ingest(nil)

	assert.Same(t, before, c.GetEvent(-1))
	assert.Same(t, before, c.History().Last())
	assert.Equal(t, 0, c.History().Len())
}

func TestClient_IngestReportsAccepting(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)

	assert.False(t, c.Ingest(combatPayload(true, "00:01", 1, 1)), "not connected")

	require.NoError(t, c.Start())
	waitStatus(t, c, Connected)
	assert.True(t, c.Ingest([]byte(`garbage`)), "malformed payloads do not stop delivery")
	assert.True(t, c.Active())
}

func TestClient_LocalPlayerName(t *testing.T) {
	c := newTestClient(t, newFakeTransport(), WithLocalPlayerName(func() string { return "Y'shtola Rhul" }))

	c.Ingest([]byte(`{"isActive":"true","Encounter":{"title":"t","duration":"00:01","damage":1},` +
		`"Combatant":{"YOU":{"name":"YOU","Job":"BLM"}}}`))

	ev := c.GetEvent(-1)
	require.NotNil(t, ev)
	assert.Equal(t, "Y'shtola Rhul", ev.Combatants["YOU"].Name())
}

func TestClient_ConnectFailureAndReset(t *testing.T) {
	tr := newFakeTransport()
	tr.connectErr = errors.WrapTransient(errors.ErrNoConnection, "fake", "Connect", "dial")
	tr.failConnects = 1
	c := newTestClient(t, tr)

	require.NoError(t, c.Start())
	waitStatus(t, c, ConnectionFailed)
	assert.ErrorIs(t, c.LastError(), errors.ErrNoConnection)

	assert.Error(t, c.Start(), "failed state needs Reset")
	assert.Equal(t, ConnectionFailed, c.Status())

	c.Shutdown()
	assert.Equal(t, ConnectionFailed, c.Status(), "shutdown keeps the failure")

	require.NoError(t, c.Reset())
	assert.Equal(t, NotConnected, c.Status())
	assert.Equal(t, int32(1), tr.resets.Load())

	require.NoError(t, c.Start())
	waitStatus(t, c, Connected)
}

func TestClient_RemoteEndsSession(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)

	require.NoError(t, c.Start())
	waitStatus(t, c, Connected)

	close(tr.payloads)
	waitStatus(t, c, NotConnected)
	assert.Nil(t, c.LastError())
	assert.GreaterOrEqual(t, tr.closes.Load(), int32(1))
}

func TestClient_LinkFault(t *testing.T) {
	tr := newFakeTransport()
	tr.runErr = errors.ErrConnectionLost
	c := newTestClient(t, tr)

	require.NoError(t, c.Start())
	waitStatus(t, c, Connected)

	close(tr.payloads)
	waitStatus(t, c, ConnectionFailed)
	assert.ErrorIs(t, c.LastError(), errors.ErrConnectionLost)
	assert.True(t, errors.IsTransient(c.LastError()))
}

func TestClient_ShutdownAbortsStuckWorker(t *testing.T) {
	tr := newFakeTransport()
	tr.ignoreClose = true
	c := newTestClient(t, tr, WithShutdownTimeout(30*time.Millisecond))

	require.NoError(t, c.Start())
	waitStatus(t, c, Connected)

	start := time.Now()
	c.Shutdown()
	assert.Equal(t, NotConnected, c.Status())
	assert.Equal(t, int32(1), tr.aborts.Load())
	assert.Less(t, time.Since(start), time.Second)

	c.Shutdown()
	assert.Equal(t, NotConnected, c.Status())
	assert.Equal(t, int32(1), tr.aborts.Load(), "second shutdown is a no-op")
}

func TestClient_Commands(t *testing.T) {
	cmd := &mockCommander{}
	cmd.On("SendCommand", mock.Anything, CommandEnd).Return(nil).Once()
	cmd.On("SendCommand", mock.Anything, CommandClear).Return(errors.ErrNoConnection).Once()

	c := newTestClient(t, newFakeTransport(), WithCommander(cmd), WithClearAggregator(true))
	c.Ingest(combatPayload(false, "00:10", 10, 1))
	require.Equal(t, 1, c.History().Len())

	c.EndEncounter()
	c.Clear()
	c.WaitCommands()

	cmd.AssertExpectations(t)
	assert.Nil(t, c.GetEvent(-1))
	assert.Equal(t, 0, c.History().Len())
}

func TestClient_ClearLocalOnly(t *testing.T) {
	cmd := &mockCommander{}
	c := newTestClient(t, newFakeTransport(), WithCommander(cmd))

	c.Clear()
	c.WaitCommands()
	cmd.AssertNotCalled(t, "SendCommand", mock.Anything, mock.Anything)
}

func TestClient_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	c := newTestClient(t, newFakeTransport(), WithMetrics(registry))

	c.Ingest(combatPayload(true, "00:01", 1, 1))
	c.Ingest(combatPayload(true, "00:01", 1, 1))
	c.Ingest([]byte("{"))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	dropped := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "actmeter_client_payloads_dropped_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "reason" {
					dropped[l.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 1.0, dropped[dropDuplicate])
	assert.Equal(t, 1.0, dropped[dropMalformed])
}

func TestClient_IngestLatencyIgnoresReceiptClock(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	epoch := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, newFakeTransport(), WithMetrics(registry), WithClock(func() time.Time { return epoch }))

	c.Ingest(combatPayload(true, "00:01", 1, 1))
	assert.Equal(t, epoch, c.GetEvent(-1).Timestamp)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "actmeter_client_ingest_duration_seconds" {
			continue
		}
		found = true
		h := mf.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(1), h.GetSampleCount())
		assert.Less(t, h.GetSampleSum(), 1.0)
	}
	assert.True(t, found)
}
