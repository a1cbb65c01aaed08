package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actmeter/client"
	"github.com/c360/actmeter/combat"
	"github.com/c360/actmeter/errors"
)

type fakeMeter struct {
	status   client.Status
	lastErr  error
	resetErr error
	event    *combat.Event
	archived int

	ended, cleared, resets int
}

func (m *fakeMeter) Status() client.Status      { return m.status }
func (m *fakeMeter) LastError() error           { return m.lastErr }
func (m *fakeMeter) EndEncounter()              { m.ended++ }
func (m *fakeMeter) Clear()                     { m.cleared++ }
func (m *fakeMeter) GetEvent(int) *combat.Event { return m.event }
func (m *fakeMeter) ArchivedCount() int         { return m.archived }
func (m *fakeMeter) Reset() error               { m.resets++; return m.resetErr }

func runConsole(t *testing.T, m meter, input string) string {
	t.Helper()
	var out bytes.Buffer
	con := &console{meter: m, out: &out, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	require.NoError(t, con.Run(context.Background(), strings.NewReader(input)))
	return out.String()
}

func TestConsole_Commands(t *testing.T) {
	m := &fakeMeter{status: client.Connected, archived: 1234}
	out := runConsole(t, m, "end\n  CLEAR \n\nreset\nstatus\ndance\n")

	assert.Equal(t, 1, m.ended)
	assert.Equal(t, 1, m.cleared)
	assert.Equal(t, 1, m.resets)
	assert.Contains(t, out, "ending encounter")
	assert.Contains(t, out, "history cleared")
	assert.Contains(t, out, "connection reset")
	assert.Contains(t, out, "connected, 1,234 archived")
	assert.Contains(t, out, "unknown command dance")
}

func TestConsole_StatusDetails(t *testing.T) {
	m := &fakeMeter{
		status:   client.ConnectionFailed,
		lastErr:  errors.New("dial refused"),
		resetErr: errors.New("transport gone"),
		event:    &combat.Event{Timestamp: time.Now().Add(-3 * time.Minute)},
	}
	out := runConsole(t, m, "status\nreset\n")

	assert.Contains(t, out, "connection_failed (dial refused), 0 archived, last update 3 minutes ago")
	assert.Contains(t, out, "reset failed: transport gone")
}

func TestConsole_StopsOnContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	con := &console{meter: &fakeMeter{}, out: io.Discard, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- con.Run(ctx, pr) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("console did not stop")
	}
}
