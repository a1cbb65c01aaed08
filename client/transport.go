package client

import (
	"context"
)

// Aggregator commands. The strings are part of the aggregator protocol.
const (
	CommandEnd   = "end"
	CommandClear = "clear"
)

// SubscribeRequest is sent once after connecting to ask for combat data.
const SubscribeRequest = `{"call":"subscribe","events":["CombatData"]}`

// Sink receives raw payloads from a transport.
type Sink interface {
	// Ingest processes one payload. It reports whether the sink still
	// wants deliveries; malformed payloads are dropped but do not stop
	// delivery.
	Ingest(payload []byte) bool
	// Active reports whether the session is still connected. Receive loops
	// stop once it turns false.
	Active() bool
}

// Transport is one way of reaching the aggregator. A Client owns its
// transport exclusively and drives it from a single worker goroutine, except
// for Close and Abort which Shutdown may call concurrently with Run.
type Transport interface {
	// Name identifies the transport in logs and metrics.
	Name() string
	// Connect establishes the session and subscribes to combat data. It
	// returns once payloads may start flowing to sink.
	Connect(ctx context.Context, sink Sink) error
	// Run delivers payloads to sink until the remote ends the session, the
	// sink turns inactive, Close or Abort is called, or ctx ends. A nil
	// return is an orderly end; an error is a transport fault.
	Run(ctx context.Context, sink Sink) error
	// Close ends the session gracefully. It must be safe to call more than
	// once and concurrently with Run.
	Close(ctx context.Context) error
	// Abort releases the session immediately.
	Abort()
	// Reset discards all session state so Connect can start afresh.
	Reset() error
}

// Commander sends control commands to the aggregator.
type Commander interface {
	SendCommand(ctx context.Context, command string) error
}

// CommanderFunc adapts a function to Commander.
type CommanderFunc func(ctx context.Context, command string) error

// SendCommand calls f.
func (f CommanderFunc) SendCommand(ctx context.Context, command string) error {
	return f(ctx, command)
}
