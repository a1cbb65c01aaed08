// Package errors provides standardized error handling for the meter.
//
// # Error Classification
//
// Errors fall into three classes:
//
//   - Transient: connect refused, handshake timeouts, dropped sockets. The
//     reconnect supervisor retries these.
//   - Invalid: malformed payloads or configuration. Payloads are dropped,
//     configuration is rejected at load time.
//   - Fatal: unrecoverable conditions such as missing configuration.
//
// Wrap third-party errors with component context:
//
//	if err := dialer.DialContext(ctx, url, nil); err != nil {
//	    return errors.WrapTransient(err, "websocket", "Connect", "dial aggregator")
//	}
//
// The package re-exports Is, As, New and Join so callers can import a single
// errors package.
package errors
