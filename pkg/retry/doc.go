// Package retry provides exponential backoff for transient failures.
//
// Do runs an operation until it succeeds, the attempts run out or the
// context ends. Errors wrapped with NonRetryable, and errors classified
// fatal by package errors, stop immediately:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//		return nc.Connect(ctx)
//	})
//
// Backoff exposes the same delay schedule for loops that manage their own
// attempts, such as the client reconnect supervisor:
//
//	backoff := retry.NewBackoff(retry.Reconnect())
//	for {
//		if err := reconnect(); err == nil {
//			backoff.Reset()
//		}
//		if err := retry.Sleep(ctx, backoff.Next()); err != nil {
//			return
//		}
//	}
//
// A negative MaxAttempts retries until the context ends.
package retry
