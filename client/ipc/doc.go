// Package ipc implements the local-subscription transport. Instead of
// reading a socket, it registers a named subscriber with the aggregator's
// plugin over a local message bus and answers each pushed payload with
// "true" (keep delivering) or "false".
//
// Connecting is a three-step handshake, each step with its own failure
// cause:
//
//  1. probe <prefix>.listening: ErrAggregatorUnavailable
//  2. register on <prefix>.subscriber.create: ErrSubscriberRejected
//  3. push the filter to <prefix>.subscriber.<name>.filter: ErrFilterRejected
//
// The delivery handler is installed before step 2 so the first push cannot
// be missed. Every session uses a fresh subscriber name.
package ipc
