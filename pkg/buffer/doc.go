// Package buffer provides Ring, a generic, thread-safe bounded FIFO that
// evicts its oldest item to make room for a new one.
//
// Unlike a queue, a Ring is read in place: At, Last and Snapshot do not
// consume items. It is used for retained histories where the newest N items
// must stay addressable by position.
//
// Statistics are always collected. Prometheus metrics are optional:
//
//	ring, err := buffer.NewRing[*combat.Event](20,
//		buffer.WithMetrics[*combat.Event](registry, "history"),
//		buffer.WithEvictCallback(func(ev *combat.Event) {
//			logger.Debug("evicted encounter", "title", ev.Encounter.Title)
//		}),
//	)
//
// Callbacks run after the ring's lock is released, so they may call back
// into the ring.
package buffer
