// Package worker provides a small generic worker pool with a bounded,
// non-blocking submit queue.
//
// Submit never blocks: when the queue is full the item is dropped and
// ErrQueueFull returned, so a slow consumer (a remote store, say) cannot
// stall the ingestion path. With one worker, items are processed in
// submission order.
//
//	pool, err := worker.NewPool(1, 32, save,
//	    worker.WithMetricsRegistry[*combat.Event](registry, "archive"))
//	if err != nil {
//	    return err
//	}
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(2 * time.Second)
package worker
