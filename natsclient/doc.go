// Package natsclient manages the connection to the local NATS bus used by
// the IPC transport, the aggregator command channel and the encounter
// archive.
//
// The client wraps nats.go with a connection status, slog logging,
// health monitoring that feeds the core NATS metrics, and request/reply
// helpers shaped for the IPC handshake:
//
//	nc, err := natsclient.NewClient("nats://127.0.0.1:4222",
//	    natsclient.WithLogger(logger),
//	    natsclient.WithMetrics(registry))
//	if err != nil {
//	    return err
//	}
//	if err := nc.Connect(ctx); err != nil {
//	    return err
//	}
//	defer nc.Close(ctx)
//
//	reply, err := nc.Request(ctx, "act.listening", nil)
//
// JetStream key-value buckets are opened with KeyValue and wrapped in a
// KVStore, which maps NATS errors to the package's ErrKV* sentinels.
//
// TestClient starts a NATS server in a container through testcontainers-go.
// It is only compiled with the integration build tag, so neither the
// testing package nor testcontainers reach the binary.
package natsclient
