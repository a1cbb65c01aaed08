// Package actmeter is a headless combat meter for Advanced Combat Tracker
// (ACT) aggregators.
//
// The meter connects to an aggregator, decodes each combat payload, keeps
// the running encounter plus a bounded history of finished ones, and
// formats them through text templates such as "[name] [dps:k.1]".
//
// # Layout
//
//   - lazy: deferred parsing of the aggregator's stringly typed numbers
//   - combat: encounters, combatants, jobs and their template tags
//   - texttag: the template formatter
//   - history: current, last and archived events under one lock
//   - client: connection state machine, ingestion, commands and the
//     reconnect supervisor
//   - client/websocket, client/ipc: the two transports
//   - natsclient, archive: the NATS bus and the JetStream encounter archive
//   - config, metric, health, errors: ambient infrastructure
//   - cmd/actmeter: the binary
//
// # Data flow
//
//	aggregator ──► Transport ──► Client.Ingest ──► combat.Decode
//	                                 │
//	                                 ▼
//	                          history.Manager ──► archive (optional)
//	                                 │
//	                                 ▼
//	                       texttag.Format ──► stdout
package actmeter
