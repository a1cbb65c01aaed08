// Package websocket implements the streaming-socket transport: it dials the
// aggregator's websocket endpoint, subscribes to combat data and feeds every
// text message to the client.
//
// Fragmented frames are reassembled by gorilla/websocket before a message is
// delivered. Messages that are not valid UTF-8 are logged and skipped. A
// close frame from the aggregator ends the session cleanly; any other read
// failure ends it as a connection fault.
package websocket
