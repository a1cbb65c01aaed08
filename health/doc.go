// Package health reports whether the meter is connected to its aggregator.
//
// Components publish a Status into a Monitor; the Monitor aggregates them
// (any unhealthy makes the whole unhealthy, otherwise any degraded makes it
// degraded) and serves the result as JSON on the /health endpoint. Error
// text is sanitized before it is exposed: URLs, paths, addresses and
// credentials are replaced with placeholders.
package health
