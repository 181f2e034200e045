// Package sinks implements progress consumers: Prometheus collectors, an
// in-memory tracker backing the status API, and structured console logging.
// Each sink satisfies progress.Sink and is safe for concurrent Consume calls.
package sinks
