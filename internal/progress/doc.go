// Package progress carries run telemetry from workers to pluggable sinks. A
// Hub buffers events on a background goroutine and fans batches out to sinks
// such as Prometheus collectors, the status API tracker, or the console log.
// Emitting never blocks a worker; result rows do not travel through here.
package progress
