// Package api hosts the optional status server for a running check. Routes:
//   - GET /healthz and /readyz for liveness probes.
//   - GET /metrics for Prometheus scraping of the run registry.
//   - GET /progress for the live run snapshot as JSON.
package api
