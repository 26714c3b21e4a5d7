// Package api hosts the operator HTTP endpoint exposed while a run is in
// progress. Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/sessions for the status of every session in the current run.
package api
