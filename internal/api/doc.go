// Package api hosts the HTTP server, middleware, and handlers of the
// dashboard service. Notable routes:
//   - GET / for the service version and source repository.
//   - GET /healthz and /readyz for Kubernetes liveness and readiness checks.
//   - GET /metrics for Prometheus scraping.
//   - POST /build to render and publish dashboards for Keeper products.
//
// Every error response uses the {status, error, message} JSON envelope.
package api
