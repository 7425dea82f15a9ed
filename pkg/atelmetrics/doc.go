/*
Package atelmetrics provides Prometheus metrics and health reporting for
atelier's local client, collab client, and server.

Metrics are defined and registered at package init via prometheus.MustRegister,
using a single global registry rather than a per-instance one. Handler()
exposes them on /metrics for scraping.

# Metric categories

  - Operation: OperationsApplied, OperationApplyDuration — every local or
    remote perform, across local client, collab client, and server.
  - Collab client: RewindsTotal, ReplayedOpsTotal, UnconfirmedQueueDepth,
    KeyChainRemaining — the rewind/apply/replay cycle and key reservoir.
  - Server: ConnectedClients.
  - Local client: TickDuration — time spent persisting dirty objects.

Timer is a small stopwatch helper: NewTimer() captures a start time,
ObserveDuration/ObserveDurationVec report elapsed seconds to a histogram
when the call completes.

# Health

HealthChecker tracks named components (blockstore, server, local/collab
client) as healthy or unhealthy; GetHealth/GetReadiness and the corresponding
HTTP handlers expose aggregate status. The demo server mounts the /health and
/live endpoints; it serves no readiness endpoint.
*/
package atelmetrics
