/*
Package health probes the managed service's liveness endpoint.

Two layers make up the package:

  - Probe is a single bounded-timeout liveness call. HTTPProbe hits the
    service's GET /health endpoint with a 15 second budget; any status
    other than 200, and any transport error, counts as unhealthy.
  - Monitor runs the deploy-time wait protocol: a fixed settle delay
    (45s, sized for slow cold starts under tight resource ceilings),
    then up to 10 probes at a fixed 10 second interval. The first
    success returns immediately; exhausting the budget returns the
    last failure.

The backoff is fixed-interval rather than exponential: the retry budget
is small and bounded, and predictable failure detection matters more
than adaptive pacing here.

Timing is injected through the Clock interface so tests can drive the
protocol without real waiting.
*/
package health
