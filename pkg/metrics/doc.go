/*
Package metrics defines Deckhand's Prometheus instrumentation.

Metrics cover the lifecycle state machine (current state gauge, deploy
outcome counter), the health protocol (probe counter and latency
histogram), and backup activity. The monitor command serves them over
HTTP via Handler when a metrics address is configured; otherwise the
collectors are updated in-process and cost nothing to scrape-less runs.
*/
package metrics
