/*
Package types defines the core data structures shared across Deckhand.

This package contains the domain model for single-service deployment:
the service lifecycle state enum, artifact references, health check
results, host resource snapshots, backup records, and deploy run journal
entries. All other packages depend on types; types depends on nothing.

# Core Types

  - ServiceState: the bounded lifecycle state set owned by the
    lifecycle controller (stopped, building, starting, healthy, ...)
  - ArtifactRef: identity of a built image (reference, digest, size)
  - HealthCheckResult: outcome of one liveness probe attempt
  - ResourceSnapshot: point-in-time host CPU/memory/disk view
  - BackupRecord: one retained backup, keyed by creation timestamp
  - DeployRun: persisted record of a deploy attempt

Types are plain serializable values. Enums are string-typed constants so
they read naturally in logs, YAML descriptors, and the journal.
*/
package types
