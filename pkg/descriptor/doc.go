/*
Package descriptor renders the declarative deployment spec.

Render is a pure function from (DeploymentConfig, ArtifactRef) to a
Descriptor: resource hard caps plus a fixed host reservation, the port
binding, the service environment block, the health-check policy, the
restart policy, and the graceful-shutdown deadline. Identical inputs
yield byte-identical YAML, so redeploys are idempotent and descriptors
can be diffed directly in tests and backups.
*/
package descriptor
