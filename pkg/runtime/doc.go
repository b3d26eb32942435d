/*
Package runtime drives the container runtime for the managed service.

The Runtime interface is the narrow collaborator surface the lifecycle
controller needs: apply a descriptor (create and start, replacing any
previous instance), stop with a graceful deadline, and query status.
ContainerdRuntime implements it against containerd in a dedicated
namespace, translating the descriptor's resource declarations into OCI
cgroup settings (memory limit and reservation, CFS CPU quota, CPU
shares) and writing container output to a per-service log file.

Stop is idempotent by contract: stopping an instance that does not
exist returns success, which is what makes redeploys and restarts safe
to re-invoke after a crash.
*/
package runtime
