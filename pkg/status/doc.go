/*
Package status streams combined service status snapshots.

Each tick gathers a fresh resource snapshot, the runtime's view of the
container, and one single-shot health probe; a failed probe simply
reports unhealthy for that tick, with no retry inside the tick. The
stream is an infinite, cancellable sequence: it runs until the caller's
context ends, then closes the channel and releases its timer.
*/
package status
