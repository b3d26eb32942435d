/*
Package storage persists the deploy journal.

The Journal is a small BoltDB file holding two buckets: an append-only
record of deploy runs (keyed by start time, so cursor order is
chronological) and the last known service state. The status command
reads it to answer "what happened last" without touching the runtime.

Health check results are deliberately not persisted; they are
point-in-time observations consumed in memory.
*/
package storage
