/*
Package backup snapshots configuration and log artifacts with bounded
retention.

A snapshot copies a fixed, small set of artifacts (service logs, the
rendered deployment descriptor, the environment file when present) into
a directory keyed YYYYMMDD_HHMMSS, alongside a metadata record of host
facts and a fresh resource snapshot. Backups are production-only and
opt-in; anywhere else Snapshot is a silent no-op.

Retention is count-based for snapshots (the three most recent survive)
and age-based for logs (the clean operation deletes files older than
seven days by modification time). All pruning is best-effort: a failed
deletion is logged and swallowed, never failing the calling operation.
*/
package backup
