/*
Package sysinfo samples host resources and gates deployment admission.

The package has two pieces:

  - HostSampler reads a fresh ResourceSnapshot (memory, CPU cores, load
    average, disk) on every call. Snapshots are never cached; consumers
    that need "now" get now.
  - Gate applies admission thresholds to a snapshot before any build
    work starts. Total memory under the absolute floor (1536 MiB) is
    fatal and aborts the run. Low available memory, a low core count,
    or an unreadable load average are warnings; deployment continues.

Running the gate first means a doomed deployment fails before any
expensive build work is attempted.
*/
package sysinfo
