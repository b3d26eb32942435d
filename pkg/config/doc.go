/*
Package config defines the immutable deployment configuration.

A DeploymentConfig is built once at the start of a run from documented
defaults, an optional YAML file, and environment variable overrides, and
is then passed by value into every component. Nothing consults the
process environment after construction; there are no hidden defaults
deep inside a call chain.

Recognized environment variables (all optional):

	ENVIRONMENT       development | production (default development)
	MAX_MEMORY        runtime memory ceiling, e.g. "1536m" (default 1536m)
	MAX_CPUS          runtime CPU ceiling as a core fraction (default 1.0)
	WORKER_PROCESSES  service worker process count (default 1)
	WORKER_THREADS    threads per worker (default 2)
	MAX_REQUESTS      requests per worker before recycling (default 1000)
	BACKUP_ENABLED    true | false (default false)

An absent variable never fails loading; a malformed one does.
*/
package config
