/*
Package log provides structured logging for Deckhand using zerolog.

The package wraps zerolog behind a global logger initialized once via
log.Init, with component-scoped child loggers available through
WithComponent and per-deploy loggers through WithRunID. Output is
human-readable console format by default and JSON when configured, so
the same call sites serve interactive use and log collection.

Usage:

	log.Init(log.Config{Level: log.InfoLevel})
	logger := log.WithComponent("lifecycle")
	logger.Info().Str("state", "building").Msg("state transition")
*/
package log
