// Package app wires the long-running browser surface: it resolves the shared
// configuration, builds the engine client and the web server, and owns the
// HTTP listener lifecycle including graceful shutdown.
package app
