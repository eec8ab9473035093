// Package cli is responsible for the command tree, for running the one-shot
// send workflow, and for translating its outcome into process exit codes.
// The web surface is started from here too, but lives in package web.
package cli
