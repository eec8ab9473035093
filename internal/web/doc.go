// Package web is the browser surface. It renders the submission form and the
// per-form history, keeps the remembered delivery address in session-scoped
// storage, and proxies the same-origin /api/send endpoint to the engine.
//
// A browser session is identified by a session cookie and owns one Storage.
// Every page load without a form id mounts a fresh Form with its own History,
// the way a single-page app would on reload; the remembered address is the
// only state that survives.
package web
