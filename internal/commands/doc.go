// ABOUTME: Slash-command parsing and dispatch to the reconciliation engine.
// ABOUTME: Commands ack immediately; the work itself runs asynchronously.

// Package commands maps the /channel and /util slash commands onto
// reconciliation engine operations. Every command is admin-only and
// acknowledges within the platform's response deadline; the actual
// membership work is returned as deferred work for the caller to run
// in the background, with outcomes reported back to the invoking admin
// as ephemeral messages.
package commands
