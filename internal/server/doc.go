// ABOUTME: HTTP surface: slash-command endpoints and the events ingress.
// ABOUTME: Verifies platform signatures and fans events onto the bus.

// Package server exposes the inbound HTTP surface: the slash-command
// endpoints, the Events API ingress, a health probe, and the optional
// metrics scrape path. Every platform-facing route is guarded by
// request-signature verification against the configured signing secret.
package server
