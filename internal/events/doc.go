// Package events carries inbound platform events from the HTTP listener to
// their handlers over explicit per-type subscriptions, with no shared
// mutable state between handlers.
package events
