// Package dedupe provides a TTL idempotency guard so that side effects
// keyed by a platform object run once even when independent event streams
// report the same object concurrently.
package dedupe
