// Package limiter gates outbound mutating platform calls to a minimum
// inter-call interval shared across every engine in the process.
package limiter
