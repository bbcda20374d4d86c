// Package metrics exposes Prometheus counters for reconciliation batches
// and intake pipeline outcomes.
package metrics
