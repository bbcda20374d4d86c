// Package reconcile brings actual channel membership in line with a
// computed desired set through minimal, rate-limited invite and kick
// batches.
//
// Every operation is best-effort: the batch is exactly the set difference
// between desired and actual membership, each element is attempted
// independently, benign platform rejects are swallowed, and a failing
// element never aborts its siblings. Operations on different channels may
// run concurrently; there is no cross-channel locking.
package reconcile
