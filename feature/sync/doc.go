// Package sync implements the reconciliation engine that keeps the local
// mirror consistent with the two authoritative remotes: the REST catalog
// (customers, orders, events, payment packages) and the legacy SQL ledger
// (socios, financial transactions).
//
// # Architecture
//
// The engine is built from small, separately testable parts:
//
//   - Reconcile: the generic fetch-and-update algorithm. Upserts every remote
//     item (insert, falling back to update on a key conflict), then deletes
//     local rows absent from the remote set. Idempotent and resumable; a
//     failed attempt leaves a state the next attempt converges.
//   - FetchAll: sequential page walking with lookahead termination and
//     per-item progress. The event fetch is cache-aware: an event whose
//     date_modified has not advanced is reused from the mirror, skipping its
//     secondary variations request.
//   - Scheduler: bounded retry with fixed (linear) backoff, per-job-name
//     single-flight enqueue, cancellation, and run observation snapshots.
//   - Service: per-account fan-out — customers → payments → orders → events,
//     then ledger sync with admin full-ledger seeding and the isolated
//     associated-owner second pass.
//   - Notifier: exactly-once transaction announcements with first-run
//     suppression, backed by the persisted notified flag.
//
// # Failure policy
//
// Constraint conflicts, unresolved ledger owners and missing credentials are
// recovered close to their origin and never abort a run. Everything else
// escalates to the scheduler, which retries the whole run up to its attempt
// ceiling and then reports a structured permanent failure. Cancellation is
// distinct from failure: it does not consume an attempt and is never retried
// automatically.
//
// # HTTP Endpoints
//
//   - POST   /sync/runs     : enqueue a manual run (returns the run id)
//   - GET    /sync/runs/:id : observe a run's state and progress
//   - DELETE /sync/runs/:id : request cancellation
package sync
