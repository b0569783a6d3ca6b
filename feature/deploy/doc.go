// Package deploy implements the bucket-content reconciliation engine.
//
// One invocation takes a declarative set of object sources (zip archive
// assets fetched from storage, plus inline objects) and a target bucket,
// and makes the bucket's content exactly match the declared set. Afterwards
// it fires cache invalidations against downstream CDN distributions and
// reports a terminal status back to the orchestrator.
//
// # Pipeline
//
// The lifecycle controller (Service) runs the stages in strict order:
//
//  1. Staging: each archive asset is fetched and extracted into a
//     per-asset directory under the request-scoped staging area.
//  2. Assembly: archive contents and inline objects are merged
//     concurrently into one "final" tree, tracking every contributed path.
//  3. Validation: the contributed paths are checked for duplicates before
//     anything touches the bucket.
//  4. Mirroring: the final tree is synchronized to the bucket, deleting
//     stale remote objects and setting content types by extension.
//  5. Invalidation: all declared actions run concurrently, optionally
//     polling to completion within a bounded wait budget.
//  6. Reporting: exactly one SUCCESS or FAILED callback per invocation.
//
// Delete requests skip stages 1-3 and mirror an empty tree, emptying the
// bucket. Any stage failure short-circuits to the failure report.
//
// # Idempotency
//
// The staging area is scoped by request id and reset at the start of every
// invocation, so a retried request always starts from scratch. Mirroring
// compares local content to remote ETags and only transfers differences,
// making repeated runs of the same request converge to the same bucket
// state.
//
// # Concurrency
//
// Assembly contributors and invalidation actions fan out on independent
// goroutines and are joined before the next stage; no ordering exists
// within a stage, only between stages.
package deploy
