// Package backfill re-drives documents that are still waiting under raw/.
//
// Objects stay under raw/ when an earlier run failed before the archive
// move, or when notifications were lost. A Backfiller lists the bucket,
// keeps the eligible names and feeds each one through the ingestion
// pipeline on a bounded worker pool, retrying transient failures.
package backfill
