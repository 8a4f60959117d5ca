// Package ingestion runs the document pipeline for a single storage event.
//
// A request names an object in a bucket. Objects under raw/ with a .pdf
// suffix are fetched, split into chunks, embedded and written to the vector
// index as one batch, then moved to processed/. Every other name is ignored
// without touching storage. The move only happens after the index write
// succeeds, so an archived object is never processed twice and a failed run
// leaves the object where a redelivery or backfill will find it again.
package ingestion
