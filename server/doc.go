// Package server exposes the ingestion pipeline over HTTP.
//
// POST / accepts a storage notification and answers with a plain-text
// status line. GET /search runs a semantic query against the index and
// GET /healthz reports liveness.
package server
