// Package trigger decodes storage notifications into ingestion requests.
//
// Three delivery shapes are understood: a plain JSON body carrying bucket and
// name, a Pub/Sub push envelope wrapping a Cloud Storage notification, and a
// CloudEvent in binary or structured HTTP mode.
package trigger
