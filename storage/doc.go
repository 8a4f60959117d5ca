// Package storage defines the object storage and vector index abstractions
// used by the ingestion pipeline.
//
// Object stores hold the source documents. Three backends are provided:
//
//   - gcs: Google Cloud Storage
//   - s3: S3-compatible stores (AWS, MinIO)
//   - localfs: a directory per bucket on the local filesystem
//
// Vector indexes hold embedded chunks:
//
//   - pinecone: a hosted Pinecone index
//   - pgvector: PostgreSQL with the pgvector extension
//   - badger: an embedded BadgerDB index for local runs and tests
//
// Constructors in the backend packages return the interfaces declared here
// so callers never depend on a particular backend:
//
//	objects, err := gcs.NewStore(ctx, gcs.WithCredentialsFile(path))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer objects.Close()
//
// Backends translate their native errors into ErrNotFound and
// ErrPermissionDenied so the pipeline can classify failures without
// knowing which backend produced them.
package storage
