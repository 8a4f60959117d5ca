package badger

// Key prefixes for different data types
const (
	vectorRecordPrefix = "vecrec:"
	documentPrefix     = "vecdoc:"
)

// makeRecordKey generates a key for an indexed chunk by ID.
func makeRecordKey(id string) []byte {
	return []byte(vectorRecordPrefix + id)
}

// makeDocumentKey generates a key marking that bucket/name has chunks in
// the index. The value is the chunk count from the most recent write.
// Format: prefix:bucket/name
func makeDocumentKey(bucket, name string) []byte {
	return []byte(documentPrefix + bucket + "/" + name)
}
