package core

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Request identifies a single stored object that may need ingesting.
// It is produced by a trigger (storage notification or webhook) and is
// consumed exactly once per delivery.
type Request struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// String renders the request as a gs-style URI for logs.
func (r Request) String() string {
	return "gs://" + r.Bucket + "/" + r.Name
}

// Chunk is a contiguous span of text extracted from a document.
// Index is the chunk's position within the whole document, starting at 0.
type Chunk struct {
	Index int
	Page  int
	Text  string
}

// Record is one indexed chunk: the text, the vector computed for it, and
// enough source metadata to trace a search hit back to its document.
type Record struct {
	ID         string
	Bucket     string
	Name       string
	ChunkIndex int
	Page       int
	Text       string
	Vector     []float32
	IndexedAt  time.Time
}

// RecordID derives a stable identifier for the chunk at index within the
// named object. Re-indexing the same object yields the same ids, so a
// repeated write replaces earlier vectors instead of adding to them.
func RecordID(bucket, name string, index int) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(bucket))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(index)))
	return hex.EncodeToString(h.Sum(nil))
}

// Status describes how an ingestion request was handled.
type Status int

const (
	// StatusIgnored means the request did not name an eligible object and
	// nothing was read, written or moved.
	StatusIgnored Status = iota + 1
	// StatusIngested means the object was indexed and archived.
	StatusIngested
)

func (s Status) String() string {
	switch s {
	case StatusIgnored:
		return "ignored"
	case StatusIngested:
		return "ingested"
	default:
		return "unknown"
	}
}

// Result is the outcome of a handled ingestion request.
type Result struct {
	Status  Status
	Request Request
	// Chunks is the number of chunks written to the vector index.
	Chunks int
	// ArchivedAs is the object's name after the archive move.
	ArchivedAs string
	// Reason explains why a request was ignored.
	Reason string
}

// Match is a single hit from a similarity query against the vector index.
type Match struct {
	ID         string
	Score      float32
	Bucket     string
	Name       string
	ChunkIndex int
	Page       int
	Text       string
}
