package pdfingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/pdfingest/ai"
	"github.com/poiesic/pdfingest/extract"
	"github.com/poiesic/pdfingest/server"
	"github.com/poiesic/pdfingest/storage/pgvector"
	"github.com/poiesic/pdfingest/storage/pinecone"
	"github.com/poiesic/pdfingest/storage/s3"
)

// Object store backends.
const (
	StorageGCS   = "gcs"
	StorageS3    = "s3"
	StorageLocal = "local"
)

// Vector index backends.
const (
	IndexPinecone = "pinecone"
	IndexPGVector = "pgvector"
	IndexBadger   = "badger"
)

// DefaultPort is used when no port is configured.
const DefaultPort = "8080"

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Backend string

	// gcs
	CredentialsFile string
	Endpoint        string

	// s3
	S3 s3.Config

	// local
	Root string
}

// IndexConfig selects and configures the vector index.
type IndexConfig struct {
	Backend  string
	Pinecone pinecone.Config
	PGVector pgvector.Config

	// BadgerPath is the database directory for the badger backend.
	// Empty means an in-memory index.
	BadgerPath string
	// Dimension is enforced by the badger backend when > 0.
	Dimension int
}

// ChunkingConfig controls how document text is split.
type ChunkingConfig struct {
	Size     int
	Overlap  int
	Password string
}

// Config is the full service configuration.
type Config struct {
	Storage       StorageConfig
	Index         IndexConfig
	AI            *ai.Config
	Chunking      ChunkingConfig
	Port          string
	FailurePolicy string
	MinScore      float32
}

// DefaultConfig returns the production defaults: Cloud Storage, Pinecone
// and Gemini embeddings.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Backend: StorageGCS},
		Index: IndexConfig{
			Backend:  IndexPinecone,
			Pinecone: pinecone.Config{IndexName: pinecone.DefaultIndexName},
		},
		AI: ai.DefaultConfig(),
		Chunking: ChunkingConfig{
			Size:    extract.DefaultChunkSize,
			Overlap: extract.DefaultChunkOverlap,
		},
		Port:          DefaultPort,
		FailurePolicy: string(server.PolicyRedeliver),
	}
}

// Validate checks the configuration of every component.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case StorageGCS:
	case StorageS3:
		if err := c.Storage.S3.Validate(); err != nil {
			return err
		}
	case StorageLocal:
		if c.Storage.Root == "" {
			return errors.New("storage config: Root is required for local storage")
		}
	default:
		return fmt.Errorf("storage config: unknown backend %q", c.Storage.Backend)
	}

	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
	switch c.Index.Backend {
	case IndexPinecone:
		if err := c.Index.Pinecone.Validate(); err != nil {
			return err
		}
	case IndexPGVector:
		if err := c.Index.PGVector.Validate(); err != nil {
			return err
		}
	case IndexBadger:
		if c.Index.Dimension < 0 {
			return errors.New("index config: Dimension cannot be negative")
		}
	default:
		return fmt.Errorf("index config: unknown backend %q", c.Index.Backend)
	}

	if c.AI == nil {
		return errors.New("ai config: missing")
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}

	if c.Chunking.Size < 1 {
		return errors.New("chunking config: Size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return errors.New("chunking config: Overlap must be in [0, Size)")
	}

	if c.Port == "" {
		c.Port = DefaultPort
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("server config: invalid port %q", c.Port)
	}
	if _, err := server.ParseFailurePolicy(c.FailurePolicy); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	return nil
}

// Addr returns the listen address for the configured port.
func (c *Config) Addr() string {
	return ":" + c.Port
}
