// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/pdfingest"
	"github.com/poiesic/pdfingest/ai"
	"github.com/poiesic/pdfingest/backfill"
	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/extract"
	"github.com/poiesic/pdfingest/server"
	"github.com/poiesic/pdfingest/storage/pinecone"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env is fine; the environment is authoritative.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "pdfingest",
		Usage:    "Index PDFs dropped under raw/ into a vector index",
		Flags:    globalFlags(),
		Before:   setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve storage notifications over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Usage:   "Port to listen on",
						Value:   pdfingest.DefaultPort,
						EnvVars: []string{"PORT"},
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Ingest a single object",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "bucket",
						Aliases:  []string{"b"},
						Usage:    "Bucket holding the object",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Object name, e.g. raw/report.pdf",
						Required: true,
					},
				},
			},
			{
				Name:   "backfill",
				Usage:  "Ingest every PDF still waiting under raw/",
				Action: backfillCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "bucket",
						Aliases:  []string{"b"},
						Usage:    "Bucket to drain",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "List eligible documents without ingesting them",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Documents processed at once",
						Value: backfill.DefaultConfig().Concurrency,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Maximum attempts per document",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Query the index",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search text",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "max-hits",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
				},
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "Set logging level (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log output format (text, json)",
			Value:   "text",
			EnvVars: []string{"LOG_FORMAT"},
		},

		// Object storage
		&cli.StringFlag{
			Name:    "storage",
			Usage:   "Object store backend (gcs, s3, local)",
			Value:   pdfingest.StorageGCS,
			EnvVars: []string{"STORAGE_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "gcs-credentials",
			Usage:   "Service account key file for Cloud Storage",
			EnvVars: []string{"GOOGLE_APPLICATION_CREDENTIALS"},
		},
		&cli.StringFlag{
			Name:    "gcs-endpoint",
			Usage:   "Cloud Storage endpoint override, e.g. an emulator",
			EnvVars: []string{"GCS_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Usage:   "S3-compatible endpoint",
			EnvVars: []string{"S3_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "s3-access-key",
			EnvVars: []string{"AWS_ACCESS_KEY_ID"},
		},
		&cli.StringFlag{
			Name:    "s3-secret-key",
			EnvVars: []string{"AWS_SECRET_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "s3-region",
			EnvVars: []string{"AWS_REGION"},
		},
		&cli.BoolFlag{
			Name:    "s3-ssl",
			Usage:   "Use TLS for the S3 endpoint",
			EnvVars: []string{"S3_USE_SSL"},
		},
		&cli.StringFlag{
			Name:    "local-root",
			Usage:   "Root directory for the local backend; buckets are subdirectories",
			EnvVars: []string{"LOCAL_ROOT"},
		},

		// Vector index
		&cli.StringFlag{
			Name:    "index",
			Usage:   "Vector index backend (pinecone, pgvector, badger)",
			Value:   pdfingest.IndexPinecone,
			EnvVars: []string{"INDEX_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "pinecone-api-key",
			EnvVars: []string{"PINECONE_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "pinecone-host",
			Usage:   "Index data-plane host; resolved from the index name when empty",
			EnvVars: []string{"PINECONE_HOST"},
		},
		&cli.StringFlag{
			Name:    "pinecone-index",
			Value:   pinecone.DefaultIndexName,
			EnvVars: []string{"PINECONE_INDEX"},
		},
		&cli.StringFlag{
			Name:    "pinecone-namespace",
			EnvVars: []string{"PINECONE_NAMESPACE"},
		},
		&cli.StringFlag{
			Name:    "pgvector-dsn",
			Usage:   "PostgreSQL connection string",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "pgvector-table",
			EnvVars: []string{"PGVECTOR_TABLE"},
		},
		&cli.StringFlag{
			Name:    "badger-path",
			Usage:   "BadgerDB directory; empty keeps the index in memory",
			EnvVars: []string{"BADGER_PATH"},
		},
		&cli.IntFlag{
			Name:    "dimension",
			Usage:   "Embedding dimension enforced by pgvector and badger",
			EnvVars: []string{"EMBEDDING_DIMENSION"},
		},

		// Embeddings
		&cli.StringFlag{
			Name:    "embedding-provider",
			Usage:   "Embedding provider (googleai, openai)",
			Value:   ai.ProviderGoogleAI,
			EnvVars: []string{"EMBEDDING_PROVIDER"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Value:   ai.DefaultConfig().Model,
			EnvVars: []string{"EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Base URL for OpenAI-compatible providers",
			EnvVars: []string{"EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-api-key",
			EnvVars: []string{"GOOGLE_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.IntFlag{
			Name:  "embedding-batch-size",
			Value: ai.DefaultConfig().BatchSize,
		},
		&cli.BoolFlag{
			Name:  "normalize-vectors",
			Usage: "Scale embeddings to unit length",
		},

		// Chunking
		&cli.IntFlag{
			Name:  "chunk-size",
			Value: extract.DefaultChunkSize,
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Value: extract.DefaultChunkOverlap,
		},
		&cli.StringFlag{
			Name:    "pdf-password",
			EnvVars: []string{"PDF_PASSWORD"},
		},

		&cli.StringFlag{
			Name:    "failure-policy",
			Usage:   "How failed notifications are answered (redeliver, acknowledge)",
			Value:   string(server.PolicyRedeliver),
			EnvVars: []string{"FAILURE_POLICY"},
		},
		&cli.Float64Flag{
			Name:  "min-score",
			Usage: "Drop search results scoring below this",
		},
	}
}

func configFromContext(c *cli.Context) *pdfingest.Config {
	cfg := pdfingest.DefaultConfig()

	cfg.Storage = pdfingest.StorageConfig{
		Backend:         c.String("storage"),
		CredentialsFile: c.String("gcs-credentials"),
		Endpoint:        c.String("gcs-endpoint"),
		Root:            c.String("local-root"),
	}
	cfg.Storage.S3.Endpoint = c.String("s3-endpoint")
	cfg.Storage.S3.AccessKeyID = c.String("s3-access-key")
	cfg.Storage.S3.SecretAccessKey = c.String("s3-secret-key")
	cfg.Storage.S3.Region = c.String("s3-region")
	cfg.Storage.S3.UseSSL = c.Bool("s3-ssl")

	cfg.Index.Backend = c.String("index")
	cfg.Index.Pinecone.APIKey = c.String("pinecone-api-key")
	cfg.Index.Pinecone.Host = c.String("pinecone-host")
	cfg.Index.Pinecone.IndexName = c.String("pinecone-index")
	cfg.Index.Pinecone.Namespace = c.String("pinecone-namespace")
	cfg.Index.PGVector.DSN = c.String("pgvector-dsn")
	cfg.Index.PGVector.Table = c.String("pgvector-table")
	cfg.Index.PGVector.Dimension = c.Int("dimension")
	cfg.Index.BadgerPath = c.String("badger-path")
	cfg.Index.Dimension = c.Int("dimension")

	cfg.AI = ai.NewConfig(
		ai.WithProvider(c.String("embedding-provider")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithHost(c.String("embedding-host")),
		ai.WithAPIKey(c.String("embedding-api-key")),
		ai.WithBatchSize(c.Int("embedding-batch-size")),
		ai.WithNormalizeVectors(c.Bool("normalize-vectors")),
	)

	cfg.Chunking = pdfingest.ChunkingConfig{
		Size:     c.Int("chunk-size"),
		Overlap:  c.Int("chunk-overlap"),
		Password: c.String("pdf-password"),
	}
	cfg.FailurePolicy = c.String("failure-policy")
	cfg.MinScore = float32(c.Float64("min-score"))
	// Only serve defines --port; elsewhere the default applies.
	cfg.Port = c.String("port")
	return cfg
}

func openService(c *cli.Context) (*pdfingest.Service, error) {
	svc, err := pdfingest.NewService(c.Context, configFromContext(c))
	if err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}

func serveCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv, err := svc.NewServer()
	if err != nil {
		return err
	}
	return srv.ListenAndServe(c.Context, svc.Config().Addr())
}

func ingestCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	req := core.Request{Bucket: c.String("bucket"), Name: c.String("name")}
	result, err := svc.Pipeline().Ingest(c.Context, req)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if result.Status == core.StatusIgnored {
		fmt.Fprintf(c.App.Writer, "Ignored: %s\n", result.Reason)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Success: %d chunks, archived as %s\n", result.Chunks, result.ArchivedAs)
	return nil
}

func backfillCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	cfg := &backfill.Config{
		Concurrency:    c.Int("concurrency"),
		ReportInterval: c.Int("report-interval"),
		MaxAttempts:    c.Int("max-attempts"),
		RetryDelay:     c.Duration("retry-delay"),
		DryRun:         c.Bool("dry-run"),
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	b, err := svc.NewBackfiller(cfg, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Bucket: %s\n", c.String("bucket"))
	fmt.Fprintf(c.App.ErrWriter, "Storage: %s, index: %s\n", svc.Config().Storage.Backend, svc.Config().Index.Backend)
	fmt.Fprintln(c.App.ErrWriter)

	summary, err := b.Run(c.Context, c.String("bucket"))
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	if cfg.DryRun {
		for _, name := range summary.Eligible {
			fmt.Fprintln(c.App.Writer, name)
		}
		return nil
	}
	for _, f := range summary.Failures {
		fmt.Fprintf(c.App.Writer, "FAILED %s: %v\n", f.Name, f.Err)
	}
	if n := len(summary.Failures); n > 0 {
		return fmt.Errorf("%d of %d documents failed", n, len(summary.Eligible))
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	searcher, err := svc.NewSearcher()
	if err != nil {
		return err
	}
	matches, err := searcher.Search(c.Context, c.String("query"), c.Int("max-hits"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(matches) == 0 {
		fmt.Fprintln(c.App.Writer, "No results")
		return nil
	}
	for i, m := range matches {
		fmt.Fprintf(c.App.Writer, "%d. [%.3f] %s/%s (page %d, chunk %d)\n", i+1, m.Score, m.Bucket, m.Name, m.Page, m.ChunkIndex)
		fmt.Fprintf(c.App.Writer, "   %s\n", snippet(m.Text, 200))
	}
	return nil
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > max {
		return string(r[:max]) + "..."
	}
	return text
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(c.String("log-format")) {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.String("log-format"))
	}
	slog.SetDefault(slog.New(handler))

	return nil
}
