package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/pdfingest"
	"github.com/poiesic/pdfingest/storage/localfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// localArgs points the service at throwaway local backends. The openai
// host is never dialed by the tests that use it.
func localArgs(root string) []string {
	return []string{
		"pdfingest",
		"--log-level", "error",
		"--storage", "local",
		"--local-root", root,
		"--index", "badger",
		"--embedding-provider", "openai",
		"--embedding-host", "http://127.0.0.1:1",
	}
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.RunContext(context.Background(), args)
	return stdout.String(), err
}

func TestConfigFromContext(t *testing.T) {
	t.Setenv("PINECONE_API_KEY", "pc-key")
	t.Setenv("PORT", "9090")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	var cfg *pdfingest.Config
	app := &cli.App{
		Name:  "test",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Flags: []cli.Flag{&cli.StringFlag{Name: "port", Value: pdfingest.DefaultPort, EnvVars: []string{"PORT"}}},
				Action: func(c *cli.Context) error {
					cfg = configFromContext(c)
					return nil
				},
			},
		},
	}
	require.NoError(t, app.Run([]string{"test", "--chunk-size", "500", "--chunk-overlap", "50", "serve"}))
	require.NotNil(t, cfg)

	assert.Equal(t, pdfingest.StorageGCS, cfg.Storage.Backend)
	assert.Equal(t, pdfingest.IndexPinecone, cfg.Index.Backend)
	assert.Equal(t, "pc-key", cfg.Index.Pinecone.APIKey)
	assert.Equal(t, "stratheum-hoi-poi-index", cfg.Index.Pinecone.IndexName)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "g-key", cfg.AI.APIKey)
	assert.Equal(t, "embedding-001", cfg.AI.Model)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	require.NoError(t, cfg.Validate())
}

func TestConfigFromContext_DefaultPort(t *testing.T) {
	var cfg *pdfingest.Config
	app := &cli.App{
		Name:  "test",
		Flags: globalFlags(),
		Action: func(c *cli.Context) error {
			cfg = configFromContext(c)
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"test", "--storage", "local", "--local-root", t.TempDir(), "--index", "badger"}))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, pdfingest.DefaultPort, cfg.Port)
}

func TestIngestCommand(t *testing.T) {
	root := t.TempDir()

	t.Run("bucket and name are required", func(t *testing.T) {
		_, err := runApp(t, append(localArgs(root), "ingest", "--bucket", "docs")...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name")
	})

	t.Run("ineligible object is ignored", func(t *testing.T) {
		out, err := runApp(t, append(localArgs(root), "ingest", "--bucket", "docs", "--name", "raw/notes.txt")...)
		require.NoError(t, err)
		assert.Contains(t, out, "Ignored")
	})

	t.Run("already archived object is ignored", func(t *testing.T) {
		out, err := runApp(t, append(localArgs(root), "ingest", "--bucket", "docs", "--name", "raw/missing.pdf")...)
		require.NoError(t, err)
		assert.Contains(t, out, "Ignored")
	})

	t.Run("unreadable object fails", func(t *testing.T) {
		// A directory in place of the object cannot be read.
		require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "raw", "dir.pdf"), 0o755))
		_, err := runApp(t, append(localArgs(root), "ingest", "--bucket", "docs", "--name", "raw/dir.pdf")...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ingestion failed")
	})
}

func TestBackfillCommand_DryRun(t *testing.T) {
	root := t.TempDir()
	store, err := localfs.NewStore(root)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "docs", "raw/a.pdf", []byte("%PDF-1.4")))
	require.NoError(t, store.Put(ctx, "docs", "raw/b.txt", []byte("text")))
	require.NoError(t, store.Put(ctx, "docs", "processed/c.pdf", []byte("%PDF-1.4")))
	require.NoError(t, store.Close())

	out, err := runApp(t, append(localArgs(root), "backfill", "--bucket", "docs", "--dry-run")...)
	require.NoError(t, err)
	assert.Equal(t, "raw/a.pdf\n", out)

	_, statErr := os.Stat(filepath.Join(root, "docs", "raw", "a.pdf"))
	assert.NoError(t, statErr, "dry run must not move anything")
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := runApp(t, "pdfingest", "--log-level", "error", "--storage", "ftp", "ingest", "--bucket", "docs", "--name", "raw/a.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage config")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n  b\tc", 10))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })

	newLoggerApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info"},
				&cli.StringFlag{Name: "log-format", Value: "text"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				require.NoError(t, newLoggerApp().Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("level is applied", func(t *testing.T) {
		require.NoError(t, newLoggerApp().Run([]string{"test", "-l", "warn"}))
		assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newLoggerApp().Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("json format", func(t *testing.T) {
		require.NoError(t, newLoggerApp().Run([]string{"test", "--log-format", "JSON"}))
		_, ok := slog.Default().Handler().(*slog.JSONHandler)
		assert.True(t, ok)
	})

	t.Run("invalid log format returns error", func(t *testing.T) {
		err := newLoggerApp().Run([]string{"test", "--log-format", "xml"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log format")
	})
}
