// Package gcs implements storage.ObjectStore for Google Cloud Storage using
// the JSON API client from google.golang.org/api.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gstorage "google.golang.org/api/storage/v1"

	"github.com/poiesic/pdfingest/storage"
)

// Store implements storage.ObjectStore over the Cloud Storage JSON API.
type Store struct {
	svc    *gstorage.Service
	logger *slog.Logger
}

var _ storage.ObjectStore = (*Store)(nil)

// Option configures a Store.
type Option func(*settings)

type settings struct {
	clientOpts []option.ClientOption
}

// WithCredentialsFile authenticates with a service account key file instead
// of Application Default Credentials.
func WithCredentialsFile(path string) Option {
	return func(s *settings) {
		if path != "" {
			s.clientOpts = append(s.clientOpts, option.WithCredentialsFile(path))
		}
	}
}

// WithEndpoint overrides the API base URL, e.g. for an emulator.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) {
		if endpoint != "" {
			s.clientOpts = append(s.clientOpts, option.WithEndpoint(endpoint))
		}
	}
}

// WithClientOptions passes raw client options through to the API client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *settings) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// NewStore creates a Cloud Storage client. Without options it uses
// Application Default Credentials.
func NewStore(ctx context.Context, opts ...Option) (*Store, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	svc, err := gstorage.NewService(ctx, s.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}

	return &Store{
		svc:    svc,
		logger: slog.Default().With("component", "gcs-store"),
	}, nil
}

// Read downloads the full contents of bucket/name.
func (s *Store) Read(ctx context.Context, bucket, name string) ([]byte, error) {
	resp, err := s.svc.Objects.Get(bucket, name).Context(ctx).Download()
	if err != nil {
		return nil, translate(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

// Move rewrites bucket/from to bucket/to and deletes the source. Large
// objects may need several rewrite calls; the token from each response is
// passed to the next until the service reports completion.
func (s *Store) Move(ctx context.Context, bucket, from, to string) error {
	token := ""
	for {
		call := s.svc.Objects.Rewrite(bucket, from, bucket, to, &gstorage.Object{}).Context(ctx)
		if token != "" {
			call = call.RewriteToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return translate(err)
		}
		if resp.Done {
			break
		}
		token = resp.RewriteToken
		s.logger.Debug("rewrite in progress", "bucket", bucket, "from", from,
			"written", resp.TotalBytesRewritten, "total", resp.ObjectSize)
	}

	if err := s.svc.Objects.Delete(bucket, from).Context(ctx).Do(); err != nil {
		s.logger.Warn("copied object but failed to delete source", "bucket", bucket, "from", from, "to", to, "err", err)
		return translate(err)
	}
	return nil
}

// List returns objects under prefix, following pagination.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo
	err := s.svc.Objects.List(bucket).Prefix(prefix).Pages(ctx, func(page *gstorage.Objects) error {
		for _, item := range page.Items {
			objects = append(objects, storage.ObjectInfo{
				Bucket: bucket,
				Name:   item.Name,
				Size:   int64(item.Size),
			})
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Close is a no-op; the service holds only an HTTP client.
func (s *Store) Close() error {
	return nil
}

// translate maps googleapi status codes onto the storage sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	}
	return err
}
