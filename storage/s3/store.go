// Package s3 implements storage.ObjectStore for S3-compatible object stores
// (AWS S3, MinIO) using the minio-go SDK.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/poiesic/pdfingest/storage"
)

// Config holds connection settings for an S3-compatible endpoint.
type Config struct {
	// Endpoint is a host[:port] or a full URL. An https:// scheme enables TLS.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("s3 config: Endpoint is required")
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return errors.New("s3 config: credentials are required")
	}
	return nil
}

// Store implements storage.ObjectStore over minio-go.
type Store struct {
	client *minio.Client
	logger *slog.Logger
}

var _ storage.ObjectStore = (*Store)(nil)

// NewStore creates a client for cfg. No request is made until the first
// operation.
func NewStore(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Store{
		client: client,
		logger: slog.Default().With("component", "s3-store"),
	}, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Host == "" {
		return raw, useSSL, nil
	}
	return u.Host, useSSL || u.Scheme == "https", nil
}

// Read returns the full contents of bucket/name.
func (s *Store) Read(ctx context.Context, bucket, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	defer obj.Close()

	// GetObject is lazy; errors such as NoSuchKey surface on first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

// Move performs a server-side copy to the new name and then removes the
// original. If the removal fails the object exists under both names.
func (s *Store) Move(ctx context.Context, bucket, from, to string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: bucket, Object: to},
		minio.CopySrcOptions{Bucket: bucket, Object: from},
	)
	if err != nil {
		return translate(err)
	}
	if err := s.client.RemoveObject(ctx, bucket, from, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Warn("copied object but failed to remove source", "bucket", bucket, "from", from, "to", to, "err", err)
		return translate(err)
	}
	return nil
}

// List returns objects under prefix.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo
	objectCh := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objectCh {
		if obj.Err != nil {
			return nil, translate(obj.Err)
		}
		objects = append(objects, storage.ObjectInfo{Bucket: bucket, Name: obj.Key, Size: obj.Size})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Close is a no-op; the minio client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

// translate maps S3 error codes onto the storage sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NoSuchObject":
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	}
	return err
}
