// Package localfs implements storage.ObjectStore on the local filesystem.
// Each bucket is a directory under the store root and object names map to
// slash-separated paths inside it.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/pdfingest/storage"
)

// ErrInvalidPath indicates a bucket or object name that would escape the store root.
var ErrInvalidPath = errors.New("invalid path")

// Store persists objects on disk.
type Store struct {
	root   string
	logger *slog.Logger
}

var _ storage.ObjectStore = (*Store)(nil)

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: root is required", ErrInvalidPath)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		root:   root,
		logger: slog.Default().With("component", "localfs-store"),
	}, nil
}

// Put writes data to bucket/name, creating parent directories.
func (s *Store) Put(ctx context.Context, bucket, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.objectPath(bucket, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return translate(err)
	}
	return translate(os.WriteFile(fullPath, data, 0o644))
}

// Read returns the contents of bucket/name.
func (s *Store) Read(ctx context.Context, bucket, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.objectPath(bucket, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

// Exists reports whether bucket/name is present.
func (s *Store) Exists(ctx context.Context, bucket, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fullPath, err := s.objectPath(bucket, name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, translate(err)
	}
	return !info.IsDir(), nil
}

// Move renames bucket/from to bucket/to. An existing object at the target
// is replaced.
func (s *Store) Move(ctx context.Context, bucket, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.objectPath(bucket, from)
	if err != nil {
		return err
	}
	dst, err := s.objectPath(bucket, to)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return translate(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return translate(err)
	}
	if err := os.Rename(src, dst); err != nil {
		return translate(err)
	}
	s.logger.Debug("moved object", "bucket", bucket, "from", from, "to", to)
	return nil
}

// List returns objects in bucket whose names start with prefix.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bucketDir, err := s.bucketPath(bucket)
	if err != nil {
		return nil, err
	}

	var objects []storage.ObjectInfo
	err = filepath.WalkDir(bucketDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(bucketDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, storage.ObjectInfo{Bucket: bucket, Name: name, Size: info.Size()})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, translate(err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) bucketPath(bucket string) (string, error) {
	if bucket == "" || bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("%w: bucket %q", ErrInvalidPath, bucket)
	}
	return filepath.Join(s.root, bucket), nil
}

func (s *Store) objectPath(bucket, name string) (string, error) {
	bucketDir, err := s.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	if name == "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: object %q", ErrInvalidPath, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: object %q", ErrInvalidPath, name)
		}
	}
	return filepath.Join(bucketDir, filepath.FromSlash(name)), nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	default:
		return err
	}
}
