package s3

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/poiesic/pdfingest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"complete", Config{Endpoint: "localhost:9000", AccessKeyID: "a", SecretAccessKey: "b"}, false},
		{"missing endpoint", Config{AccessKeyID: "a", SecretAccessKey: "b"}, true},
		{"missing secret", Config{Endpoint: "localhost:9000", AccessKeyID: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw        string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"localhost:9000", false, "localhost:9000", false},
		{"localhost:9000", true, "localhost:9000", true},
		{"http://minio:9000", false, "minio:9000", false},
		{"https://s3.amazonaws.com", false, "s3.amazonaws.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, secure, err := parseEndpoint(tt.raw, tt.useSSL)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(&Config{
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	})
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing key", minio.ErrorResponse{Code: "NoSuchKey"}, storage.ErrNotFound},
		{"missing bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, storage.ErrNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, storage.ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tt.err), tt.want)
		})
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
	assert.NoError(t, translate(nil))
}
