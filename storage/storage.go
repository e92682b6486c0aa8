// Package storage moves files between local disk and object stores
// (Google Cloud Storage, S3 compatible services, or a local directory).
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// Providers
const (
	ProviderGCS   = "gcs"
	ProviderS3    = "s3"
	ProviderLocal = "local"
)

// ErrObjectNotFound is returned when the requested object or bucket does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore downloads and uploads whole objects.
type ObjectStore interface {
	// Download writes bucket/key to the local file dst, creating parent
	// directories. dst is only replaced once the object was read completely.
	Download(ctx context.Context, bucket, key, dst string) error

	// Upload stores the local file src as bucket/key.
	Upload(ctx context.Context, bucket, key, src string) error

	// Close releases the client.
	Close() error
}

// Config holds connection settings shared by the providers.
type Config struct {
	// Endpoint overrides the service endpoint (S3 host[:port] or GCS URL).
	Endpoint string `yaml:"endpoint"`
	// AccessKeyID and SecretAccessKey are S3 credentials.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	UseSSL          bool   `yaml:"use_ssl"`
	// CredentialsFile is a GCS service account key; empty uses application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
	// Anonymous disables GCS authentication, for emulators and public buckets.
	Anonymous bool `yaml:"anonymous"`
	// LocalRoot is the directory holding one sub-directory per bucket for the local provider.
	LocalRoot string `yaml:"local_root"`
}

// New returns the ObjectStore for provider.
func New(ctx context.Context, provider string, cfg Config) (ObjectStore, error) {
	switch provider {
	case ProviderGCS:
		return NewGCSStore(ctx, cfg)
	case ProviderS3:
		return NewS3Store(cfg)
	case ProviderLocal:
		return NewLocalStore(cfg.LocalRoot)
	default:
		return nil, errors.NewValidationError("provider", "must be one of gcs, s3, local", provider)
	}
}

// writeAtomically copies r into dst through a temporary file in dst's directory.
func writeAtomically(dst string, r io.Reader) (err error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".*.part")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to flush downloaded file")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return errors.Wrapf(err, "failed to move download into %s", dst)
	}
	return nil
}

func requireLocation(bucket, key string) error {
	if bucket == "" {
		return errors.NewValidationError("bucket", "must not be empty", bucket)
	}
	if key == "" {
		return errors.NewValidationError("key", "must not be empty", key)
	}
	return nil
}
