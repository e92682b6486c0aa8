package storage

import (
	"context"
	"io"
	"os"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// GCSStore reads and writes Google Cloud Storage objects.
type GCSStore struct {
	client *gcs.Client
}

// NewGCSStore creates a GCS client. Without a credentials file the
// application default credentials are used.
func NewGCSStore(ctx context.Context, cfg Config) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	switch {
	case cfg.Anonymous:
		opts = append(opts, option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage client")
	}
	return &GCSStore{client: client}, nil
}

// Download copies gs://bucket/key to the local file dst.
func (s *GCSStore) Download(ctx context.Context, bucket, key, dst string) error {
	if err := requireLocation(bucket, key); err != nil {
		return err
	}
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
			return errors.Wrapf(ErrObjectNotFound, "gs://%s/%s", bucket, key)
		}
		return errors.Wrapf(err, "failed to open gs://%s/%s", bucket, key)
	}
	defer r.Close()

	if err := writeAtomically(dst, r); err != nil {
		return errors.Wrapf(err, "failed to download gs://%s/%s", bucket, key)
	}
	return nil
}

// Upload writes the local file src to gs://bucket/key.
func (s *GCSStore) Upload(ctx context.Context, bucket, key, src string) error {
	if err := requireLocation(bucket, key); err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer f.Close()

	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "failed to upload gs://%s/%s", bucket, key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "failed to finalize gs://%s/%s", bucket, key)
	}
	return nil
}

// Close releases the underlying GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
