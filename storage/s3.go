package storage

import (
	"context"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// S3Store reads and writes objects on any S3 compatible service through minio-go.
type S3Store struct {
	client *minio.Client
}

// NewS3Store creates an S3 client. The endpoint may be a bare host[:port]
// or a URL, whose https scheme turns on TLS. Empty credentials make
// anonymous requests.
func NewS3Store(cfg Config) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewValidationError("endpoint", "is required for the s3 provider", cfg.Endpoint)
	}
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = useSSL || u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create s3 client")
	}
	return &S3Store{client: client}, nil
}

// Download copies the object bucket/key to the local file dst.
func (s *S3Store) Download(ctx context.Context, bucket, key, dst string) error {
	if err := requireLocation(bucket, key); err != nil {
		return err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return s.classify(err, bucket, key)
	}
	defer obj.Close()

	if err := writeAtomically(dst, obj); err != nil {
		return s.classify(err, bucket, key)
	}
	return nil
}

// Upload writes the local file src to bucket/key.
func (s *S3Store) Upload(ctx context.Context, bucket, key, src string) error {
	if err := requireLocation(bucket, key); err != nil {
		return err
	}
	_, err := s.client.FPutObject(ctx, bucket, key, src, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return s.classify(err, bucket, key)
	}
	return nil
}

// Close is a no-op; minio clients hold no resources.
func (s *S3Store) Close() error { return nil }

func (s *S3Store) classify(err error, bucket, key string) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket") {
		return errors.Wrapf(ErrObjectNotFound, "s3://%s/%s", bucket, key)
	}
	return errors.Wrapf(err, "s3://%s/%s", bucket, key)
}
