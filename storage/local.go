package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// LocalStore keeps each bucket as a directory under root. It stands in
// for a real object store in tests and offline runs.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local store rooted at root.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.NewValidationError("local_root", "must not be empty", root)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) objectPath(bucket, key string) (string, error) {
	if err := requireLocation(bucket, key); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NewValidationError("key", "escapes the store root", key)
	}
	return p, nil
}

// Download copies root/bucket/key to dst.
func (s *LocalStore) Download(ctx context.Context, bucket, key, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrObjectNotFound, "%s/%s", bucket, key)
		}
		return errors.Wrapf(err, "failed to open %s/%s", bucket, key)
	}
	defer f.Close()
	return writeAtomically(dst, f)
}

// Upload copies src to root/bucket/key, creating directories.
func (s *LocalStore) Upload(ctx context.Context, bucket, key, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer f.Close()
	return writeAtomically(dst, f)
}

// Close is a no-op.
func (s *LocalStore) Close() error { return nil }
