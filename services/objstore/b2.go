package objstore

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
)

// B2Store keeps files in a Backblaze B2 bucket.
type B2Store struct {
	bucket *b2.Bucket
}

var _ core.ObjectStore = (*B2Store)(nil)

func NewB2Store(ctx context.Context, keyID, appKey, bucketName string) (*B2Store, error) {
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrapf(err, "getting bucket %q", bucketName)
	}
	return &B2Store{bucket: bucket}, nil
}

func (s *B2Store) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	obj := s.bucket.Object(key)
	w := obj.NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "writing object %s", key)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "closing object %s", key)
	}
	return obj.URL(), nil
}

func (s *B2Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return errors.Wrapf(err, "deleting object %s", key)
	}
	return nil
}
