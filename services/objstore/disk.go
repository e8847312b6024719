package objstore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
)

var errInvalidKey = errors.New("invalid object key")

// DiskStore keeps files under a local directory, served by the API at baseURL.
type DiskStore struct {
	root    string
	baseURL string
}

var _ core.ObjectStore = (*DiskStore)(nil)

func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", root)
	}
	return &DiskStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory files are stored in.
func (s *DiskStore) Root() string {
	return s.root
}

// filePath maps key to a path inside root, rejecting keys that would escape it.
func (s *DiskStore) filePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", errors.Wrap(errInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *DiskStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	fp, err := s.filePath(key)
	if err != nil {
		return "", err
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrapf(err, "creating directory for %s", key)
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", key)
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrapf(err, "writing %s", key)
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(fp)
		return "", errors.Wrapf(err, "closing %s", key)
	}
	return s.baseURL + "/" + key, nil
}

func (s *DiskStore) Delete(_ context.Context, key string) error {
	fp, err := s.filePath(key)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "deleting %s", key)
	}
	return nil
}
