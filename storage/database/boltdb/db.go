package boltrepos

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/soma/core"
)

var (
	subjectsBucket = []byte("subjects")
	notesBucket    = []byte("notes")
	quizzesBucket  = []byte("quizzes")
	progressBucket = []byte("progress")

	allBuckets = [][]byte{subjectsBucket, notesBucket, quizzesBucket, progressBucket}
)

// Open opens (or creates) the bolt database at path and makes sure all buckets exist.
func Open(path string) (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt database")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func getJSON[T any](b *bbolt.Bucket, key string) (T, bool, error) {
	var out T
	v := b.Get([]byte(key))
	if v == nil {
		return out, false, nil
	}
	if err := json.Unmarshal(v, &out); err != nil {
		return out, false, errors.Wrapf(err, "decoding %s", key)
	}
	return out, true, nil
}

func putJSON[T any](b *bbolt.Bucket, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return b.Put([]byte(key), data)
}

// listJSON decodes the values whose key starts with prefix and for which keep returns true.
func listJSON[T any](b *bbolt.Bucket, prefix string, keep func(T) bool) ([]T, error) {
	var results []T
	c := b.Cursor()
	p := []byte(prefix)
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		var out T
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", k)
		}
		if keep == nil || keep(out) {
			results = append(results, out)
		}
	}
	return results, nil
}

// comparator compares a and b on a single field: <0, 0 or >0.
type comparator[T any] func(a, b T) int

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// orderBy sorts items by the orderings, mimicking an SQL ORDER BY on the storage field names.
func orderBy[T any](items []T, ordering []core.DBOrdering, fields map[string]comparator[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			c := cmp(items[i], items[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}
