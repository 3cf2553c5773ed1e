package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var seenBucket = []byte("seen_urls")

// SeenTracker remembers article URLs already processed in a run, so a
// link syndicated by several feeds is only ingested once. The bucket is
// reset at the start of every run.
type SeenTracker struct {
	db *bolt.DB
}

func NewSeenTracker(dbPath string) (*SeenTracker, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for seen db: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open seen db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(seenBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &SeenTracker{db: db}, nil
}

// Reset drops and recreates the bucket.
func (t *SeenTracker) Reset() error {
	return t.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(seenBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(seenBucket)
		return err
	})
}

func (t *SeenTracker) Seen(url string) (bool, error) {
	var seen bool
	err := t.db.View(func(tx *bolt.Tx) error {
		seen = tx.Bucket(seenBucket).Get([]byte(url)) != nil
		return nil
	})
	return seen, err
}

func (t *SeenTracker) MarkSeen(url string) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(seenBucket).Put([]byte(url), []byte("1"))
	})
}

func (t *SeenTracker) Close() error {
	return t.db.Close()
}
