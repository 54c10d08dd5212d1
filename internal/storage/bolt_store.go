package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/sharecount/internal/domain"
)

const publishedBucket = "published"

var errBucketMissing = fmt.Errorf("%s bucket missing", publishedBucket)

// boltStore keeps one JSON-encoded domain.Published per target ID.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	recordTTL       time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(publishedBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		recordTTL:       opts.RecordTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// LastPublished returns the record saved for targetID. Expired or unreadable
// records are dropped and reported as absent.
func (b *boltStore) LastPublished(targetID string) (domain.Published, bool, error) {
	if b == nil || b.db == nil {
		return domain.Published{}, false, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return domain.Published{}, false, err
	}

	var (
		rec   domain.Published
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(publishedBucket))
		if bucket == nil {
			return errBucketMissing
		}

		key := []byte(targetID)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		decoded, ok := decodeRecord(value)
		if !ok || b.expired(decoded, now) {
			return bucket.Delete(key)
		}

		rec, found = decoded, true
		return nil
	})
	return rec, found, err
}

// SavePublished stores rec for targetID, stamped with the current time.
func (b *boltStore) SavePublished(targetID string, rec domain.Published) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	rec.PublishedAt = now.UTC()
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record for %s: %w", targetID, err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(publishedBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(targetID), value)
	})
}

func (b *boltStore) expired(rec domain.Published, now time.Time) bool {
	return !rec.PublishedAt.Add(b.recordTTL).After(now)
}

// maybeCleanupExpired drops expired records at most once per cleanup interval.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(publishedBucket))
		if bucket == nil {
			return errBucketMissing
		}

		var stale [][]byte
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			rec, ok := decodeRecord(v)
			if !ok || b.expired(rec, now) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func (b *boltStore) count() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(publishedBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func decodeRecord(value []byte) (domain.Published, bool) {
	var rec domain.Published
	if err := json.Unmarshal(value, &rec); err != nil || rec.PublishedAt.IsZero() {
		return domain.Published{}, false
	}
	return rec, true
}
