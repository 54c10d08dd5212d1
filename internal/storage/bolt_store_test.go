package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/sharecount/internal/domain"
)

func openTestStore(t *testing.T, opts Options) *boltStore {
	t.Helper()
	raw, err := openBolt(filepath.Join(t.TempDir(), "data", "published.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := raw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreSavesAndExpiresRecords(t *testing.T) {
	store := openTestStore(t, Options{RecordTTL: time.Minute, CleanupInterval: time.Hour})
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	if _, found, err := store.LastPublished("launch"); err != nil || found {
		t.Fatalf("expected no record, found=%v err=%v", found, err)
	}

	rec := domain.Published{ResolvedURL: "https://example.com/a", Counts: map[string]int64{"twitter": 5}}
	if err := store.SavePublished("launch", rec); err != nil {
		t.Fatalf("SavePublished: %v", err)
	}

	got, found, err := store.LastPublished("launch")
	if err != nil || !found {
		t.Fatalf("expected saved record, found=%v err=%v", found, err)
	}
	if got.ResolvedURL != rec.ResolvedURL || got.Counts["twitter"] != 5 {
		t.Fatalf("unexpected record %+v", got)
	}
	if !got.PublishedAt.Equal(clock) {
		t.Fatalf("expected record stamped at %v, got %v", clock, got.PublishedAt)
	}

	clock = clock.Add(2 * time.Minute)
	if _, found, err := store.LastPublished("launch"); err != nil || found {
		t.Fatalf("expected record to expire, found=%v err=%v", found, err)
	}
}

func TestBoltStoreKeepsOneRecordPerTarget(t *testing.T) {
	store := openTestStore(t, Options{})

	for _, n := range []int64{1, 2, 3} {
		rec := domain.Published{Counts: map[string]int64{"twitter": n}}
		if err := store.SavePublished("launch", rec); err != nil {
			t.Fatalf("SavePublished %d: %v", n, err)
		}
	}
	if n, _ := store.count(); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}

	got, _, err := store.LastPublished("launch")
	if err != nil || got.Counts["twitter"] != 3 {
		t.Fatalf("expected latest counts, got %+v err=%v", got, err)
	}
}

func TestBoltStoreSweepsExpiredRecords(t *testing.T) {
	store := openTestStore(t, Options{RecordTTL: time.Minute, CleanupInterval: time.Hour})
	clock := time.Now()
	store.now = func() time.Time { return clock }

	for _, id := range []string{"a", "b", "c"} {
		if err := store.SavePublished(id, domain.Published{}); err != nil {
			t.Fatalf("SavePublished %s: %v", id, err)
		}
	}
	if n, _ := store.count(); n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}

	clock = clock.Add(2 * time.Hour)
	if err := store.SavePublished("d", domain.Published{}); err != nil {
		t.Fatalf("SavePublished d: %v", err)
	}
	if n, _ := store.count(); n != 1 {
		t.Fatalf("expected sweep to leave 1 record, got %d", n)
	}
}

func TestBoltStoreDropsUnreadableRecords(t *testing.T) {
	store := openTestStore(t, Options{})
	if err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(publishedBucket)).Put([]byte("launch"), []byte("not json"))
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, found, err := store.LastPublished("launch"); err != nil || found {
		t.Fatalf("expected unreadable record to be ignored, found=%v err=%v", found, err)
	}
	if n, _ := store.count(); n != 0 {
		t.Fatalf("expected unreadable record to be deleted, got %d", n)
	}
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "published.db")
	store, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.SavePublished("launch", domain.Published{Counts: map[string]int64{"linkedin": 8}}); err != nil {
		t.Fatalf("SavePublished: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore("BBolt ", path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, found, err := reopened.LastPublished("launch")
	if err != nil || !found || got.Counts["linkedin"] != 8 {
		t.Fatalf("expected persisted record, got %+v found=%v err=%v", got, found, err)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SavePublished("x", domain.Published{}); err != nil {
		t.Fatalf("noop store SavePublished: %v", err)
	}
	if _, found, _ := store.LastPublished("x"); found {
		t.Fatalf("noop store should never report a record")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatal("expected error for empty bbolt path")
	}
}
