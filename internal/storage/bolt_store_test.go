package storage

import (
	"testing"
	"time"
)

func TestBoltStoreMarksAndExpiresKeys(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		KeyTTL:          1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/seen.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	seen, err := store.Seen("1234abcd1234abcd1234abcd1234abcd")
	if err != nil || seen {
		t.Fatalf("expected unseen key, seen=%v err=%v", seen, err)
	}

	if err := store.Mark("1234abcd1234abcd1234abcd1234abcd"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	seen, err = store.Seen("1234abcd1234abcd1234abcd1234abcd")
	if err != nil || !seen {
		t.Fatalf("expected key marked as seen, got seen=%v err=%v", seen, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = store.Seen("1234abcd1234abcd1234abcd1234abcd")
	if err != nil {
		t.Fatalf("Seen after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Mark("x"); err != nil {
		t.Fatalf("noop store Mark: %v", err)
	}
	seen, err := store.Seen("x")
	if err != nil || seen {
		t.Fatalf("noop store must never remember keys, seen=%v err=%v", seen, err)
	}
}
