package core

import "testing"

func TestTxCommitConflict(t *testing.T) {
	store := NewMemStore()

	tx1 := store.Begin()
	tx2 := store.Begin()

	tx1.Put("k", []byte("v1"))
	if err := tx1.Commit(); err != nil {
		t.Fatalf("tx1 commit: %v", err)
	}

	tx2.Put("k", []byte("v2"))
	err := tx2.Commit()
	if err == nil {
		t.Fatalf("expected tx2 commit to conflict")
	}
	if ErrKind(err) != KindConflict {
		t.Fatalf("expected KindConflict, got %v", ErrKind(err))
	}

	tx3 := store.Begin()
	v, ok := tx3.Get("k")
	if !ok || string(v) != "v1" {
		t.Fatalf("expected committed value v1, got %q ok=%v", v, ok)
	}
}

func TestTxIterateSeesOwnWritesAndDeletes(t *testing.T) {
	store := NewMemStore()
	tx := store.Begin()
	tx.Put("a:1", []byte("x"))
	tx.Put("a:2", []byte("y"))
	tx.Put("b:1", []byte("z"))

	var seen []string
	tx.Iterate("a:", func(key string, value []byte) bool {
		seen = append(seen, key)
		return true
	})
	if len(seen) != 2 || seen[0] != "a:1" || seen[1] != "a:2" {
		t.Fatalf("unexpected iteration result: %v", seen)
	}

	tx.Delete("a:1")
	seen = nil
	tx.Iterate("a:", func(key string, value []byte) bool {
		seen = append(seen, key)
		return true
	})
	if len(seen) != 1 || seen[0] != "a:2" {
		t.Fatalf("expected deleted key to be excluded: %v", seen)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewMemStore()
	tx := store.Begin()
	tx.Put("k1", []byte("v1"))
	tx.Put("k2", []byte("v2"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	snap := store.Snapshot()
	restored := NewMemStoreFromSnapshot(snap)

	rtx := restored.Begin()
	v1, ok := rtx.Get("k1")
	if !ok || string(v1) != "v1" {
		t.Fatalf("k1 = %q ok=%v", v1, ok)
	}
	v2, ok := rtx.Get("k2")
	if !ok || string(v2) != "v2" {
		t.Fatalf("k2 = %q ok=%v", v2, ok)
	}

	// mutating the map returned by Snapshot must not reach back into
	// the store, and NewMemStoreFromSnapshot must not alias it either.
	snap["k1"] = []byte("tampered")
	v1Again, _ := store.Begin().Get("k1")
	if string(v1Again) != "v1" {
		t.Fatalf("mutating the snapshot map affected the live store: %q", v1Again)
	}
	v1Restored, _ := restored.Begin().Get("k1")
	if string(v1Restored) != "v1" {
		t.Fatalf("mutating the snapshot map affected the restored store: %q", v1Restored)
	}
}
