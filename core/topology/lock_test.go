package topology

import (
	"os"
	"testing"
	"time"

	"github.com/juagargi/esdx-scion/internal/testutil"
)

func TestLockAcquireRelease(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	defer sb.Cleanup()

	path := sb.Path("topo.json")
	l := NewLock(path, 3, 10*time.Millisecond)
	if err := l.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := os.Stat(lockSiblingPath(path)); err != nil {
		t.Fatalf("expected lock sibling file to exist: %v", err)
	}
	l.Release()
	if _, err := os.Stat(lockSiblingPath(path)); !os.IsNotExist(err) {
		t.Fatalf("expected lock sibling file to be removed after Release")
	}
}

func TestLockExclusion(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	defer sb.Cleanup()

	path := sb.Path("topo.json")
	first := NewLock(path, 3, 10*time.Millisecond)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.Release()

	second := NewLock(path, 2, 10*time.Millisecond)
	if err := second.Acquire(); err == nil {
		second.Release()
		t.Fatalf("expected second lock on the same file to fail while the first is held")
	}
}

func TestLockIndependentFiles(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	defer sb.Cleanup()

	first := NewLock(sb.Path("a.json"), 1, 10*time.Millisecond)
	second := NewLock(sb.Path("b.json"), 1, 10*time.Millisecond)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.Release()
	if err := second.Acquire(); err != nil {
		t.Fatalf("expected lock on a distinct file to succeed: %v", err)
	}
	second.Release()
}

func TestWithLockGuaranteesRelease(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	defer sb.Cleanup()

	path := sb.Path("topo.json")
	l := NewLock(path, 1, 10*time.Millisecond)
	err = WithLock(l, func() error {
		return os.ErrClosed
	})
	if err == nil {
		t.Fatalf("expected the wrapped function's error to propagate")
	}
	if _, statErr := os.Stat(lockSiblingPath(path)); !os.IsNotExist(statErr) {
		t.Fatalf("expected lock to be released even when fn returns an error")
	}
}
