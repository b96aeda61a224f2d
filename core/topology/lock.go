package topology

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/juagargi/esdx-scion/core"
)

// DefaultLockAttempts and DefaultLockSleep are the constants named in
// §6: ten attempts, 0.1s apart.
const (
	DefaultLockAttempts = 10
	DefaultLockSleep    = 100 * time.Millisecond
)

// Lock is the file-scoped advisory lock of §4.8: a sibling file named
// ".lock.<basename>" guards exclusive access to a topology file across
// processes. Two Locks on distinct topology files are independent;
// two Locks on the same file serialize.
type Lock struct {
	path     string
	attempts int
	sleep    time.Duration
	fl       *flock.Flock
}

func lockSiblingPath(topoPath string) string {
	dir := filepath.Dir(topoPath)
	base := filepath.Base(topoPath)
	return filepath.Join(dir, ".lock."+base)
}

// NewLock builds a Lock for topoPath. attempts <= 0 and sleep <= 0
// fall back to DefaultLockAttempts/DefaultLockSleep.
func NewLock(topoPath string, attempts int, sleep time.Duration) *Lock {
	if attempts <= 0 {
		attempts = DefaultLockAttempts
	}
	if sleep <= 0 {
		sleep = DefaultLockSleep
	}
	return &Lock{path: lockSiblingPath(topoPath), attempts: attempts, sleep: sleep}
}

// Acquire blocks retrying up to l.attempts times, sleeping l.sleep
// between each, until the lock is held. Exhaustion is
// RESOURCE_EXHAUSTED (§7, scenario S6).
func (l *Lock) Acquire() error {
	l.fl = flock.New(l.path)
	for i := 0; i < l.attempts; i++ {
		ok, err := l.fl.TryLock()
		if err == nil && ok {
			return nil
		}
		if i < l.attempts-1 {
			time.Sleep(l.sleep)
		}
	}
	return core.NewError(core.KindResourceExhausted, fmt.Sprintf("could not acquire topology lock %s after %d attempts", l.path, l.attempts))
}

// Release unlocks and removes the sibling lock file when this Lock
// holds it, and does nothing otherwise. It is safe to call even if
// Acquire failed partway through.
func (l *Lock) Release() {
	if l.fl == nil || !l.fl.Locked() {
		return
	}
	l.fl.Unlock()
	os.Remove(l.path)
}

// WithLock runs fn while l is held, guaranteeing release on every exit
// path including a panic unwinding through fn.
func WithLock(l *Lock, fn func() error) error {
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
