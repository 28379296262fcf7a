package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/gofrs/flock"
)

// Locker serializes reconciliations per playlist.
//
// A lock is held both in-process and as an flock on {dir}/{playlistID}.lock, so a second
// process applying to the same playlist fails fast instead of racing on the stored snapshot.
type Locker struct {
	dir  string
	mu   sync.Mutex
	held map[string]*flock.Flock
}

// NewLocker creates a Locker that keeps lock files in dir.
func NewLocker(dir string) *Locker {
	return &Locker{dir: dir, held: make(map[string]*flock.Flock)}
}

// TryLock acquires the lock for playlistID without waiting.
//
// Returns [shared.ErrLocked] if the playlist is already locked by this or another process.
// The returned function releases the lock and is safe to call more than once.
func (l *Locker) TryLock(playlistID string) (func(), error) {
	if playlistID == "" || filepath.Base(playlistID) != playlistID {
		return nil, fmt.Errorf("%w: invalid playlist id %q", shared.ErrInvalidArgument, playlistID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[playlistID]; ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrLocked, playlistID)
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(filepath.Join(l.dir, playlistID+".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrLocked, playlistID)
	}

	l.held[playlistID] = fl

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, playlistID)
			l.mu.Unlock()
			_ = fl.Unlock()
		})
	}, nil
}
