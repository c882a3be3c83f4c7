package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	lockFileName      = "index.lock"
	lockRetryInterval = 25 * time.Millisecond
	// lockStaleAfter bounds how long a crashed process can hold the advisory
	// lock before another process reclaims it.
	lockStaleAfter = 30 * time.Second
)

// slugLocks serializes index updates per slug inside a single process. The
// lockfile handles cross-process exclusion; this handles goroutines.
type slugLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newSlugLocks() *slugLocks {
	return &slugLocks{m: make(map[string]*sync.Mutex)}
}

func (l *slugLocks) get(slug string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.m[slug]; !ok {
		l.m[slug] = &sync.Mutex{}
	}
	return l.m[slug]
}

// lockSlug acquires the advisory lock for a slug directory: first the
// in-process mutex, then an exclusive lockfile. The returned release func
// must be called exactly once. ctx bounds the wait.
func (s *Store) lockSlug(ctx context.Context, slug string) (func(), error) {
	mu := s.locks.get(slug)
	mu.Lock()

	dir := s.slugDir(slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("create slug directory: %w", err)
	}

	path := filepath.Join(dir, lockFileName)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "pid=%d acquired=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			f.Close()
			return func() {
				os.Remove(path)
				mu.Unlock()
			}, nil
		}
		if !os.IsExist(err) {
			mu.Unlock()
			return nil, fmt.Errorf("create lockfile: %w", err)
		}

		// Reclaim locks left behind by a crashed process.
		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			os.Remove(path)
			continue
		}

		select {
		case <-ctx.Done():
			mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrIndexLocked, slug)
		case <-time.After(lockRetryInterval):
		}
	}
}
