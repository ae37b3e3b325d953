package cachestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/MimeLyc/caption-pipeline/pkg/file"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

const (
	ArtifactName = "caption.vtt"
	lockSuffix   = ".lock"

	lockRetryDelay = 100 * time.Millisecond
)

// Store maps keys to caption files under a root directory.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("cache root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}
	return &Store{root: abs}, nil
}

func (s *Store) Root() string {
	return s.root
}

// ResolvePath returns the absolute artifact path for key. It does not touch
// the filesystem.
func (s *Store) ResolvePath(key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key.RelPath())), nil
}

func (s *Store) Exists(path string) bool {
	return file.Exists(path)
}

// Read returns the artifact for key. The bool is false when no artifact exists.
func (s *Store) Read(key Key) ([]byte, bool, error) {
	path, err := s.ResolvePath(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read artifact: %w", err)
	}
	return data, true, nil
}

// Write stores data at path atomically. Readers see either no file or the
// complete file.
func (s *Store) Write(path string, data []byte) error {
	if err := file.WriteAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}

// Lock takes an exclusive cross-process lock for key, waiting until it is
// available or ctx is done. The returned func releases it.
func (s *Store) Lock(ctx context.Context, key Key) (func(), error) {
	path, err := s.ResolvePath(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	lockPath := file.ReplaceExt(path, lockSuffix)

	for {
		lock := flock.New(lockPath)
		ok, err := lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("acquire lock for %s: %w", key, err)
		}
		if !ok {
			return nil, fmt.Errorf("acquire lock for %s: not acquired", key)
		}
		// SweepLocks may have unlinked the file we opened; a lock on an
		// orphaned inode excludes nobody.
		if !holdsLockFile(lock) {
			_ = lock.Unlock()
			continue
		}
		now := time.Now()
		_ = os.Chtimes(lockPath, now, now)

		return func() {
			if err := lock.Unlock(); err != nil {
				log.Warn("Failed to release lock for %s: %v", key, err)
			}
		}, nil
	}
}

func holdsLockFile(lock *flock.Flock) bool {
	held, err := lock.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(lock.Path())
	if err != nil {
		return false
	}
	return os.SameFile(held, onDisk)
}

// SweepLocks removes lock files not taken within maxAge. A lock held by a
// running acquisition is left alone.
func (s *Store) SweepLocks(maxAge time.Duration) (int, error) {
	stale, err := file.FindOlderThan(s.root, "*"+lockSuffix, time.Now().Add(-maxAge))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scan cache root: %w", err)
	}

	removed := 0
	for _, p := range stale {
		lock := flock.New(p)
		ok, err := lock.TryLock()
		if err != nil || !ok {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove stale lock %s: %v", p, err)
		} else {
			removed++
		}
		_ = lock.Unlock()
	}
	return removed, nil
}

// SweepTemp removes temp files left behind by interrupted writes that are
// older than maxAge. Finished artifacts are never touched.
func (s *Store) SweepTemp(maxAge time.Duration) (int, error) {
	stale, err := file.FindOlderThan(s.root, file.TempPattern, time.Now().Add(-maxAge))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scan cache root: %w", err)
	}

	removed := 0
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove stale temp file %s: %v", p, err)
			continue
		}
		removed++
	}
	return removed, nil
}
