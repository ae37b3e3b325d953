package file

import (
	"io/fs"
	"path/filepath"
	"time"
)

// FindOlderThan walks dir and returns regular files whose base name matches
// pattern and whose modification time is before cutoff.
func FindOlderThan(dir, pattern string, cutoff time.Time) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(pattern, d.Name())
		if err != nil || !ok {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			matches = append(matches, path)
		}
		return nil
	})

	return matches, err
}
