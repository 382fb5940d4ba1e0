// utils/file.go
package utils

import (
	"os"
	"path/filepath"
	"time"
)

// EnsureDir creates the directory if it doesn't exist
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, os.ModePerm)
}

// RemoveOlderThan deletes regular files in dir last modified before now-maxAge.
// A missing directory is not an error.
func RemoveOlderThan(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
