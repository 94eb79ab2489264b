package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// fileEntry is one regular file found by scanDir.
type fileEntry struct {
	path    string
	size    int64
	modTime time.Time
}

// scanDir enumerates the regular files under root with their sizes and
// modification times. A missing root counts as empty.
func scanDir(root string) ([]fileEntry, int64, error) {
	var files []fileEntry
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, fileEntry{path: path, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// pruneFiles deletes files oldest-mtime first until total is at or below
// target. Ties break on path order so the result is deterministic.
func pruneFiles(files []fileEntry, total, target int64) (freed, remaining int64, err error) {
	remaining = total
	if remaining <= target {
		return 0, remaining, nil
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		if remaining <= target {
			break
		}
		if err := os.Remove(f.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return freed, remaining, err
		}
		remaining -= f.size
		freed += f.size
	}
	return freed, remaining, nil
}
