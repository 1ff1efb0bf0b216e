// Package hdf5io discovers, reads and buffers HDF5 image/label examples.
package hdf5io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNoFiles is returned when discovery finds no dataset files.
var ErrNoFiles = errors.New("no dataset files found")

// Discover expands every entry of dirs into the dataset files it names.
// A directory contributes the files directly inside it that match pattern; a file is taken as is.
// The result is deduplicated and sorted so every streamer sees the same order.
func Discover(dirs []string, pattern string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, entry := range dirs {
		info, err := os.Stat(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to stat data_dir entry %s: %w", entry, err)
		}

		var matches []string
		if info.IsDir() {
			matches, err = filepath.Glob(filepath.Join(entry, pattern))
			if err != nil {
				return nil, fmt.Errorf("bad file pattern %q: %w", pattern, err)
			}
		} else {
			matches = []string{entry}
		}

		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				return nil, err
			}
			if st, err := os.Stat(abs); err != nil || st.IsDir() {
				continue
			}
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}
			files = append(files, abs)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v (pattern %q)", ErrNoFiles, dirs, pattern)
	}

	sort.Strings(files)

	return files, nil
}
