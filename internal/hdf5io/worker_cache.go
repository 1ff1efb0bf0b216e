package hdf5io

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// WorkerCache mirrors dataset files onto worker-local storage.
type WorkerCache struct {
	root    string
	pattern string
	logger  *zap.Logger
}

// NewWorkerCache creates a WorkerCache rooted at dir.
func NewWorkerCache(dir, pattern string, logger *zap.Logger) *WorkerCache {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerCache{root: dir, pattern: pattern, logger: logger}
}

// Materialize copies every data_dir entry into the cache and returns the cached entries in the same order.
// Directory entries map to cache directories, file entries to cached files.
// Files whose size and modification time already match are not copied again.
func (w *WorkerCache) Materialize(dirs []string) ([]string, error) {
	out := make([]string, 0, len(dirs))

	for i, entry := range dirs {
		info, err := os.Stat(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to stat data_dir entry %s: %w", entry, err)
		}

		dst := filepath.Join(w.root, fmt.Sprintf("%03d-%s", i, filepath.Base(filepath.Clean(entry))))

		if !info.IsDir() {
			if err := w.copyIfStale(entry, dst); err != nil {
				return nil, err
			}
			out = append(out, dst)

			continue
		}

		matches, err := filepath.Glob(filepath.Join(entry, w.pattern))
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", w.pattern, err)
		}
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create worker cache dir %s: %w", dst, err)
		}
		copied := 0
		for _, m := range matches {
			if st, err := os.Stat(m); err != nil || st.IsDir() {
				continue
			}
			if err := w.copyIfStale(m, filepath.Join(dst, filepath.Base(m))); err != nil {
				return nil, err
			}
			copied++
		}
		w.logger.Info("Worker cache populated",
			zap.String("source", entry),
			zap.String("cacheDir", dst),
			zap.Int("files", copied))
		out = append(out, dst)
	}

	return out, nil
}

func (w *WorkerCache) copyIfStale(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if dstInfo, err := os.Stat(dst); err == nil &&
		dstInfo.Size() == srcInfo.Size() && dstInfo.ModTime().Equal(srcInfo.ModTime()) {
		w.logger.Debug("Worker cache hit", zap.String("file", dst))

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create worker cache dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", dst, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return err
	}
	if err := os.Chtimes(tmpName, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		os.Remove(tmpName)

		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("failed to move %s into worker cache: %w", dst, err)
	}

	return nil
}
