package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrlokans/cookbook/internal/metrics"
)

const tempPrefix = "upload_tmp_"

// LocalStorage keeps uploads under a directory on disk, one subdirectory
// per kind.
type LocalStorage struct {
	dir string
	now func() time.Time
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates the upload directories if needed.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	for _, kind := range Kinds {
		if err := os.MkdirAll(filepath.Join(dir, string(kind)), 0755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &LocalStorage{dir: dir, now: time.Now}, nil
}

// Dir returns the root upload directory.
func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Save(ctx context.Context, kind Kind, original string, r io.Reader) (string, error) {
	if !validKind(kind) {
		return "", fmt.Errorf("unknown upload kind %q", kind)
	}
	ext, err := Extension(original)
	if err != nil {
		return "", err
	}

	kindDir := filepath.Join(s.dir, string(kind))
	name := GenerateName(kind, ext, s.now())

	// Create temp file in same directory for atomic write
	tmpFile, err := os.CreateTemp(kindDir, tempPrefix)
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, filepath.Join(kindDir, name)); err != nil {
		return "", err
	}

	metrics.UploadsStoredTotal.WithLabelValues(string(kind)).Inc()
	return BuildURL(URLPrefix, kind, name), nil
}

func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	kind, name, err := ParseURL(url)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, string(kind), name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) List(ctx context.Context, kind Kind) ([]File, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, string(kind)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		created, ok := NameTime(entry.Name())
		if !ok {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			created = info.ModTime()
		}
		files = append(files, File{
			Kind:      kind,
			Name:      entry.Name(),
			URL:       BuildURL(URLPrefix, kind, entry.Name()),
			CreatedAt: created,
		})
	}
	return files, nil
}
