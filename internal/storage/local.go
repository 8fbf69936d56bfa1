package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"forum/internal/observability"
)

const maxNameCollisions = 100

// LocalStorage keeps media in a directory on disk.
type LocalStorage struct {
	dir string
	now func() time.Time
}

// NewLocalStorage creates dir if needed.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %q: %w", dir, err)
	}
	return &LocalStorage{dir: dir, now: time.Now}, nil
}

func (s *LocalStorage) Backend() string { return "local" }

// Save writes r under a fresh object name. A name already taken in the same
// millisecond is retried with the next millisecond.
func (s *LocalStorage) Save(ctx context.Context, originalName string, r io.Reader, _ int64) (string, error) {
	now := s.now()
	for i := 0; i < maxNameCollisions; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		name := ObjectName(now.Add(time.Duration(i)*time.Millisecond), originalName)
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", name, err)
		}

		n, copyErr := io.Copy(f, r)
		closeErr := f.Close()
		if copyErr != nil || closeErr != nil {
			_ = os.Remove(f.Name())
			return "", fmt.Errorf("failed to write %s: %w", name, errors.Join(copyErr, closeErr))
		}

		observability.RecordUpload(s.Backend(), n)
		return Reference(name), nil
	}
	return "", fmt.Errorf("no free object name for %q", originalName)
}

func (s *LocalStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes the file behind ref. Unknown references are not an error.
func (s *LocalStorage) Delete(_ context.Context, ref string) error {
	name, ok := NameFromReference(ref)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
