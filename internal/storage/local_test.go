package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	tests := []struct {
		in   string
		want string
	}{
		{"cat.png", "1700000000123-cat.png"},
		{"../../etc/passwd", "1700000000123-passwd"},
		{`C:\Users\bob\clip.mp4`, "1700000000123-clip.mp4"},
		{"", "1700000000123-file"},
		{"..", "1700000000123-file"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName(at, tt.in))
		})
	}
}

func newTestLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(42) }
	return s
}

func TestLocalStorage_SaveAndOpen(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	ref, err := s.Save(ctx, "photo.jpg", strings.NewReader("jpeg-bytes"), 10)
	require.NoError(t, err)
	assert.Equal(t, "uploads/42-photo.jpg", ref)

	rc, err := s.Open(ctx, strings.TrimPrefix(ref, PublicPrefix))
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalStorage_SaveSameMillisecond(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "a.png", strings.NewReader("one"), 3)
	require.NoError(t, err)
	second, err := s.Save(ctx, "a.png", strings.NewReader("two"), 3)
	require.NoError(t, err)

	assert.Equal(t, "uploads/42-a.png", first)
	assert.Equal(t, "uploads/43-a.png", second)

	data, err := os.ReadFile(filepath.Join(s.dir, "42-a.png"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestLocalStorage_SaveStripsDirectories(t *testing.T) {
	s := newTestLocal(t)

	ref, err := s.Save(context.Background(), "../../escape.txt", strings.NewReader("x"), 1)
	require.NoError(t, err)
	assert.Equal(t, "uploads/42-escape.txt", ref)

	_, err = os.Stat(filepath.Join(s.dir, "42-escape.txt"))
	assert.NoError(t, err)
}

func TestLocalStorage_OpenMissing(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	for _, name := range []string{"nope.png", "", "..", "../secret", "a/b"} {
		_, err := s.Open(ctx, name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}

func TestLocalStorage_Delete(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	ref, err := s.Save(ctx, "gone.png", strings.NewReader("x"), -1)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, ref))
	_, err = s.Open(ctx, "42-gone.png")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again, or a reference this store never issued, is a no-op.
	assert.NoError(t, s.Delete(ctx, ref))
	assert.NoError(t, s.Delete(ctx, "https://cdn.forum.test/a.png"))
	assert.NoError(t, s.Delete(ctx, "uploads/../config.yml"))
}

func TestNameFromReference(t *testing.T) {
	name, ok := NameFromReference("uploads/42-a.png")
	assert.True(t, ok)
	assert.Equal(t, "42-a.png", name)

	for _, ref := range []string{"42-a.png", "uploads/", "uploads/../x", "uploads/a/b"} {
		_, ok := NameFromReference(ref)
		assert.False(t, ok, ref)
	}
}

func TestNew(t *testing.T) {
	fs, err := New(context.Background(), Options{Backend: "local", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "local", fs.Backend())

	_, err = New(context.Background(), Options{Backend: "ftp"})
	assert.Error(t, err)
}
