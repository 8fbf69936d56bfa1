// Package storage persists uploaded media and serves it back by reference.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

// PublicPrefix is prepended to object names to form media references.
const PublicPrefix = "uploads/"

// ErrNotFound is returned by Open for unknown or malformed object names.
var ErrNotFound = errors.New("media not found")

// FileStorage stores uploaded bytes verbatim. Save returns the media
// reference to embed in posts and comments; size is the byte length of r,
// or -1 when unknown. Delete takes a reference returned by Save and ignores
// references that no longer exist.
type FileStorage interface {
	Save(ctx context.Context, originalName string, r io.Reader, size int64) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
	Backend() string
}

// ObjectName returns "<unixMillis>-<base name>" for an upload received at now.
// Directory components in originalName are dropped.
func ObjectName(now time.Time, originalName string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + baseName(originalName)
}

// Reference turns an object name into the stored media reference.
func Reference(name string) string {
	return PublicPrefix + name
}

// NameFromReference returns the object name inside a media reference.
func NameFromReference(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, PublicPrefix)
	if !ok || !validName(name) {
		return "", false
	}
	return name, true
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." || base == "" {
		return "file"
	}
	return base
}

// validName rejects names that could address anything outside the store.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\") && !strings.Contains(name, "\x00")
}

// Options selects and configures a backend.
type Options struct {
	Backend  string
	LocalDir string
	S3       S3Config
}

// New returns the backend named by opts.Backend ("local" or "s3").
func New(ctx context.Context, opts Options) (FileStorage, error) {
	switch opts.Backend {
	case "", "local":
		return NewLocalStorage(opts.LocalDir)
	case "s3":
		return NewS3Storage(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", opts.Backend)
	}
}
