// Package objectstore lists and fetches files from S3 buckets or local
// directories behind one interface.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a flat key space of files.
type Store interface {
	// List returns the keys under prefix sorted by name.
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Download copies the object at key into a local file, creating its directory.
func Download(ctx context.Context, s Store, key, dest string) error {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	return f.Close()
}

// URI is a parsed "s3://bucket/prefix" or local path location.
type URI struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseURI splits an s3:// URI into bucket and key. Anything else is treated
// as a local path with an empty scheme.
func ParseURI(raw string) (URI, error) {
	if !strings.Contains(raw, "://") {
		return URI{Key: raw}, nil
	}
	scheme, rest, _ := strings.Cut(raw, "://")
	scheme = strings.ToLower(scheme)
	if scheme == "file" {
		return URI{Key: rest}, nil
	}
	if scheme != "s3" {
		return URI{}, fmt.Errorf("unsupported scheme %q in %s", scheme, raw)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return URI{}, fmt.Errorf("missing bucket in %s", raw)
	}
	return URI{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

func (u URI) String() string {
	if u.Scheme == "" {
		return u.Key
	}
	return u.Scheme + "://" + u.Bucket + "/" + u.Key
}

// Join appends elements to the key, keeping a trailing slash when the last
// element has one.
func (u URI) Join(elem ...string) URI {
	trailing := len(elem) > 0 && strings.HasSuffix(elem[len(elem)-1], "/")
	parts := append([]string{u.Key}, elem...)
	if u.Scheme == "" {
		u.Key = filepath.Join(parts...)
	} else {
		u.Key = strings.TrimPrefix(path.Join(parts...), "/")
	}
	if trailing {
		u.Key += "/"
	}
	return u
}

// LocalStore serves keys relative to a root directory. With an empty root
// keys are plain file system paths.
type LocalStore struct {
	Root string
}

// List returns every file below prefix. A prefix naming a directory lists
// the whole tree under it. Keys use forward slashes.
func (s LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	full := filepath.Join(s.Root, filepath.FromSlash(prefix))
	dir := full
	if info, err := os.Stat(full); err != nil || !info.IsDir() {
		dir = filepath.Dir(full)
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var keys []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(p, full) {
			return nil
		}
		key := p
		if s.Root != "" {
			if key, err = filepath.Rel(s.Root, p); err != nil {
				return err
			}
		}
		keys = append(keys, filepath.ToSlash(key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}
