package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrNoS3 is returned for s3:// URIs when the resolver has no S3 client.
var ErrNoS3 = errors.New("no S3 client configured")

// Resolver maps URIs to stores. Local paths go to a LocalStore rooted at the
// working directory, s3:// URIs to one store per bucket.
type Resolver struct {
	newBucket func(bucket string) Store

	mu      sync.Mutex
	buckets map[string]Store
}

// NewResolver returns a resolver. newBucket may be nil when only local paths
// are used.
func NewResolver(newBucket func(bucket string) Store) *Resolver {
	return &Resolver{newBucket: newBucket, buckets: map[string]Store{}}
}

// NewS3Resolver resolves s3:// URIs with a shared S3 client.
func NewS3Resolver(client S3API) *Resolver {
	return NewResolver(func(bucket string) Store { return NewS3Store(client, bucket) })
}

// Locate returns the store holding uri and the key inside it.
func (r *Resolver) Locate(raw string) (Store, URI, error) {
	u, err := ParseURI(raw)
	if err != nil {
		return nil, URI{}, err
	}
	if u.Scheme == "" {
		return LocalStore{}, u, nil
	}
	if r.newBucket == nil {
		return nil, URI{}, fmt.Errorf("%w for %s", ErrNoS3, raw)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.buckets[u.Bucket]
	if !ok {
		s = r.newBucket(u.Bucket)
		r.buckets[u.Bucket] = s
	}
	return s, u, nil
}

// List returns the full URIs of every object under the uri prefix.
func (r *Resolver) List(ctx context.Context, raw string) ([]string, error) {
	s, u, err := r.Locate(raw)
	if err != nil {
		return nil, err
	}
	keys, err := s.List(ctx, u.Key)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = URI{Scheme: u.Scheme, Bucket: u.Bucket, Key: k}.String()
	}
	return out, nil
}

// Open opens the object at uri.
func (r *Resolver) Open(ctx context.Context, raw string) (io.ReadCloser, error) {
	s, u, err := r.Locate(raw)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, u.Key)
}

// Download copies the object at uri to dest.
func (r *Resolver) Download(ctx context.Context, raw, dest string) error {
	s, u, err := r.Locate(raw)
	if err != nil {
		return err
	}
	return Download(ctx, s, u.Key, dest)
}
