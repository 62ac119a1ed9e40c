package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// BlobStore is a flat key/value object store. Keys always use forward slashes.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Location is a resolved object address: a store plus the key inside it.
type Location struct {
	Store BlobStore
	Key   string
	URL   string
}

// Options tunes how Open builds remote stores.
type Options struct {
	Endpoint  string
	Region    string
	PathStyle bool
}

// Option mutates Options.
type Option func(*Options)

// WithEndpoint points S3 URLs at a custom endpoint such as LocalStack or MinIO.
// Custom endpoints imply path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.Endpoint = endpoint
		if endpoint != "" {
			o.PathStyle = true
		}
	}
}

func WithRegion(region string) Option {
	return func(o *Options) { o.Region = region }
}

// Open resolves rawURL into a store and key. s3://bucket/key addresses an
// object in S3; file:// URLs and bare paths address the local filesystem,
// rooted at the parent directory of the path.
func Open(ctx context.Context, rawURL string, opts ...Option) (*Location, error) {
	if rawURL == "" {
		return nil, errors.New("storage: empty location")
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	if strings.HasPrefix(rawURL, "s3://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("storage: parse %q: %w", rawURL, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("storage: %q must name a bucket and a key", rawURL)
		}
		store, err := NewS3StoreFromEnv(ctx, u.Host, o)
		if err != nil {
			return nil, err
		}
		return &Location{Store: store, Key: key, URL: rawURL}, nil
	}

	path := strings.TrimPrefix(rawURL, "file://")
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve %q: %w", rawURL, err)
	}
	return &Location{
		Store: NewLocalStore(filepath.Dir(abs)),
		Key:   filepath.Base(abs),
		URL:   rawURL,
	}, nil
}

// Write stores data at the location.
func (l *Location) Write(ctx context.Context, data []byte) error {
	if err := l.Store.Put(ctx, l.Key, data); err != nil {
		return fmt.Errorf("write %s: %w", l.URL, err)
	}
	return nil
}

// Read fetches the object at the location.
func (l *Location) Read(ctx context.Context) ([]byte, error) {
	data, err := l.Store.Get(ctx, l.Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.URL, err)
	}
	return data, nil
}

// WriteURL is Open followed by Write.
func WriteURL(ctx context.Context, rawURL string, data []byte, opts ...Option) error {
	loc, err := Open(ctx, rawURL, opts...)
	if err != nil {
		return err
	}
	return loc.Write(ctx, data)
}

// ReadURL is Open followed by Read.
func ReadURL(ctx context.Context, rawURL string, opts ...Option) ([]byte, error) {
	loc, err := Open(ctx, rawURL, opts...)
	if err != nil {
		return nil, err
	}
	return loc.Read(ctx)
}
