// Package loader fetches the bootstrap artifacts: the interpreter module and its glue manifest.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// DefaultMaxSize bounds how much ReadAll will accept from a single artifact.
const DefaultMaxSize int64 = 64 << 20

// Loader opens an artifact for reading.
type Loader interface {
	GetReader(ctx context.Context) (io.ReadCloser, error)
	GetSourceURL() *url.URL
}

// ReadAll reads the whole artifact from l, failing if it is empty or larger than maxSize.
// A maxSize of zero or less uses DefaultMaxSize.
func ReadAll(ctx context.Context, l Loader, maxSize int64) ([]byte, error) {
	if l == nil {
		return nil, ErrLoaderNil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	r, err := l.GetReader(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.GetSourceURL(), err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrArtifactTooLarge, l.GetSourceURL(), maxSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrArtifactNotAvailable, l.GetSourceURL())
	}
	return data, nil
}
