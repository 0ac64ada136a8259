package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/oteto/gonkey-playground/internal/helpers"
)

// FromBytes serves an artifact already held in memory, such as an embedded module.
type FromBytes struct {
	content   []byte
	sourceURL *url.URL
}

func NewFromBytes(content []byte) (*FromBytes, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: content is empty", ErrArtifactNotAvailable)
	}

	return &FromBytes{
		content: content,
		sourceURL: &url.URL{
			Scheme: "bytes",
			Host:   "inline",
			Path:   "/" + helpers.SHA256Bytes(content)[:8],
		},
	}, nil
}

func (l *FromBytes) String() string {
	return fmt.Sprintf("loader.FromBytes{Bytes: %d}", len(l.content))
}

func (l *FromBytes) GetReader(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(l.content)), nil
}

func (l *FromBytes) GetSourceURL() *url.URL {
	return l.sourceURL
}
