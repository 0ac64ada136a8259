package loader

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytes(t *testing.T) {
	t.Parallel()

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		l, err := NewFromBytes(nil)
		require.ErrorIs(t, err, ErrArtifactNotAvailable)
		require.Nil(t, l)
	})

	t.Run("binary content", func(t *testing.T) {
		t.Parallel()
		wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
		l, err := NewFromBytes(wasm)
		require.NoError(t, err)

		u := l.GetSourceURL()
		assert.Equal(t, "bytes", u.Scheme)
		assert.Equal(t, "inline", u.Host)
		assert.Len(t, u.Path, 9)
		assert.Equal(t, "loader.FromBytes{Bytes: 8}", l.String())

		r, err := l.GetReader(context.Background())
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, wasm, got)
	})

	t.Run("same content same url", func(t *testing.T) {
		t.Parallel()
		a, err := NewFromBytes([]byte("abc"))
		require.NoError(t, err)
		b, err := NewFromBytes([]byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, a.GetSourceURL().String(), b.GetSourceURL().String())
	})
}

func TestReadAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("nil loader", func(t *testing.T) {
		t.Parallel()
		_, err := ReadAll(ctx, nil, 0)
		require.ErrorIs(t, err, ErrLoaderNil)
	})

	t.Run("within limit", func(t *testing.T) {
		t.Parallel()
		l, err := NewFromBytes([]byte("0123456789"))
		require.NoError(t, err)
		data, err := ReadAll(ctx, l, 10)
		require.NoError(t, err)
		assert.Equal(t, "0123456789", string(data))
	})

	t.Run("over limit", func(t *testing.T) {
		t.Parallel()
		l, err := NewFromBytes([]byte("0123456789"))
		require.NoError(t, err)
		_, err = ReadAll(ctx, l, 9)
		require.ErrorIs(t, err, ErrArtifactTooLarge)
	})
}
