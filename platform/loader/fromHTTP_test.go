package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oteto/gonkey-playground/platform/loader/httpauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromHTTP(t *testing.T) {
	t.Parallel()

	t.Run("valid url", func(t *testing.T) {
		t.Parallel()
		l, err := NewFromHTTP("https://example.com/gonkey.wasm")
		require.NoError(t, err)
		assert.Equal(t, "example.com", l.GetSourceURL().Host)
		assert.Equal(t, "loader.FromHTTP{URL: https://example.com/gonkey.wasm, Auth: None}", l.String())
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		t.Parallel()
		_, err := NewFromHTTP("ftp://example.com/gonkey.wasm")
		require.ErrorIs(t, err, ErrSchemeUnsupported)
	})

	t.Run("unparseable url", func(t *testing.T) {
		t.Parallel()
		_, err := NewFromHTTP("http://[::1")
		require.ErrorContains(t, err, "unable to parse URL")
	})

	t.Run("nil options use defaults", func(t *testing.T) {
		t.Parallel()
		l, err := NewFromHTTPWithOptions("http://example.com/x", nil)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, l.client.Timeout)
	})
}

func TestFromHTTPGetReader(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fetches body with auth and user agent", func(t *testing.T) {
		t.Parallel()
		var gotUA, gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte("\x00asm"))
		}))
		t.Cleanup(srv.Close)

		opts := DefaultHTTPOptions()
		opts.Authenticator = httpauth.NewBearerAuth("secret")
		l, err := NewFromHTTPWithOptions(srv.URL+"/gonkey.wasm", opts)
		require.NoError(t, err)

		data, err := ReadAll(ctx, l, 0)
		require.NoError(t, err)
		assert.Equal(t, "\x00asm", string(data))
		assert.Equal(t, "gonkey-playground/http-loader", gotUA)
		assert.Equal(t, "Bearer secret", gotAuth)
	})

	t.Run("non 2xx status", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)

		l, err := NewFromHTTP(srv.URL + "/missing.wasm")
		require.NoError(t, err)
		_, err = l.GetReader(ctx)
		require.ErrorIs(t, err, ErrArtifactNotAvailable)
		require.ErrorContains(t, err, "404")
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("x"))
		}))
		t.Cleanup(srv.Close)

		l, err := NewFromHTTP(srv.URL)
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = l.GetReader(cctx)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("custom client", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("tls"))
		}))
		t.Cleanup(srv.Close)

		opts := DefaultHTTPOptions()
		opts.Client = srv.Client()
		l, err := NewFromHTTPWithOptions(srv.URL, opts)
		require.NoError(t, err)
		data, err := ReadAll(ctx, l, 0)
		require.NoError(t, err)
		assert.Equal(t, "tls", string(data))
	})

	t.Run("insecure skip verify", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("self-signed"))
		}))
		t.Cleanup(srv.Close)

		strict, err := NewFromHTTP(srv.URL)
		require.NoError(t, err)
		_, err = ReadAll(ctx, strict, 0)
		require.Error(t, err)

		opts := DefaultHTTPOptions()
		opts.InsecureSkipVerify = true
		l, err := NewFromHTTPWithOptions(srv.URL, opts)
		require.NoError(t, err)
		data, err := ReadAll(ctx, l, 0)
		require.NoError(t, err)
		assert.Equal(t, "self-signed", string(data))
	})
}
