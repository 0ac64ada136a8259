package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oteto/gonkey-playground/engines/extism"
	"github.com/oteto/gonkey-playground/engines/extism/adapters"
	"github.com/oteto/gonkey-playground/engines/mocks"
	"github.com/oteto/gonkey-playground/internal/helpers"
	"github.com/oteto/gonkey-playground/platform"
	"github.com/oteto/gonkey-playground/platform/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var moduleBytes = []byte("\x00asm\x01\x00\x00\x00")

func testHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}

func bytesLoader(t *testing.T, data []byte) loader.Loader {
	t.Helper()
	l, err := loader.NewFromBytes(data)
	require.NoError(t, err)
	return l
}

// failingLoader fails its first n reads.
type failingLoader struct {
	loader.Loader
	failures atomic.Int32
}

func (l *failingLoader) GetReader(ctx context.Context) (io.ReadCloser, error) {
	if l.failures.Add(-1) >= 0 {
		return nil, errors.New("connection refused")
	}
	return l.Loader.GetReader(ctx)
}

func startedPlugin(exports ...string) *mocks.CompiledPlugin {
	instance := mocks.InstanceWithExports(exports...)
	instance.On("CallWithContext", mock.Anything, mock.Anything, mock.Anything).Return(0, []byte("TOKENS"), nil)
	plugin := new(mocks.CompiledPlugin)
	plugin.On("Instance", mock.Anything, mock.Anything).Return(instance, nil)
	return plugin
}

func compilerReturning(plugin adapters.CompiledPlugin, seen **extism.Settings) CompileFunc {
	return func(_ context.Context, wasm []byte, settings *extism.Settings) (adapters.CompiledPlugin, error) {
		if seen != nil {
			*seen = settings
		}
		return plugin, nil
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, ErrModuleLoaderRequired)

	module := bytesLoader(t, moduleBytes)
	_, err = New(module, WithMaxAttempts(-1))
	require.ErrorContains(t, err, "negative max attempts")

	_, err = New(module, WithBackoff(time.Second, time.Millisecond))
	require.ErrorContains(t, err, "invalid backoff")

	_, err = New(module, WithGlueLoader(nil))
	require.ErrorIs(t, err, loader.ErrLoaderNil)

	s, err := New(module, WithHandler(testHandler()))
	require.NoError(t, err)
	assert.Equal(t, "bootstrap.Sequence", s.String())
}

func TestRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("default glue", func(t *testing.T) {
		t.Parallel()
		var settings *extism.Settings
		s, err := New(bytesLoader(t, moduleBytes),
			WithHandler(testHandler()),
			WithCompiler(compilerReturning(startedPlugin("tokenize", "parse", "eval"), &settings)),
		)
		require.NoError(t, err)

		b, err := s.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, extism.DefaultExports(), b.Exports())
		assert.True(t, settings.EnableWASI)

		got, err := b.Tokenize(ctx, "let x = 1;")
		require.NoError(t, err)
		assert.Equal(t, "TOKENS", got)
	})

	t.Run("glue applies exports and settings", func(t *testing.T) {
		t.Parallel()
		glue := []byte(`{
			"exports": {"eval": "run"},
			"wasi": false,
			"config": {"mode": "playground"},
			"memory_max_pages": 32
		}`)
		var settings *extism.Settings
		s, err := New(bytesLoader(t, moduleBytes),
			WithHandler(testHandler()),
			WithGlueLoader(bytesLoader(t, glue)),
			WithCompiler(compilerReturning(startedPlugin("tokenize", "parse", "run"), &settings)),
		)
		require.NoError(t, err)

		b, err := s.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, "run", b.Exports()[platform.Eval])
		assert.False(t, settings.EnableWASI)
		assert.Equal(t, map[string]string{"mode": "playground"}, settings.Config)
		assert.Equal(t, uint32(32), settings.MaxPages)
	})

	t.Run("stage failures", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name  string
			opts  []Option
			stage Stage
			want  error
		}{
			{
				name:  "bad glue",
				opts:  []Option{WithGlueLoader(bytesLoader(t, []byte(`{"exports": {"lint": "lint"}}`)))},
				stage: StageGlue,
				want:  ErrInvalidGlue,
			},
			{
				name:  "checksum mismatch",
				opts:  []Option{WithChecksum(helpers.SHA256Bytes([]byte("something else")))},
				stage: StageFetch,
				want:  helpers.ErrChecksumMismatch,
			},
			{
				name:  "glue checksum mismatch",
				opts:  []Option{WithGlueLoader(bytesLoader(t, []byte(`{"sha256": "00"}`)))},
				stage: StageFetch,
				want:  helpers.ErrChecksumMismatch,
			},
			{
				name:  "module too large",
				opts:  []Option{WithMaxSize(2)},
				stage: StageFetch,
				want:  loader.ErrArtifactTooLarge,
			},
			{
				name: "compile failure",
				opts: []Option{WithCompiler(func(context.Context, []byte, *extism.Settings) (adapters.CompiledPlugin, error) {
					return nil, extism.ErrCompileFailed
				})},
				stage: StageInstantiate,
				want:  extism.ErrCompileFailed,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				opts := append([]Option{
					WithHandler(testHandler()),
					WithCompiler(compilerReturning(startedPlugin("tokenize", "parse", "eval"), nil)),
				}, tt.opts...)
				s, err := New(bytesLoader(t, moduleBytes), opts...)
				require.NoError(t, err)

				_, err = s.Run(ctx)
				require.ErrorIs(t, err, tt.want)
				var stageErr *StageError
				require.ErrorAs(t, err, &stageErr)
				assert.Equal(t, tt.stage, stageErr.Stage)
			})
		}
	})

	t.Run("missing export closes plugin", func(t *testing.T) {
		t.Parallel()
		instance := mocks.InstanceWithExports("tokenize", "parse")
		instance.On("FunctionExists", "eval").Return(false)
		instance.On("Close", mock.Anything).Return(nil)
		plugin := new(mocks.CompiledPlugin)
		plugin.On("Instance", mock.Anything, mock.Anything).Return(instance, nil)
		plugin.On("Close", mock.Anything).Return(nil)

		s, err := New(bytesLoader(t, moduleBytes),
			WithHandler(testHandler()),
			WithCompiler(compilerReturning(plugin, nil)),
		)
		require.NoError(t, err)

		_, err = s.Run(ctx)
		require.ErrorIs(t, err, extism.ErrMissingExport)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageStart, stageErr.Stage)
		plugin.AssertCalled(t, "Close", mock.Anything)
	})
}

func TestStart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("binds on success", func(t *testing.T) {
		t.Parallel()
		s, err := New(bytesLoader(t, moduleBytes),
			WithHandler(testHandler()),
			WithCompiler(compilerReturning(startedPlugin("tokenize", "parse", "eval"), nil)),
		)
		require.NoError(t, err)

		slot := platform.NewSlot()
		require.NoError(t, <-s.Start(ctx, slot))
		assert.Equal(t, platform.StatusBound, slot.Status())
	})

	t.Run("retries after failure", func(t *testing.T) {
		t.Parallel()
		module := &failingLoader{Loader: bytesLoader(t, moduleBytes)}
		module.failures.Store(2)
		s, err := New(module,
			WithHandler(testHandler()),
			WithBackoff(time.Millisecond, 2*time.Millisecond),
			WithCompiler(compilerReturning(startedPlugin("tokenize", "parse", "eval"), nil)),
		)
		require.NoError(t, err)

		slot := platform.NewSlot()
		require.NoError(t, <-s.Start(ctx, slot))
		assert.Equal(t, platform.StatusBound, slot.Status())
		assert.NoError(t, slot.Err())
	})

	t.Run("gives up and records failure", func(t *testing.T) {
		t.Parallel()
		module := &failingLoader{Loader: bytesLoader(t, moduleBytes)}
		module.failures.Store(100)
		s, err := New(module,
			WithHandler(testHandler()),
			WithMaxAttempts(3),
			WithBackoff(time.Millisecond, time.Millisecond),
		)
		require.NoError(t, err)

		slot := platform.NewSlot()
		err = <-s.Start(ctx, slot)
		require.ErrorContains(t, err, "connection refused")
		assert.Equal(t, platform.StatusFailed, slot.Status())
		assert.Equal(t, int32(97), module.failures.Load())

		out := platform.Invoke(ctx, slot, platform.Eval, "1")
		require.ErrorIs(t, out.Err, platform.ErrBindingAbsent)
		assert.Contains(t, out.Diagnostic(), "connection refused")
	})

	t.Run("stops when context is done", func(t *testing.T) {
		t.Parallel()
		module := &failingLoader{Loader: bytesLoader(t, moduleBytes)}
		module.failures.Store(1)
		s, err := New(module,
			WithHandler(testHandler()),
			WithBackoff(time.Hour, time.Hour),
		)
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		slot := platform.NewSlot()
		done := s.Start(cctx, slot)
		cancel()

		err = <-done
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, platform.StatusFailed, slot.Status())
	})
}

func TestImmediate(t *testing.T) {
	t.Parallel()
	slot := platform.NewSlot()
	b := new(mocks.Binding)

	require.NoError(t, <-Immediate{Binding: b}.Start(context.Background(), slot))
	got, ok := slot.Get()
	require.True(t, ok)
	assert.Same(t, b, got)

	require.ErrorIs(t, <-Immediate{Binding: b}.Start(context.Background(), slot), platform.ErrAlreadyBound)
}
