// Package bootstrap loads the interpreter module and makes it available to the
// playground: it reads the glue manifest, fetches the module, instantiates it
// against the glue's import surface, starts it, and binds the result into a
// platform.Slot.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oteto/gonkey-playground/engines/extism"
	"github.com/oteto/gonkey-playground/engines/extism/adapters"
	"github.com/oteto/gonkey-playground/internal/helpers"
	"github.com/oteto/gonkey-playground/platform"
	"github.com/oteto/gonkey-playground/platform/loader"
)

// Stage names one step of a bootstrap attempt.
type Stage string

const (
	StageGlue        Stage = "glue"
	StageFetch       Stage = "fetch"
	StageInstantiate Stage = "instantiate"
	StageStart       Stage = "start"
)

const (
	defaultBackoff    = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

var ErrModuleLoaderRequired = errors.New("module loader is required")

// StageError reports which stage of an attempt failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("bootstrap %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// CompileFunc compiles module bytes into a plugin.
type CompileFunc func(ctx context.Context, wasm []byte, settings *extism.Settings) (adapters.CompiledPlugin, error)

// Sequence is the glue, fetch, instantiate, start pipeline for one module.
type Sequence struct {
	glue        loader.Loader
	module      loader.Loader
	checksum    string
	maxSize     int64
	maxAttempts int
	backoff     time.Duration
	maxBackoff  time.Duration
	callTimeout time.Duration
	compile     CompileFunc

	handler slog.Handler
	logger  *slog.Logger
}

// Option configures a Sequence.
type Option func(*Sequence) error

// WithHandler sets the log handler used by the sequence and the bindings it starts.
func WithHandler(handler slog.Handler) Option {
	return func(s *Sequence) error {
		s.handler = handler
		return nil
	}
}

// WithGlueLoader loads a glue manifest before the module. Without it the
// default glue is used.
func WithGlueLoader(l loader.Loader) Option {
	return func(s *Sequence) error {
		if l == nil {
			return loader.ErrLoaderNil
		}
		s.glue = l
		return nil
	}
}

// WithChecksum sets the expected SHA-256 of the module. It takes precedence
// over a digest named in the glue.
func WithChecksum(hexDigest string) Option {
	return func(s *Sequence) error {
		s.checksum = hexDigest
		return nil
	}
}

// WithMaxSize bounds the size of each artifact.
func WithMaxSize(n int64) Option {
	return func(s *Sequence) error {
		s.maxSize = n
		return nil
	}
}

// WithMaxAttempts bounds how many attempts Start makes. Zero retries until the
// context is done.
func WithMaxAttempts(n int) Option {
	return func(s *Sequence) error {
		if n < 0 {
			return fmt.Errorf("negative max attempts: %d", n)
		}
		s.maxAttempts = n
		return nil
	}
}

// WithBackoff sets the delay after the first failed attempt and its ceiling.
// The delay doubles after every further failure.
func WithBackoff(initial, ceiling time.Duration) Option {
	return func(s *Sequence) error {
		if initial <= 0 || ceiling < initial {
			return fmt.Errorf("invalid backoff: initial %s, max %s", initial, ceiling)
		}
		s.backoff = initial
		s.maxBackoff = ceiling
		return nil
	}
}

// WithCallTimeout bounds each call into the started module.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Sequence) error {
		s.callTimeout = d
		return nil
	}
}

// WithCompiler replaces the module compiler.
func WithCompiler(fn CompileFunc) Option {
	return func(s *Sequence) error {
		if fn == nil {
			return errors.New("compiler is nil")
		}
		s.compile = fn
		return nil
	}
}

// New creates a Sequence that loads its module from module.
func New(module loader.Loader, opts ...Option) (*Sequence, error) {
	if module == nil {
		return nil, ErrModuleLoaderRequired
	}
	s := &Sequence{
		module:     module,
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
		compile:    extism.Compile,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	s.handler, s.logger = helpers.SetupLogger(s.handler, "bootstrap", "Sequence")
	return s, nil
}

func (s *Sequence) String() string {
	return "bootstrap.Sequence"
}

// Run performs a single attempt and returns the started Binding.
func (s *Sequence) Run(ctx context.Context) (*extism.Binding, error) {
	logger := s.logger.With("module", s.module.GetSourceURL())

	glue, err := s.loadGlue(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageGlue, Err: err}
	}
	logger.DebugContext(ctx, "glue loaded")

	wasm, err := loader.ReadAll(ctx, s.module, s.maxSize)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	checksum := s.checksum
	if checksum == "" {
		checksum = glue.SHA256
	}
	if err := helpers.VerifySHA256(wasm, checksum); err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	logger.DebugContext(ctx, "module fetched", "size", len(wasm))

	plugin, err := s.compile(ctx, wasm, glue.Settings())
	if err != nil {
		return nil, &StageError{Stage: StageInstantiate, Err: err}
	}
	logger.DebugContext(ctx, "module instantiated")

	exports, err := glue.ExportMap()
	if err == nil {
		var b *extism.Binding
		b, err = extism.Start(ctx, s.handler, plugin,
			extism.WithExports(exports),
			extism.WithCallTimeout(s.callTimeout),
		)
		if err == nil {
			logger.InfoContext(ctx, "module started")
			return b, nil
		}
	}
	if cerr := plugin.Close(context.WithoutCancel(ctx)); cerr != nil {
		logger.WarnContext(ctx, "failed to close plugin", "error", cerr)
	}
	return nil, &StageError{Stage: StageStart, Err: err}
}

func (s *Sequence) loadGlue(ctx context.Context) (*Glue, error) {
	if s.glue == nil {
		return DefaultGlue(), nil
	}
	data, err := loader.ReadAll(ctx, s.glue, s.maxSize)
	if err != nil {
		return nil, err
	}
	return ParseGlue(data)
}

// Start runs attempts in the background until one succeeds, the attempt limit
// is reached, or ctx is done. Every failure is recorded in slot; success binds
// the started module into it. The returned channel receives the final error
// (nil on success) and is then closed.
func (s *Sequence) Start(ctx context.Context, slot *platform.Slot) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- s.loop(ctx, slot)
	}()
	return done
}

func (s *Sequence) loop(ctx context.Context, slot *platform.Slot) error {
	delay := s.backoff
	for attempt := 1; ; attempt++ {
		logger := s.logger.With("attempt", attempt)

		b, err := s.Run(ctx)
		if err == nil {
			if err := slot.Bind(b); err != nil {
				_ = b.Close(context.WithoutCancel(ctx))
				return err
			}
			logger.InfoContext(ctx, "runtime bound")
			return nil
		}

		slot.Fail(err)
		if s.maxAttempts > 0 && attempt >= s.maxAttempts {
			logger.ErrorContext(ctx, "giving up loading runtime", "error", err)
			return err
		}
		logger.WarnContext(ctx, "runtime load failed, retrying", "error", err, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
		delay = min(delay*2, s.maxBackoff)
	}
}
