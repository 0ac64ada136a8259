// Package extism runs the interpreter as a WebAssembly module inside the Extism
// host (backed by wazero). The module must export one function per operation;
// each receives the source text as its input and returns the result text as its
// output.
package extism

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/oteto/gonkey-playground/engines/extism/adapters"
	"github.com/oteto/gonkey-playground/internal/helpers"
	"github.com/oteto/gonkey-playground/platform"
)

var (
	ErrPluginNil       = errors.New("compiled plugin is nil")
	ErrMissingExport   = errors.New("module does not export required function")
	ErrNonZeroExit     = errors.New("function returned non-zero exit code")
	ErrBindingClosed   = errors.New("binding is closed")
	ErrCallInterrupted = errors.New("execution interrupted")
)

// DefaultExports maps each operation to the export of the same name.
func DefaultExports() map[platform.Operation]string {
	return map[platform.Operation]string{
		platform.Tokenize: "tokenize",
		platform.Parse:    "parse",
		platform.Eval:     "eval",
	}
}

// Binding implements platform.Binding on top of a started plugin instance.
//
// The interpreter is single threaded, so calls are serialized. If a call is
// interrupted by its context the instance is discarded and a new one is started
// on the next call.
type Binding struct {
	mu          sync.Mutex
	plugin      adapters.CompiledPlugin
	instance    adapters.PluginInstance
	exports     map[platform.Operation]string
	callTimeout time.Duration
	closed      bool

	logger *slog.Logger
}

// Option configures a Binding.
type Option func(*Binding) error

// WithExports overrides export names for some or all operations.
func WithExports(exports map[platform.Operation]string) Option {
	return func(b *Binding) error {
		for op, name := range exports {
			if _, err := platform.ParseOperation(string(op)); err != nil {
				return err
			}
			if name == "" {
				return fmt.Errorf("empty export name for %s", op)
			}
			b.exports[op] = name
		}
		return nil
	}
}

// WithCallTimeout bounds each call. Zero leaves calls unbounded.
func WithCallTimeout(d time.Duration) Option {
	return func(b *Binding) error {
		if d < 0 {
			return fmt.Errorf("negative call timeout: %s", d)
		}
		b.callTimeout = d
		return nil
	}
}

// Start creates the first instance of plugin, checks that every operation has an
// export, and returns a Binding ready for use. The Binding owns plugin from then on.
func Start(
	ctx context.Context,
	handler slog.Handler,
	plugin adapters.CompiledPlugin,
	opts ...Option,
) (*Binding, error) {
	if plugin == nil {
		return nil, ErrPluginNil
	}
	_, logger := helpers.SetupLogger(handler, "extism", "Binding")

	b := &Binding{
		plugin:  plugin,
		exports: DefaultExports(),
		logger:  logger,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}

	instance, err := b.newInstance(ctx)
	if err != nil {
		return nil, err
	}
	for _, op := range platform.Operations() {
		if !instance.FunctionExists(b.exports[op]) {
			b.closeInstance(ctx, instance)
			return nil, fmt.Errorf("%w: %s (for %s)", ErrMissingExport, b.exports[op], op)
		}
	}
	b.instance = instance
	logger.InfoContext(ctx, "interpreter module started", "exports", b.exports)
	return b, nil
}

func (b *Binding) String() string {
	return "extism.Binding"
}

// Exports returns a copy of the operation to export name mapping.
func (b *Binding) Exports() map[platform.Operation]string {
	return maps.Clone(b.exports)
}

func (b *Binding) Tokenize(ctx context.Context, source string) (string, error) {
	return b.call(ctx, platform.Tokenize, source)
}

func (b *Binding) Parse(ctx context.Context, source string) (string, error) {
	return b.call(ctx, platform.Parse, source)
}

func (b *Binding) Eval(ctx context.Context, source string) (string, error) {
	return b.call(ctx, platform.Eval, source)
}

func (b *Binding) call(ctx context.Context, op platform.Operation, source string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", ErrBindingClosed
	}
	logger := b.logger.With("operation", op)

	if b.instance == nil {
		instance, err := b.newInstance(ctx)
		if err != nil {
			return "", err
		}
		b.instance = instance
		logger.InfoContext(ctx, "interpreter instance restarted")
	}

	if b.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
	}

	start := time.Now()
	exit, output, err := b.instance.CallWithContext(ctx, b.exports[op], []byte(source))
	execTime := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// wazero closes the module when the context is done
			b.closeInstance(context.WithoutCancel(ctx), b.instance)
			b.instance = nil
			return "", fmt.Errorf("%w: %w", ErrCallInterrupted, ctx.Err())
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if exit != 0 {
		return "", fmt.Errorf("%w: %d", ErrNonZeroExit, exit)
	}

	logger.DebugContext(ctx, "call complete", "outputLen", len(output), "execTime", execTime)
	return string(output), nil
}

// Close releases the instance and the compiled module.
func (b *Binding) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.instance != nil {
		b.closeInstance(ctx, b.instance)
		b.instance = nil
	}
	return b.plugin.Close(ctx)
}

func (b *Binding) newInstance(ctx context.Context) (adapters.PluginInstance, error) {
	instance, err := b.plugin.Instance(ctx, adapters.NewPluginInstanceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin instance: %w", err)
	}
	return instance, nil
}

func (b *Binding) closeInstance(ctx context.Context, instance adapters.PluginInstance) {
	if err := instance.Close(ctx); err != nil {
		b.logger.Warn("Failed to close Extism plugin instance", "error", err)
	}
}
