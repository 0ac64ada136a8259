package compile

import (
	"context"
	"errors"
	"fmt"

	extismSDK "github.com/extism/go-sdk"
	"github.com/oteto/gonkey-playground/engines/extism/adapters"
)

var (
	ErrContentNil    = errors.New("wasm content is nil")
	ErrCompileFailed = errors.New("failed to compile wasm module")
)

// CompileBytes creates a compiled Extism plugin from raw WASM bytes
func CompileBytes(
	ctx context.Context,
	wasmBytes []byte,
	opts *Settings,
) (adapters.CompiledPlugin, error) {
	if len(wasmBytes) == 0 {
		return nil, ErrContentNil
	}
	if opts == nil {
		opts = WithDefaultCompileSettings()
	}

	plugin, err := extismSDK.NewCompiledPlugin(
		ctx,
		Manifest(wasmBytes, opts),
		extismSDK.PluginConfig{
			EnableWasi:    opts.EnableWASI,
			RuntimeConfig: opts.RuntimeConfig,
		},
		opts.HostFunctions,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	return adapters.NewCompiledPluginAdapter(plugin), nil
}

// Manifest builds the Extism manifest for wasmBytes from opts.
func Manifest(wasmBytes []byte, opts *Settings) extismSDK.Manifest {
	manifest := extismSDK.Manifest{
		Wasm: []extismSDK.Wasm{
			extismSDK.WasmData{Data: wasmBytes, Name: "interpreter"},
		},
		Config:       opts.Config,
		AllowedHosts: opts.AllowedHosts,
	}
	if opts.MaxPages > 0 {
		manifest.Memory = &extismSDK.ManifestMemory{MaxPages: opts.MaxPages}
	}
	return manifest
}
