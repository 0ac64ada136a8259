package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oteto/gonkey-playground/bootstrap"
	"github.com/oteto/gonkey-playground/engines/risor"
	"github.com/oteto/gonkey-playground/engines/starlark"
	"github.com/oteto/gonkey-playground/evaluator"
	"github.com/oteto/gonkey-playground/internal/config"
	"github.com/oteto/gonkey-playground/internal/helpers"
	"github.com/oteto/gonkey-playground/platform"
	"github.com/oteto/gonkey-playground/platform/loader"
)

// newLauncher returns how the configured engine becomes available. The native
// engines bind immediately; the WebAssembly engine goes through the bootstrap
// sequence.
func newLauncher(cfg config.RuntimeConfig, handler slog.Handler) (bootstrap.Launcher, error) {
	switch cfg.Engine {
	case config.EngineRisor:
		return bootstrap.Immediate{Binding: risor.New(handler)}, nil
	case config.EngineStarlark:
		return bootstrap.Immediate{Binding: starlark.New(handler)}, nil
	}

	_, logger := helpers.SetupLogger(handler, "playground", "runtime")
	httpOpts, err := cfg.HTTPOptions()
	if err != nil {
		return nil, err
	}

	location := cfg.Module
	if location == "" {
		if location, err = helpers.FindArtifact(logger, helpers.DefaultModuleName); err != nil {
			return nil, err
		}
	}
	module, err := loader.InferLoader(location, httpOpts)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", location, err)
	}

	opts := []bootstrap.Option{
		bootstrap.WithHandler(handler),
		bootstrap.WithChecksum(cfg.ModuleSHA256),
		bootstrap.WithMaxAttempts(cfg.MaxAttempts),
		bootstrap.WithCallTimeout(cfg.CallTimeout),
	}

	glueLocation := cfg.Glue
	if glueLocation == "" {
		if found, err := helpers.FindArtifact(nil, helpers.DefaultGlueName); err == nil {
			glueLocation = found
		} else {
			logger.Debug("no glue manifest found, using defaults")
		}
	}
	if glueLocation != "" {
		glue, err := loader.InferLoader(glueLocation, httpOpts)
		if err != nil {
			return nil, fmt.Errorf("glue %s: %w", glueLocation, err)
		}
		opts = append(opts, bootstrap.WithGlueLoader(glue))
	}

	return bootstrap.New(module, opts...)
}

// sampleSource is the starter program shown on the page for engine.
func sampleSource(engine string) string {
	switch engine {
	case config.EngineRisor:
		return risor.SampleSource
	case config.EngineStarlark:
		return starlark.SampleSource
	default:
		return evaluator.InitialSource
	}
}

// waitForRuntime starts launcher and blocks until the runtime is bound, the
// launcher gives up, or wait elapses.
func waitForRuntime(
	ctx context.Context,
	launcher bootstrap.Launcher,
	wait time.Duration,
) (*platform.Slot, error) {
	slot := platform.NewSlot()
	done := launcher.Start(ctx, slot)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return slot, nil
	case <-timer.C:
		if err := slot.Err(); err != nil {
			return nil, fmt.Errorf("runtime not ready after %s: %w", wait, err)
		}
		return nil, fmt.Errorf("runtime not ready after %s", wait)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// closeRuntime releases the bound runtime if it holds resources.
func closeRuntime(ctx context.Context, slot *platform.Slot) error {
	b, ok := slot.Get()
	if !ok {
		return nil
	}
	if c, ok := b.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}
