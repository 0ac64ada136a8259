package extism

import "github.com/oteto/gonkey-playground/engines/extism/internal/compile"

// Settings configures how the module is compiled.
type Settings = compile.Settings

// DefaultSettings returns WASI enabled, with calls interruptible by their context.
func DefaultSettings() *Settings {
	return compile.WithDefaultCompileSettings()
}

var (
	ErrContentNil    = compile.ErrContentNil
	ErrCompileFailed = compile.ErrCompileFailed
)

// Compile validates and compiles wasm without starting it.
var Compile = compile.CompileBytes
