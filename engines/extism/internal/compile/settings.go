package compile

import (
	extismSDK "github.com/extism/go-sdk"
	"github.com/tetratelabs/wazero"
)

// Settings holds configuration for compiling the interpreter module
type Settings struct {
	// EnableWASI exposes the WASI snapshot preview1 imports to the module
	EnableWASI bool
	// RuntimeConfig customizes the wazero runtime
	RuntimeConfig wazero.RuntimeConfig
	// HostFunctions are additional imports offered to the module
	HostFunctions []extismSDK.HostFunction
	// Config is readable by the module through the Extism config API
	Config map[string]string
	// AllowedHosts limits outbound HTTP from the module; empty denies all
	AllowedHosts []string
	// MaxPages caps linear memory in 64KiB pages; zero means the module's own limit
	MaxPages uint32
}

// WithDefaultCompileSettings returns the default compilation options.
// Execution is interrupted when the call context is done.
func WithDefaultCompileSettings() *Settings {
	return &Settings{
		EnableWASI:    true,
		RuntimeConfig: wazero.NewRuntimeConfig().WithCloseOnContextDone(true),
	}
}
