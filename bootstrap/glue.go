package bootstrap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/oteto/gonkey-playground/engines/extism"
	"github.com/oteto/gonkey-playground/platform"
)

var ErrInvalidGlue = errors.New("invalid glue manifest")

// Glue describes the import surface the interpreter module is instantiated
// against and how its exports map onto the three operations. It is loaded
// before the module itself.
type Glue struct {
	// Exports overrides the export name per operation, keyed by operation name.
	Exports map[string]string `json:"exports,omitempty"`
	// WASI exposes WASI preview1 imports. Defaults to true.
	WASI *bool `json:"wasi,omitempty"`
	// Config is readable by the module through the Extism config API.
	Config map[string]string `json:"config,omitempty"`
	// AllowedHosts limits outbound HTTP from the module.
	AllowedHosts []string `json:"allowed_hosts,omitempty"`
	// MemoryMaxPages caps linear memory in 64KiB pages.
	MemoryMaxPages uint32 `json:"memory_max_pages,omitempty"`
	// SHA256 is the expected digest of the module, checked after fetch.
	SHA256 string `json:"sha256,omitempty"`
}

// DefaultGlue is used when no glue artifact is configured.
func DefaultGlue() *Glue {
	return &Glue{}
}

// ParseGlue decodes a glue manifest. Unknown fields are rejected.
func ParseGlue(data []byte) (*Glue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	g := &Glue{}
	if err := dec.Decode(g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGlue, err)
	}
	if _, err := g.ExportMap(); err != nil {
		return nil, err
	}
	return g, nil
}

// ExportMap resolves the export name of every operation.
func (g *Glue) ExportMap() (map[platform.Operation]string, error) {
	exports := extism.DefaultExports()
	for name, export := range g.Exports {
		op, err := platform.ParseOperation(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGlue, err)
		}
		if export == "" {
			return nil, fmt.Errorf("%w: empty export for %s", ErrInvalidGlue, op)
		}
		exports[op] = export
	}
	return exports, nil
}

// Settings returns the compile settings for a module using this glue.
func (g *Glue) Settings() *extism.Settings {
	s := extism.DefaultSettings()
	if g.WASI != nil {
		s.EnableWASI = *g.WASI
	}
	s.Config = maps.Clone(g.Config)
	s.AllowedHosts = append([]string(nil), g.AllowedHosts...)
	s.MaxPages = g.MemoryMaxPages
	return s
}
