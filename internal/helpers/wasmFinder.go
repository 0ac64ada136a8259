package helpers

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultModuleName and DefaultGlueName are the artifact names the playground
// looks for when no location is configured.
const (
	DefaultModuleName = "gonkey.wasm"
	DefaultGlueName   = "gonkey.glue.json"
)

// FindArtifact searches for a bootstrap artifact (the interpreter module or its
// glue manifest) in the current directory and the usual static asset folders.
//
// Returns the absolute path of the first match, or an error listing every path checked.
func FindArtifact(logger *slog.Logger, name string) (string, error) {
	paths := []string{
		name,
		filepath.Join("static", name),
		filepath.Join("web", "static", name),
		filepath.Join("dist", name),
	}

	checkedPaths := make([]string, 0, len(paths))
	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if _, err := os.Stat(absPath); err == nil {
			if logger != nil {
				logger.Info("Found artifact", "name", name, "path", absPath)
			}
			return absPath, nil
		}
		checkedPaths = append(checkedPaths, absPath)
	}

	return "", fmt.Errorf(
		"%s not found in any of the expected locations:\n   - %s",
		name, strings.Join(checkedPaths, "\n   - "),
	)
}
