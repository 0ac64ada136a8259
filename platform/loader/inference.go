package loader

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// InferLoader picks a Loader for a configured artifact location:
//   - http(s)://... -> FromHTTP with opts
//   - file://... or a filesystem path -> FromDisk (relative paths are made absolute)
//   - []byte -> FromBytes
//   - Loader -> returned as-is
func InferLoader(input any, opts *HTTPOptions) (Loader, error) {
	switch v := input.(type) {
	case string:
		return inferFromString(v, opts)
	case []byte:
		return NewFromBytes(v)
	case Loader:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported input type: %T", input)
	}
}

func inferFromString(input string, opts *HTTPOptions) (Loader, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: empty location", ErrArtifactNotAvailable)
	}

	if parsed, err := url.Parse(input); err == nil && len(parsed.Scheme) > 1 {
		switch parsed.Scheme {
		case "http", "https":
			return NewFromHTTPWithOptions(input, opts)
		case "file":
			input = parsed.Path
		default:
			return nil, fmt.Errorf("%w: %s", ErrSchemeUnsupported, parsed.Scheme)
		}
	}

	if !filepath.IsAbs(input) {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve relative path %q: %w", input, err)
		}
		input = abs
	}
	return NewFromDisk(input)
}
