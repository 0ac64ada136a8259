package loader

import "errors"

var (
	ErrSchemeUnsupported    = errors.New("unsupported scheme")
	ErrArtifactNotAvailable = errors.New("artifact not available")
	ErrArtifactTooLarge     = errors.New("artifact too large")
	ErrLoaderNil            = errors.New("loader is nil")
)
