package platform

import "errors"

var (
	ErrBindingAbsent    = errors.New("interpreter runtime is not loaded")
	ErrAlreadyBound     = errors.New("interpreter runtime is already bound")
	ErrNilBinding       = errors.New("binding is nil")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrOperationPanic   = errors.New("operation panicked")
)
