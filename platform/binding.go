package platform

import (
	"context"
	"fmt"
	"strings"
)

// Operation names one of the three interpreter entry points.
type Operation string

const (
	Tokenize Operation = "tokenize"
	Parse    Operation = "parse"
	Eval     Operation = "eval"
)

// Operations returns the supported operations in the order they are offered to users.
func Operations() []Operation {
	return []Operation{Tokenize, Parse, Eval}
}

// ParseOperation converts a user supplied name into an Operation.
func ParseOperation(name string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(name)))
	switch op {
	case Tokenize, Parse, Eval:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
}

func (o Operation) String() string {
	return string(o)
}

// Binding is the capability interface for an interpreter runtime.
// Every method receives the full source text and returns the text shown to the user.
type Binding interface {
	Tokenize(ctx context.Context, source string) (string, error)
	Parse(ctx context.Context, source string) (string, error)
	Eval(ctx context.Context, source string) (string, error)
}

// Dispatch routes op to the matching method on b.
func Dispatch(ctx context.Context, b Binding, op Operation, source string) (string, error) {
	if b == nil {
		return "", ErrBindingAbsent
	}
	switch op {
	case Tokenize:
		return b.Tokenize(ctx, source)
	case Parse:
		return b.Parse(ctx, source)
	case Eval:
		return b.Eval(ctx, source)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}
