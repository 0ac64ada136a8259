// Package risor runs source text through the Risor interpreter in process.
package risor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	risorLib "github.com/risor-io/risor"
	risorErrors "github.com/risor-io/risor/errz"
	risorParser "github.com/risor-io/risor/parser"

	"github.com/oteto/gonkey-playground/engines/internal/scan"
	"github.com/oteto/gonkey-playground/internal/helpers"
)

var ErrSyntax = errors.New("syntax error")

// SampleSource is a starter program in Risor syntax.
const SampleSource = "hello_world := \"Hello World!\"\nhello_world\n"

var keywords = map[string]bool{
	"func": true, "var": true, "const": true, "if": true, "else": true, "return": true,
	"true": true, "false": true, "nil": true, "for": true, "range": true, "in": true,
	"switch": true, "case": true, "default": true, "break": true, "continue": true,
	"import": true, "from": true, "as": true, "go": true, "defer": true,
}

// Binding implements platform.Binding with the Risor lexer rules, parser and VM.
type Binding struct {
	options []risorLib.Option
	logger  *slog.Logger
}

// New creates a Risor binding. opts are passed to every evaluation.
func New(handler slog.Handler, opts ...risorLib.Option) *Binding {
	_, logger := helpers.SetupLogger(handler, "risor", "Binding")
	return &Binding{options: opts, logger: logger}
}

func (b *Binding) String() string {
	return "risor.Binding"
}

// Tokenize lists the lexical tokens of source as tab indented JSON.
func (b *Binding) Tokenize(_ context.Context, source string) (string, error) {
	return scan.JSON(scan.Tokens(source, keywords, false))
}

// Parse returns the canonical source form of the parsed program.
func (b *Binding) Parse(ctx context.Context, source string) (string, error) {
	program, err := risorParser.Parse(ctx, source)
	if err != nil {
		return "", friendly(err)
	}
	return program.String(), nil
}

// Eval runs source and returns the inspected value of the last expression.
func (b *Binding) Eval(ctx context.Context, source string) (string, error) {
	start := time.Now()
	result, err := risorLib.Eval(ctx, source, b.options...)
	b.logger.DebugContext(ctx, "eval complete", "execTime", time.Since(start), "error", err)
	if err != nil {
		return "", friendly(err)
	}
	if result == nil {
		return "", nil
	}
	return result.Inspect(), nil
}

// friendly prefers Risor's multi-line syntax error rendering when available.
func friendly(err error) error {
	var friendlyErr risorErrors.FriendlyError
	if errors.As(err, &friendlyErr) {
		return fmt.Errorf("%w: %s", ErrSyntax, friendlyErr.FriendlyErrorMessage())
	}
	return err
}
