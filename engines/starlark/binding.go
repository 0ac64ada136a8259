// Package starlark runs source text through the Starlark interpreter in process.
package starlark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	starlarkJSON "go.starlark.net/lib/json"
	starlarkMath "go.starlark.net/lib/math"
	starlarkTime "go.starlark.net/lib/time"
	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/oteto/gonkey-playground/engines/internal/scan"
	"github.com/oteto/gonkey-playground/internal/helpers"
)

const filename = "playground.star"

// SampleSource is a starter program in Starlark syntax.
const SampleSource = "hello_world = \"Hello World!\"\nputs(hello_world)\n"

var keywords = map[string]bool{
	"and": true, "break": true, "continue": true, "def": true, "elif": true, "else": true,
	"for": true, "if": true, "in": true, "lambda": true, "load": true, "not": true,
	"or": true, "pass": true, "return": true, "while": true,
}

// Binding implements platform.Binding with the Starlark parser and interpreter.
type Binding struct {
	fileOpts *syntax.FileOptions
	maxSteps uint64
	logger   *slog.Logger
}

// Option configures a Binding.
type Option func(*Binding)

// WithMaxSteps aborts evaluation after n computation steps. Zero means no limit.
func WithMaxSteps(n uint64) Option {
	return func(b *Binding) { b.maxSteps = n }
}

// New creates a Starlark binding with while loops, sets, top level control flow
// and recursion enabled.
func New(handler slog.Handler, opts ...Option) *Binding {
	_, logger := helpers.SetupLogger(handler, "starlark", "Binding")
	b := &Binding{
		fileOpts: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
			Recursion:       true,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Binding) String() string {
	return "starlark.Binding"
}

// Tokenize lists the lexical tokens of source as tab indented JSON.
func (b *Binding) Tokenize(_ context.Context, source string) (string, error) {
	return scan.JSON(scan.Tokens(source, keywords, true))
}

// Parse returns the syntax tree of source as tab indented JSON.
func (b *Binding) Parse(_ context.Context, source string) (string, error) {
	f, err := b.fileOpts.Parse(filename, source, 0)
	if err != nil {
		return "", err
	}

	stmts := make([]node, 0, len(f.Stmts))
	for _, stmt := range f.Stmts {
		stmts = append(stmts, describe(stmt))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stmts); err != nil {
		return "", fmt.Errorf("encoding syntax tree: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Eval executes source and returns everything it printed.
func (b *Binding) Eval(ctx context.Context, source string) (string, error) {
	f, err := b.fileOpts.Parse(filename, source, 0)
	if err != nil {
		return "", err
	}

	predeclared := standardModules()
	prog, err := starlarkLib.FileProgram(f, predeclared.Has)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	thread := &starlarkLib.Thread{
		Name: "playground",
		Print: func(_ *starlarkLib.Thread, msg string) {
			out.WriteString(msg)
			out.WriteByte('\n')
		},
	}
	if b.maxSteps > 0 {
		thread.SetMaxExecutionSteps(b.maxSteps)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	start := time.Now()
	_, err = prog.Init(thread, predeclared)
	b.logger.DebugContext(ctx, "eval complete", "execTime", time.Since(start), "error", err)
	if err != nil {
		return out.String(), err
	}
	return out.String(), nil
}

// standardModules is the Starlark universe plus json, math, time and puts.
func standardModules() starlarkLib.StringDict {
	universe := maps.Clone(starlarkLib.Universe)
	universe["json"] = starlarkJSON.Module
	universe["math"] = starlarkMath.Module
	universe["time"] = starlarkTime.Module
	universe["puts"] = starlarkLib.NewBuiltin("puts", puts)
	return universe
}

// puts prints each argument on its own line, strings without quotes.
func puts(
	thread *starlarkLib.Thread,
	_ *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	_ []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	for _, arg := range args {
		if s, ok := starlarkLib.AsString(arg); ok {
			thread.Print(thread, s)
			continue
		}
		thread.Print(thread, arg.String())
	}
	return starlarkLib.None, nil
}
