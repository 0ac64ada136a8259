package risor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/oteto/gonkey-playground/engines/internal/scan"
	"github.com/oteto/gonkey-playground/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBinding() *Binding {
	return New(slog.NewTextHandler(io.Discard, nil))
}

func TestBindingImplementsPlatformBinding(t *testing.T) {
	var _ platform.Binding = (*Binding)(nil)
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	out, err := newBinding().Tokenize(context.Background(), `var x = 1 + 2`)
	require.NoError(t, err)

	var tokens []scan.Token
	require.NoError(t, json.Unmarshal([]byte(out), &tokens))
	require.Len(t, tokens, 7)
	assert.Equal(t, "VAR", tokens[0].Type)
	assert.Equal(t, scan.Ident, tokens[1].Type)
	assert.Equal(t, "+", tokens[4].Type)
	assert.Equal(t, scan.EOF, tokens[6].Type)
}

func TestParse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	out, err := newBinding().Parse(ctx, "var x = 1 + 2")
	require.NoError(t, err)
	assert.Contains(t, out, "x")

	_, err = newBinding().Parse(ctx, "var = = =")
	require.Error(t, err)
}

func TestEval(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	out, err := newBinding().Eval(ctx, "x := 40\nx + 2")
	require.NoError(t, err)
	assert.Equal(t, "42", out)

	_, err = newBinding().Eval(ctx, "undefined_name + 1")
	require.Error(t, err)
}
