// Package evaluator implements the interactive playground component: the edited
// source, the last result, and the three triggers that run the source through the
// interpreter runtime.
package evaluator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oteto/gonkey-playground/internal/helpers"
	"github.com/oteto/gonkey-playground/platform"
)

// Component owns one State and dispatches triggers to the Binding held in a Slot.
//
// Handlers run one at a time and to completion. A slow operation blocks every
// other handler on the same Component until it returns.
type Component struct {
	mu        sync.Mutex
	state     State
	slot      *platform.Slot
	listeners []func(State)

	logger *slog.Logger
}

// New creates a Component in its initial state. A nil slot is treated as a
// runtime that never loads.
func New(handler slog.Handler, slot *platform.Slot) *Component {
	_, logger := helpers.SetupLogger(handler, "evaluator", "Component")
	if slot == nil {
		slot = platform.NewSlot()
	}
	return &Component{
		state:  Initial(),
		slot:   slot,
		logger: logger,
	}
}

func (c *Component) String() string {
	return "evaluator.Component"
}

// OnChange registers fn to be called with the new State after every replacement.
// fn runs inside the handler and must not call back into the Component.
func (c *Component) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Snapshot returns a copy of the current State.
func (c *Component) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Slot returns the runtime slot this component dispatches to.
func (c *Component) Slot() *platform.Slot {
	return c.slot
}

// OnSourceEdited replaces the source text. The result is untouched.
func (c *Component) OnSourceEdited(text string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replace(ApplyEdit(c.state, text))
	return c.state
}

func (c *Component) OnTokenizeTriggered(ctx context.Context) platform.Outcome {
	return c.Trigger(ctx, platform.Tokenize)
}

func (c *Component) OnParseTriggered(ctx context.Context) platform.Outcome {
	return c.Trigger(ctx, platform.Parse)
}

func (c *Component) OnEvalTriggered(ctx context.Context) platform.Outcome {
	return c.Trigger(ctx, platform.Eval)
}

// Trigger runs op against the current source. On success the returned text
// becomes the result exactly as returned; on failure the result is kept and the
// diagnostic is recorded instead.
func (c *Component) Trigger(ctx context.Context, op platform.Operation) platform.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.logger.With("operation", op, "sourceLen", len(c.state.Source))
	start := time.Now()
	out := platform.Invoke(ctx, c.slot, op, c.state.Source)
	elapsed := time.Since(start)

	if !out.Succeeded() {
		logger.WarnContext(ctx, "operation failed", "error", out.Err, "elapsed", elapsed)
		c.replace(ApplyFailure(c.state, out.Diagnostic()))
		return out
	}

	logger.DebugContext(ctx, "operation complete", "resultLen", len(out.Text), "elapsed", elapsed)
	c.replace(ApplyActionResult(c.state, out.Text))
	return out
}

// replace must be called with mu held.
func (c *Component) replace(next State) {
	c.state = next
	for _, fn := range c.listeners {
		fn(next)
	}
}
