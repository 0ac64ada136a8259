package platform

import (
	"context"
	"fmt"
)

// Outcome is the result of a guarded call into the runtime: either the text the
// operation returned, or a failure carrying a diagnostic.
type Outcome struct {
	Operation Operation
	Text      string
	Err       error
}

// Succeeded reports whether the operation returned normally.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Diagnostic is the user facing failure message, empty on success.
func (o Outcome) Diagnostic() string {
	if o.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s failed: %v", o.Operation, o.Err)
}

// Invoke calls op on the Binding held by slot and never lets a failure escape
// as a panic. An absent Binding is reported as ErrBindingAbsent, joined with the
// recorded load failure when there is one. A nil slot holds nothing.
func Invoke(ctx context.Context, slot *Slot, op Operation, source string) (out Outcome) {
	out.Operation = op
	if slot == nil {
		out.Err = ErrBindingAbsent
		return out
	}

	b, ok := slot.Get()
	if !ok {
		if loadErr := slot.Err(); loadErr != nil {
			out.Err = fmt.Errorf("%w: %w", ErrBindingAbsent, loadErr)
		} else {
			out.Err = ErrBindingAbsent
		}
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			out.Text = ""
			out.Err = fmt.Errorf("%w: %v", ErrOperationPanic, r)
		}
	}()

	text, err := Dispatch(ctx, b, op, source)
	if err != nil {
		out.Err = err
		return out
	}
	out.Text = text
	return out
}
