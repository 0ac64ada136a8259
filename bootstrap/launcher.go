package bootstrap

import (
	"context"

	"github.com/oteto/gonkey-playground/platform"
)

// Launcher makes a runtime available by binding it into a Slot. Start must not
// block; the returned channel receives the final error and is then closed.
type Launcher interface {
	Start(ctx context.Context, slot *platform.Slot) <-chan error
}

// Immediate is a Launcher for an in-process Binding that needs no loading.
type Immediate struct {
	Binding platform.Binding
}

func (i Immediate) Start(_ context.Context, slot *platform.Slot) <-chan error {
	done := make(chan error, 1)
	done <- slot.Bind(i.Binding)
	close(done)
	return done
}
