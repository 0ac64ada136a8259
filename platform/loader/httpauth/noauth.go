package httpauth

import (
	"context"
	"net/http"
)

// NoAuth sends requests without credentials.
type NoAuth struct{}

func NewNoAuth() *NoAuth {
	return &NoAuth{}
}

func (n *NoAuth) AuthenticateWithContext(ctx context.Context, req *http.Request) error {
	return applyAuthWithContext(ctx, req, func(*http.Request) {})
}

func (n *NoAuth) Name() string {
	return "None"
}
