// Package httpauth provides authentication strategies for fetching bootstrap artifacts over HTTP.
package httpauth

import (
	"context"
	"net/http"
)

// Authenticator applies credentials to an outgoing artifact request.
type Authenticator interface {
	// AuthenticateWithContext modifies req in place. It fails if ctx is already done.
	AuthenticateWithContext(ctx context.Context, req *http.Request) error

	// Name returns a descriptive name of the authentication method.
	Name() string
}

// applyAuthWithContext checks ctx before running authFn against req.
func applyAuthWithContext(
	ctx context.Context,
	req *http.Request,
	authFn func(*http.Request),
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	authFn(req)
	return nil
}
