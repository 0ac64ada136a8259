package httpauth

import (
	"context"
	"net/http"
)

// BasicAuth implements HTTP Basic Authentication according to RFC 7617.
// An empty Username disables it.
type BasicAuth struct {
	Username string
	Password string
}

func NewBasicAuth(username, password string) *BasicAuth {
	return &BasicAuth{Username: username, Password: password}
}

func (b *BasicAuth) AuthenticateWithContext(ctx context.Context, req *http.Request) error {
	return applyAuthWithContext(ctx, req, func(r *http.Request) {
		if b.Username != "" {
			r.SetBasicAuth(b.Username, b.Password)
		}
	})
}

func (b *BasicAuth) Name() string {
	return "Basic"
}
