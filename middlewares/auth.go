package middlewares

import (
	"context"

	"github.com/dmitrymomot/anvil/internal"
)

// MessageLoginRequired is the message of the 401 returned by Auth.
const MessageLoginRequired = "Please log in to access this resource"

// identityKey is the context key for the authenticated identity.
type identityKey struct{}

// Authenticator resolves the identity behind a credential, e.g. a bearer
// token or a session id. Any error rejects the request with 401.
type Authenticator func(ctx context.Context, credential string) (any, error)

// AuthConfig configures the auth middleware.
type AuthConfig struct {
	Extractor internal.Extractor // Where the credential is read from
	Message   string             // Message of the 401 response
}

// AuthOption configures AuthConfig.
type AuthOption func(*AuthConfig)

// WithAuthExtractor sets the credential sources tried in order.
// Defaults to the Authorization bearer token.
func WithAuthExtractor(sources ...internal.ExtractorSource) AuthOption {
	return func(cfg *AuthConfig) {
		cfg.Extractor = internal.NewExtractor(sources...)
	}
}

// WithAuthMessage overrides the 401 message.
func WithAuthMessage(msg string) AuthOption {
	return func(cfg *AuthConfig) {
		if msg != "" {
			cfg.Message = msg
		}
	}
}

// Auth returns middleware that rejects unauthenticated requests with 401.
// On success the identity returned by authn is stored in the request
// context and can be read with Identity or IdentityAs.
func Auth(authn Authenticator, opts ...AuthOption) internal.Middleware {
	cfg := &AuthConfig{
		Extractor: internal.NewExtractor(internal.FromBearerToken()),
		Message:   MessageLoginRequired,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			credential, ok := cfg.Extractor.Extract(c)
			if !ok {
				return internal.ErrUnauthorized(cfg.Message, internal.WithError(ErrNoCredentials))
			}

			identity, err := authn(c.Context(), credential)
			if err != nil || identity == nil {
				return internal.ErrUnauthorized(cfg.Message, internal.WithError(err))
			}

			c.Set(identityKey{}, identity)
			return next(c)
		}
	}
}

// Identity returns the identity stored by Auth, or nil.
func Identity(c internal.Context) any {
	return c.Get(identityKey{})
}

// IdentityAs returns the identity stored by Auth as T.
func IdentityAs[T any](c internal.Context) (T, bool) {
	v, ok := c.Get(identityKey{}).(T)
	return v, ok
}
