package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Visibility marks whether a route needs a verified bearer token.
//
// The zero value is "unset". An unset marker is never treated as public:
// ResolveVisibility turns it into Protected.
type Visibility int

const (
	VisibilityUnset Visibility = iota
	Protected
	Public
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	default:
		return "unset"
	}
}

// ResolveVisibility combines a group-level and a handler-level marker.
// The handler marker wins when set, then the group marker, then Protected.
func ResolveVisibility(group, handler Visibility) Visibility {
	if handler != VisibilityUnset {
		return handler
	}
	if group != VisibilityUnset {
		return group
	}
	return Protected
}

// ErrUnauthenticated is the only outcome a client ever sees from a denied
// request. The concrete reason stays in the debug log.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. With a plain string key, ANY
// package that knows the string can read or shadow the value. A package-private
// type means only THIS package can read or write the claims.
type contextKey struct{}

// WithClaims returns a copy of ctx carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ClaimsFromContext returns the verified identity attached by the gate.
//
// Usage in handlers:
//
//	claims, ok := auth.ClaimsFromContext(r.Context())
//	if !ok {
//	    // route was public, or gate not installed
//	}
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok && c != nil
}

// Verifier is the part of TokenService the gate depends on.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// Gate decides, per request, whether it may reach its handler.
//
// DECISION FLOW:
//
//	visibility == Public    → allow, no header inspection
//	visibility == Protected → need "Authorization: Bearer <token>"
//	                          → Verify(token) ok   → allow, claims in context
//	                          → anything else      → 401
//
// The gate keeps no state between requests; every protected request pays
// for one signature check.
type Gate struct {
	tokens Verifier
	logger *slog.Logger
}

// NewGate creates a Gate backed by tokens.
func NewGate(tokens Verifier, logger *slog.Logger) *Gate {
	return &Gate{tokens: tokens, logger: logger}
}

// Guard returns a middleware enforcing visibility v on the wrapped handler.
// Pass the already-resolved marker (see ResolveVisibility).
func (g *Gate) Guard(v Visibility) func(http.Handler) http.Handler {
	v = ResolveVisibility(VisibilityUnset, v)

	return func(next http.Handler) http.Handler {
		if v == Public {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.authenticate(r)
			if err != nil {
				g.logger.Debug("request denied",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("reason", err.Error()),
				)
				writeUnauthenticated(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func (g *Gate) authenticate(r *http.Request) (*Claims, error) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, errors.New("missing or malformed Authorization header")
	}
	return g.tokens.Verify(token)
}

// BearerToken extracts the token from an Authorization header value.
//
// Only the exact form "Bearer <token>" is accepted: the scheme is
// case-sensitive, followed by a single space and a non-empty token.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := header[len(prefix):]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// writeUnauthenticated sends the same body for every denial so the response
// never hints at why a token was rejected.
func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="library-api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": "valid authentication required",
	})
}
