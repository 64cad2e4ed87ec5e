package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/auth"
	"github.com/sakif/library-api/internal/model"
	"github.com/sakif/library-api/internal/ratelimit"
	"github.com/sakif/library-api/internal/service"
)

// Authenticator is the part of service.AuthService the handler needs.
// Tests substitute a fake.
type Authenticator interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*service.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*service.AuthResult, error)
	CurrentUser(ctx context.Context, id string) (*model.User, error)
}

// AuthHandler serves the /auth routes.
//
//   - HandleSignUp → POST /auth/signup (public)
//   - HandleSignIn → POST /auth/signin (public, throttled per client IP)
//   - HandleMe     → GET  /auth/me     (protected)
type AuthHandler struct {
	auth    Authenticator
	limiter ratelimit.Limiter // nil disables throttling
	logger  *slog.Logger
}

func NewAuthHandler(svc Authenticator, limiter ratelimit.Limiter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    svc,
		limiter: limiter,
		logger:  logger,
	}
}

// SignUpRequest is the body of POST /auth/signup.
//
// max=72 on password is bcrypt's input limit; the service re-checks it in
// bytes, since validator counts characters.
type SignUpRequest struct {
	Name     string  `json:"name"     validate:"required,min=2,max=100"`
	Email    string  `json:"email"    validate:"required,email"`
	Password string  `json:"password" validate:"required,min=4,max=72"`
	Role     *string `json:"role"     validate:"omitempty,oneof=admin member"`
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by sign-up and sign-in.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// HandleSignUp registers a user and returns a token for them.
//
// HTTP: POST /auth/signup
// REQUEST BODY: {"name": "John Doe", "email": "john@doe.com", "password": "1234"}
// RESPONSES: 201 token, 400 invalid body, 409 email already registered
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	in := service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Role != nil {
		in.Role = model.Role(*req.Role)
	}

	res, err := h.auth.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, TokenResponse{AccessToken: res.AccessToken})
}

// HandleSignIn exchanges credentials for a token.
//
// HTTP: POST /auth/signin
// REQUEST BODY: {"email": "john@doe.com", "password": "1234"}
// RESPONSES: 200 token, 400 invalid body, 401 invalid credentials,
// 429 too many failed attempts from this client
//
// THROTTLING:
// Only credential failures count. A locked client is turned away before the
// body is even read, so a locked attacker costs us no bcrypt work.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := clientKey(r)

	if wait := h.lockedFor(ctx, key); wait > 0 {
		writeError(w, h.logger, apperror.TooManyRequests("too many failed sign-in attempts", wait))
		return
	}

	var req SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.recordFailure(ctx, key)
		}
		writeError(w, h.logger, err)
		return
	}

	h.resetFailures(ctx, key)
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: res.AccessToken})
}

// HandleMe returns the profile of the authenticated user.
//
// HTTP: GET /auth/me
// Auth: Required (the gate has put verified claims in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Only reachable if the route was registered without the gate.
		writeError(w, h.logger, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// LIMITER ERRORS FAIL OPEN:
// If the limiter's backend (Redis) is down, sign-in keeps working without
// throttling. The failure is logged at warn level.

func (h *AuthHandler) lockedFor(ctx context.Context, key string) time.Duration {
	if h.limiter == nil {
		return 0
	}
	wait, err := h.limiter.Check(ctx, key)
	if err != nil {
		h.logger.Warn("sign-in limiter check failed", slog.String("error", err.Error()))
		return 0
	}
	return wait
}

func (h *AuthHandler) recordFailure(ctx context.Context, key string) {
	if h.limiter == nil {
		return
	}
	lock, err := h.limiter.Failure(ctx, key)
	if err != nil {
		h.logger.Warn("sign-in limiter failure not recorded", slog.String("error", err.Error()))
		return
	}
	if lock > 0 {
		h.logger.Warn("sign-in locked",
			slog.String("client", key),
			slog.Duration("lockout", lock),
		)
	}
}

func (h *AuthHandler) resetFailures(ctx context.Context, key string) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.Reset(ctx, key); err != nil {
		h.logger.Warn("sign-in limiter reset failed", slog.String("error", err.Error()))
	}
}

// clientKey identifies the caller for throttling by the connection's peer
// address. Forwarded headers count only when the server runs with a trusted
// proxy, in which case RealIP has already rewritten RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
