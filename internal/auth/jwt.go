// Package auth provides credential hashing, bearer-token issuance and the
// access gate that sits in front of every route.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs /auth/signup or /auth/signin with email + password
//  2. AuthService verifies (or creates) the user and asks TokenService for a token
//  3. The token goes back in the JSON body as "access_token"
//  4. On later calls the client sends "Authorization: Bearer <token>"
//  5. Gate verifies the token and puts the Claims in the request context
//
// WHY JWT?
// JWT (JSON Web Token) is stateless: the server doesn't need to store session
// data. All the information needed (user id, email, role, expiry) is inside the
// signed token. The signature ensures nobody can tamper with it without the
// secret key.
//
// JWT STRUCTURE (three base64url parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"<id>","email":"...","role":"member","exp":...}
//	- Signature: HMAC(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/library-api/internal/model"
)

var (
	// ErrTokenInvalid covers every reason a token cannot be trusted: bad
	// signature, wrong secret, malformed text, unexpected algorithm, wrong
	// issuer or missing subject.
	ErrTokenInvalid = errors.New("auth: invalid token")
	// ErrTokenExpired is returned when the signature is fine but exp has passed.
	ErrTokenExpired = errors.New("auth: token expired")
)

// MinSecretLength is the shortest signing secret NewTokenService accepts.
const MinSecretLength = 16

// Claims is the identity carried inside a token.
//
// Claims are only ever built by TokenService: either from a user that was just
// created/verified (Issue) or from a token whose signature checked out (Verify).
type Claims struct {
	Subject   string     `json:"sub"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	IssuedAt  time.Time  `json:"-"`
	ExpiresAt time.Time  `json:"-"`
}

// ClaimsForUser builds the claim set for u.
func ClaimsForUser(u *model.User) Claims {
	return Claims{Subject: u.ID, Email: u.Email, Role: u.Role}
}

// jwtClaims is the wire payload. It embeds jwt.RegisteredClaims which supplies
// sub, iss, iat and exp.
type jwtClaims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenConfig holds everything TokenService needs. Only Secret is required.
type TokenConfig struct {
	Secret    string
	Algorithm string        // HS256 (default), HS384 or HS512
	Issuer    string        // default "library-api"
	TTL       time.Duration // used when Issue gets ttl <= 0; 1h if zero
	Leeway    time.Duration // tolerated clock skew on exp; zero by default
}

// TokenService handles JWT creation and validation.
//
// The secret, algorithm and issuer are fixed at construction and never change,
// so one TokenService is safe to share between all request goroutines.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now as the source of "now" for both issuing and
// verifying. Tests use it to move past a token's expiry.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService from cfg.
// Example secret: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}

	method, err := signingMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	s := &TokenService{
		secret: []byte(cfg.Secret),
		method: method,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		now:    time.Now,
	}
	if s.issuer == "" {
		s.issuer = "library-api"
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func signingMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	switch alg {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", alg)
	}
}

// TTL is the default token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs c with iat = now and exp = now + ttl.
// A non-positive ttl falls back to the configured default.
func (s *TokenService) Issue(c Claims, ttl time.Duration) (string, error) {
	if c.Subject == "" {
		return "", errors.New("auth: claims have no subject")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()

	payload := jwtClaims{
		Email: c.Email,
		Role:  c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	signed, err := jwt.NewWithClaims(s.method, payload).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and verifies a token string.
//
// VALIDATION CHECKS (performed by the jwt library, in this order):
//   - Signature is valid for our secret and algorithm
//   - exp is present and in the future (within leeway)
//   - iss matches ours
//
// Claims are only read after the signature has been checked.
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm, an attacker could send a token with
// "alg":"none" and a lax library might accept it. jwt.WithValidMethods
// rejects anything but the configured HMAC variant.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	var c jwtClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
		// Reject signatures whose unused trailing base64 bits are set, so a
		// token has exactly one accepted encoding.
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid || c.Subject == "" {
		return nil, ErrTokenInvalid
	}

	out := &Claims{
		Subject: c.Subject,
		Email:   c.Email,
		Role:    c.Role,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}
