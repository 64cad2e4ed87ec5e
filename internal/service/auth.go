package service

// AuthService is the business logic layer for authentication:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt)  ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Sign-up: reject taken emails, hash the password, store the user, issue a token
//   - Sign-in: look the user up, verify the password, issue a token
//   - Keep every credential failure indistinguishable to the caller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/auth"
	"github.com/sakif/library-api/internal/model"
	"github.com/sakif/library-api/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for an unknown email AND for a wrong
	// password. Callers must not be able to tell which one happened.
	ErrInvalidCredentials = apperror.Unauthorized("invalid credentials")

	// ErrEmailAlreadyExists is returned when sign-up hits a registered email,
	// whether the pre-check or the INSERT noticed it.
	ErrEmailAlreadyExists = apperror.ConflictMessage("email already exists")
)

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository → read/write user records
//   - tokens     *auth.TokenService        → issue JWTs
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - logger     *slog.Logger              → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the token issued for them.
type AuthResult struct {
	User        *model.User
	AccessToken string
	ExpiresIn   time.Duration
}

// SignUpInput is the data needed to register. Role is optional.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// NormalizeEmail trims and lowercases an email so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new user and signs them in.
//
// UNIQUENESS:
// The GetByEmail pre-check only produces a friendly early error. The real
// guarantee is the UNIQUE(email) constraint: if two sign-ups race past the
// pre-check, the loser's INSERT fails with apperror.ErrConflict, which is
// mapped to the same ErrEmailAlreadyExists.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if in.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	role := in.Role
	if role == "" {
		role = model.RoleMember
	}
	if !role.Valid() {
		return nil, apperror.ValidationFailed("role", "role must be one of admin, member")
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailAlreadyExists
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("role", string(user.Role)),
	)

	return s.issue(user)
}

// SignIn verifies credentials and issues a token.
//
// TIMING:
// When the email is unknown we still run one bcrypt comparison (against a
// dummy hash), so "no such user" costs about as much as "wrong password".
//
// Store failures are returned as errors (500), never as invalid credentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		s.logger.Debug("sign-in rejected", slog.String("userID", user.ID))
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// CurrentUser returns the stored profile of the token subject.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// The token is valid but the account is gone.
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(auth.ClaimsForUser(user), 0)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}
	return &AuthResult{
		User:        user,
		AccessToken: token,
		ExpiresIn:   s.tokens.TTL(),
	}, nil
}
