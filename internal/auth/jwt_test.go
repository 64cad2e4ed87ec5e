package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/library-api/internal/model"
)

const testSecret = "test-secret-at-least-16-chars!!"

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	ts, err := NewTokenService(TokenConfig{Secret: testSecret, TTL: time.Hour}, opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func johnClaims() Claims {
	return Claims{Subject: "user-123", Email: "john@example.com", Role: model.RoleMember}
}

// fakeClock is a settable clock for expiry tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService(t *testing.T) {
	cases := []struct {
		name    string
		cfg     TokenConfig
		wantErr bool
	}{
		{"short secret", TokenConfig{Secret: "short"}, true},
		{"exactly 16 chars", TokenConfig{Secret: "this-is-16-chars"}, false},
		{"HS384", TokenConfig{Secret: testSecret, Algorithm: "HS384"}, false},
		{"HS512", TokenConfig{Secret: testSecret, Algorithm: "HS512"}, false},
		{"RS256 not supported", TokenConfig{Secret: testSecret, Algorithm: "RS256"}, true},
		{"none not supported", TokenConfig{Secret: testSecret, Algorithm: "none"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTokenService(tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewTokenService() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

// =========================================================================
// ISSUE / VERIFY TESTS
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(johnClaims(), 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// JWT tokens have 3 dot-separated parts: header.payload.signature
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("Issue() token has %d segments, want 3", len(parts))
	}
}

func TestIssue_RequiresSubject(t *testing.T) {
	ts := newTestTokenService(t)

	if _, err := ts.Issue(Claims{Email: "x@example.com"}, time.Minute); err == nil {
		t.Fatal("Issue() should reject claims without a subject")
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(t, WithClock(clock.Now))

	token, err := ts.Issue(johnClaims(), 10*time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.Subject != "user-123" || got.Email != "john@example.com" || got.Role != model.RoleMember {
		t.Errorf("Verify() claims = %+v", got)
	}
	if !got.ExpiresAt.Equal(clock.t.Add(10 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, clock.t.Add(10*time.Minute))
	}
	if !got.IssuedAt.Equal(clock.t) {
		t.Errorf("IssuedAt = %v, want %v", got.IssuedAt, clock.t)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(t, WithClock(clock.Now))

	token, err := ts.Issue(johnClaims(), time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.t = clock.t.Add(2 * time.Minute)

	_, err = ts.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerify_LeewayAcceptsSlightlyExpiredToken(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	ts, err := NewTokenService(
		TokenConfig{Secret: testSecret, Leeway: 30 * time.Second},
		WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts.Issue(johnClaims(), time.Minute)
	clock.t = clock.t.Add(time.Minute + 10*time.Second)

	if _, err := ts.Verify(token); err != nil {
		t.Fatalf("Verify() within leeway error = %v", err)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue(johnClaims(), time.Hour)
	other, _ := ts.Issue(Claims{Subject: "someone-else", Role: model.RoleAdmin}, time.Hour)

	// Splice the payload of one token onto the signature of another.
	a := strings.Split(token, ".")
	b := strings.Split(other, ".")
	spliced := a[0] + "." + b[1] + "." + a[2]

	_, err := ts.Verify(spliced)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_RejectsAlteredSignatureEncoding(t *testing.T) {
	ts := newTestTokenService(t)
	token, err := ts.Issue(johnClaims(), time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Every other final character either flips signature bits or only the
	// unused padding bits; both must be rejected.
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := token[len(token)-1]
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		if c == last {
			continue
		}
		altered := token[:len(token)-1] + string(c)
		if _, err := ts.Verify(altered); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify() with final char %q error = %v, want ErrTokenInvalid", c, err)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService(TokenConfig{Secret: "correct-secret-32-chars-long!!!!"})
	ts2, _ := NewTokenService(TokenConfig{Secret: "wrong-secret-32-chars-long!!!!!!"})

	token, _ := ts1.Issue(johnClaims(), time.Hour)

	_, err := ts2.Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	ts1, _ := NewTokenService(TokenConfig{Secret: testSecret, Issuer: "someone-else"})
	ts2 := newTestTokenService(t)

	token, _ := ts1.Issue(johnClaims(), time.Hour)

	if _, err := ts2.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_RejectsOtherAlgorithm(t *testing.T) {
	ts := newTestTokenService(t) // HS256

	// Same secret, different HMAC variant.
	payload := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "library-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, payload).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := ts.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	ts := newTestTokenService(t)

	payload := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "library-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, payload).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := ts.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_MissingExpiry(t *testing.T) {
	ts := newTestTokenService(t)

	payload := jwtClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123", Issuer: "library-api"}}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString([]byte(testSecret))

	if _, err := ts.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	ts := newTestTokenService(t)

	payload := jwtClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "library-api",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString([]byte(testSecret))

	if _, err := ts.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, in := range []string{"", "not.a.jwt.token", "abc", "a.b.c"} {
		if _, err := ts.Verify(in); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q) error = %v, want ErrTokenInvalid", in, err)
		}
	}
}
