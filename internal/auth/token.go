package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// SessionIssuer is the iss claim of every login session.
const SessionIssuer = "helpdesk"

const defaultSessionTTL = time.Hour

// ErrInvalidSession wraps every session verification failure.
var ErrInvalidSession = errors.New("invalid session")

// SessionClaims is the signed payload of a login session. Subject holds the
// username.
type SessionClaims struct {
	Role domain.AccountRole `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 login sessions. Expiry is judged
// against the injected clock.
type Sessions struct {
	key    []byte
	ttl    time.Duration
	clock  clock.Clock
	parser *jwt.Parser
}

// NewSessions builds a session signer. A non-positive ttl means one hour.
func NewSessions(secret string, ttl time.Duration, clk clock.Clock) *Sessions {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Sessions{
		key:   []byte(secret),
		ttl:   ttl,
		clock: clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(SessionIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clk.Now),
		),
	}
}

// Issue signs a session for account and reports when it lapses.
func (s *Sessions) Issue(account *domain.Account) (string, time.Time, error) {
	if account == nil || account.Username == "" {
		return "", time.Time{}, errors.New("session needs a named account")
	}
	issued := s.clock.Now().Truncate(time.Second)
	expires := issued.Add(s.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    SessionIssuer,
			Subject:   account.Username,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expires, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (s *Sessions) Verify(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}
	return claims, nil
}
