package service

import (
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// LoginResult is returned after a successful login.
type LoginResult struct {
	Account   *domain.Account
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates the login gate.
type AuthService struct {
	accounts *auth.Directory
	sessions *auth.Sessions
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, accounts *auth.Directory) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: auth.NewSessions(cfg.JWTSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, clock.Real()),
	}
}

// Login authenticates a username/password pair and issues a session token.
// The account role is informational; ticket permissions follow the stored
// role preference.
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password are required", nil)
	}
	account, err := s.accounts.Authenticate(username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, apperrors.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}
	token, exp, err := s.sessions.Issue(account)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Account: account, Token: token, ExpiresAt: exp}, nil
}

// Sessions exposes the session signer to the bearer middleware.
func (s *AuthService) Sessions() *auth.Sessions {
	return s.sessions
}
