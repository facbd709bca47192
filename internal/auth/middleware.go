package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the logged-in caller.
type Principal struct {
	Username string
	Role     string
}

// SessionGate validates bearer tokens before ticket routes run.
type SessionGate struct {
	sessions *Sessions
	required bool
}

// NewSessionGate constructs middleware. When required is false every request
// passes as an anonymous principal.
func NewSessionGate(sessions *Sessions, required bool) *SessionGate {
	return &SessionGate{sessions: sessions, required: required}
}

// Handle enforces login for protected routes.
func (g *SessionGate) Handle(c *fiber.Ctx) error {
	if !g.required {
		c.Locals(principalKey, &Principal{Username: "anonymous"})
		return c.Next()
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := g.sessions.Verify(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{Username: claims.Subject, Role: string(claims.Role)})
	return c.Next()
}

// PrincipalFromContext retrieves the logged-in caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
