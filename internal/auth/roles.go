package auth

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// RoleSource supplies the privilege level consulted before mutations.
type RoleSource interface {
	Current(ctx context.Context) domain.Role
}

// RoleGate holds the process-wide selectable role and persists every change.
type RoleGate struct {
	mu    sync.Mutex
	prefs repository.PreferenceRepository
}

// NewRoleGate constructs a gate backed by the preference repository.
func NewRoleGate(prefs repository.PreferenceRepository) *RoleGate {
	return &RoleGate{prefs: prefs}
}

// Current returns the persisted role, User when unset.
func (g *RoleGate) Current(ctx context.Context) domain.Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prefs.Role(ctx)
}

// Set persists role.
func (g *RoleGate) Set(ctx context.Context, role domain.Role) (domain.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	role = domain.ParseRole(string(role))
	if err := g.prefs.SetRole(ctx, role); err != nil {
		return g.prefs.Role(ctx), err
	}
	return role, nil
}

// Toggle flips between Admin and User.
func (g *RoleGate) Toggle(ctx context.Context) (domain.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	current := g.prefs.Role(ctx)
	next := current.Toggled()
	if err := g.prefs.SetRole(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}

// StaticRole is a fixed RoleSource.
type StaticRole domain.Role

func (r StaticRole) Current(context.Context) domain.Role { return domain.Role(r) }
