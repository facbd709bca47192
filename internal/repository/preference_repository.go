package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/query"
)

const (
	RoleKey   = "helpdeskRole"
	SortByKey = "helpdeskSortBy"
)

// PreferenceRepository persists the per-installation role and sort choice.
type PreferenceRepository interface {
	Role(ctx context.Context) domain.Role
	SetRole(ctx context.Context, role domain.Role) error
	SortKey(ctx context.Context) query.SortKey
	SetSortKey(ctx context.Context, key query.SortKey) error
}

type preferenceRepository struct {
	store  persistence.Store
	logger *zap.Logger
}

// NewPreferenceRepository instantiates repository.
func NewPreferenceRepository(store persistence.Store, logger *zap.Logger) PreferenceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &preferenceRepository{store: store, logger: logger}
}

func (r *preferenceRepository) Role(ctx context.Context) domain.Role {
	raw, _, err := r.store.Get(ctx, RoleKey)
	if err != nil {
		r.logger.Warn("load role: store read failed", zap.Error(err))
		return domain.RoleUser
	}
	return domain.ParseRole(raw)
}

func (r *preferenceRepository) SetRole(ctx context.Context, role domain.Role) error {
	if err := r.store.Set(ctx, RoleKey, string(domain.ParseRole(string(role)))); err != nil {
		return fmt.Errorf("save role: %w", err)
	}
	return nil
}

func (r *preferenceRepository) SortKey(ctx context.Context) query.SortKey {
	raw, _, err := r.store.Get(ctx, SortByKey)
	if err != nil {
		r.logger.Warn("load sort preference: store read failed", zap.Error(err))
		return query.DefaultSortKey
	}
	key, ok := query.ParseSortKey(raw)
	if !ok {
		return query.DefaultSortKey
	}
	return key
}

func (r *preferenceRepository) SetSortKey(ctx context.Context, key query.SortKey) error {
	if _, ok := query.ParseSortKey(string(key)); !ok {
		return fmt.Errorf("unknown sort key %q", key)
	}
	if err := r.store.Set(ctx, SortByKey, string(key)); err != nil {
		return fmt.Errorf("save sort preference: %w", err)
	}
	return nil
}
