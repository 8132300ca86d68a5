package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/repo"
	"github.com/Skotchmaster/user_management/pkg/logging"
)

type RoleStore interface {
	CountRoles(ctx context.Context) (int64, error)
	CreateRoles(ctx context.Context, roles []models.Role) error
}

// SeedRoles inserts the fixed role set into an empty role table. It runs once
// before the server accepts traffic and is safe to repeat.
func SeedRoles(ctx context.Context, store RoleStore) error {
	l := logging.FromContext(ctx).With("svc", "roles.seed")

	n, err := store.CountRoles(ctx)
	if err != nil {
		return fmt.Errorf("count roles: %w", err)
	}
	if n > 0 {
		l.Debug("roles already seeded", "count", n)
		return nil
	}

	roles := make([]models.Role, 0, len(models.AllRoles))
	for _, name := range models.AllRoles {
		roles = append(roles, models.Role{Name: name})
	}
	if err := store.CreateRoles(ctx, roles); err != nil {
		// another instance seeded between the count and the insert
		if errors.Is(err, repo.ErrConflict) {
			l.Info("roles seeded concurrently")
			return nil
		}
		return fmt.Errorf("create roles: %w", err)
	}

	l.Info("roles seeded", "count", len(roles))
	return nil
}
