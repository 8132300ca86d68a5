package oauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/repo"
	"github.com/Skotchmaster/user_management/pkg/logging"
)

const (
	maxRegisterAttempts = 3

	// Generated usernames obey the same length rule as a username change.
	minUsernameLen = 3
	maxUsernameLen = 20
)

type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	FindRoleByName(ctx context.Context, name models.RoleName) (*models.Role, error)
	SaveAccount(ctx context.Context, account *models.Account) error
}

// Reconciler maps a federated identity onto a local account, creating the
// account on first login and syncing email and avatar on later ones.
type Reconciler struct {
	Store AccountStore
}

func (r *Reconciler) Reconcile(ctx context.Context, providerName string, attrs map[string]any) (*models.Principal, error) {
	l := logging.FromContext(ctx).With("svc", "oauth.reconcile", "provider", providerName)

	provider, err := ParseProvider(providerName)
	if err != nil {
		l.Warn("reconcile_failed", "reason", "unsupported provider")
		return nil, err
	}
	info, err := NewUserInfo(provider, attrs)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(info.Email())
	if email == "" {
		l.Warn("reconcile_failed", "reason", "provider returned no email")
		return nil, ErrMissingFederatedEmail
	}

	var account *models.Account
	for attempt := 0; attempt < maxRegisterAttempts; attempt++ {
		account, err = r.Store.FindAccountByEmail(ctx, email)
		switch {
		case err == nil:
			if account.Provider != provider {
				l.Warn("reconcile_failed", "reason", "provider conflict", "account_provider", account.Provider)
				return nil, fmt.Errorf("%w: signed up with %s", ErrProviderConflict, account.Provider)
			}
			if err := r.syncAccount(ctx, account, email, info); err != nil {
				return nil, err
			}
			l.Info("federated_account_synced", "account_id", account.ID)
			return models.NewPrincipal(account, attrs), nil

		case errors.Is(err, repo.ErrNotFound):
			account, err = r.registerAccount(ctx, provider, email, info)
			if errors.Is(err, repo.ErrConflict) {
				// Lost a race on email or generated username; look again.
				l.Warn("register_conflict", "attempt", attempt+1, "error", err)
				continue
			}
			if err != nil {
				return nil, err
			}
			l.Info("federated_account_created", "account_id", account.ID, "username", account.Username)
			return models.NewPrincipal(account, attrs), nil

		default:
			return nil, fmt.Errorf("find account by email: %w", err)
		}
	}
	return nil, fmt.Errorf("register federated account: %w", err)
}

func (r *Reconciler) syncAccount(ctx context.Context, account *models.Account, email string, info UserInfo) error {
	account.Email = email
	if avatar := info.AvatarURL(); avatar != "" {
		account.ProfilePicture = &avatar
	}
	if err := r.Store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("sync federated account: %w", err)
	}
	return nil
}

func (r *Reconciler) registerAccount(ctx context.Context, provider models.Provider, email string, info UserInfo) (*models.Account, error) {
	role, err := r.Store.FindRoleByName(ctx, models.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("find default role: %w", err)
	}

	username, err := r.uniqueUsername(ctx, email)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Email:    email,
		Username: username,
		Provider: provider,
		Roles:    []models.Role{*role},
	}
	if id := info.ExternalID(); id != "" {
		account.ProviderID = &id
	}
	if avatar := info.AvatarURL(); avatar != "" {
		account.ProfilePicture = &avatar
	}

	if err := r.Store.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// uniqueUsername probes local, local1, local2, ... until one is free. The
// local part is trimmed so that it and its suffix stay within
// maxUsernameLen, and too short ones get a "user_" prefix.
func (r *Reconciler) uniqueUsername(ctx context.Context, email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	base := []rune(local)
	switch {
	case len(base) == 0:
		base = []rune("user")
	case len(base) < minUsernameLen:
		base = []rune("user_" + local)
	}

	for n := 0; ; n++ {
		candidate := usernameCandidate(base, n)
		taken, err := r.Store.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
}

func usernameCandidate(base []rune, n int) string {
	suffix := ""
	if n > 0 {
		suffix = strconv.Itoa(n)
	}
	if keep := maxUsernameLen - len(suffix); len(base) > keep {
		base = base[:keep]
	}
	return string(base) + suffix
}
