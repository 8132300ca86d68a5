package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Skotchmaster/user_management/internal/events"
	"github.com/Skotchmaster/user_management/internal/metrics"
	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/repo"
	"github.com/Skotchmaster/user_management/internal/tokens"
	"github.com/Skotchmaster/user_management/pkg/logging"
)

const (
	TokenTypeBearer = "Bearer"
	publishTimeout  = 5 * time.Second

	// dummyPassword is hashed once and verified against when no stored hash
	// exists, so failed logins cost the same whether or not the email is known.
	dummyPassword = "user-management-dummy-password"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CredentialStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	FindAccountByID(ctx context.Context, id uint) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	FindRoleByName(ctx context.Context, name models.RoleName) (*models.Role, error)

	FindRefreshTokenByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error
	DeleteRefreshToken(ctx context.Context, rt *models.RefreshToken) error
	DeleteRefreshTokenByAccount(ctx context.Context, accountID uint) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type AuthService struct {
	Store   CredentialStore
	Hasher  PasswordHasher
	Tokens  *tokens.Service
	Events  events.Publisher
	Metrics *metrics.Metrics
	Now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// SignupInput carries a local registration. bcrypt only reads the first 72
// bytes of a password, longer ones are refused.
type SignupInput struct {
	Username string `validate:"required,min=3,max=20"`
	Email    string `validate:"required,email,max=320"`
	Password string `validate:"required,max=72"`
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	AccessExp    time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (account *models.Account, err error) {
	defer func() { s.Metrics.Observe(metrics.OpSignup, err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	l := logging.FromContext(ctx).With("svc", "auth.signup", "username", in.Username)

	if err := validate.Struct(in); err != nil {
		l.Warn("signup_failed", "reason", "validation", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.checkAvailable(ctx, in.Username, in.Email); err != nil {
		l.Warn("signup_failed", "reason", err.Error())
		return nil, err
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("signup_error", "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role, err := s.Store.FindRoleByName(ctx, models.RoleUser)
	if err != nil {
		l.Error("signup_error", "reason", "default role missing", "error", err)
		return nil, fmt.Errorf("find role %s: %w", models.RoleUser, err)
	}

	account = &models.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: &pwHash,
		Provider:     models.ProviderLocal,
		Roles:        []models.Role{*role},
	}
	if err := s.Store.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			err = s.classifyConflict(ctx, in.Username, in.Email)
			l.Warn("signup_failed", "reason", "insert conflict", "error", err)
			return nil, err
		}
		l.Error("signup_error", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("save account: %w", err)
	}

	s.publish(ctx, events.AccountEvent{
		Type:      events.TypeAccountRegistered,
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Provider:  string(account.Provider),
	})
	l.Info("signup_success", "account_id", account.ID)
	return account, nil
}

// checkAvailable reports a taken username before a taken email.
func (s *AuthService) checkAvailable(ctx context.Context, username, email string) error {
	taken, err := s.Store.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return ErrUsernameTaken
	}

	taken, err = s.Store.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

// classifyConflict names the constraint a concurrent signup won.
func (s *AuthService) classifyConflict(ctx context.Context, username, email string) error {
	err := s.checkAvailable(ctx, username, email)
	if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
		return err
	}
	return ErrStorageConflict
}

// verifyDummy spends one hash comparison on a login that has nothing to
// compare against.
func (s *AuthService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash(dummyPassword)
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_ = s.Hasher.Verify(password, s.dummyHash)
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	defer func() { s.Metrics.Observe(metrics.OpLogin, err) }()

	email = NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	if email == "" || password == "" {
		l.Warn("login_failed", "reason", "validation")
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	account, err := s.Store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.verifyDummy(password)
			l.Warn("login_failed", "reason", "invalid credentials")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_error", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("find account: %w", err)
	}
	if !account.HasPassword() {
		s.verifyDummy(password)
		l.Warn("login_failed", "reason", "invalid credentials")
		return nil, ErrInvalidCredentials
	}
	if !s.Hasher.Verify(password, *account.PasswordHash) {
		l.Warn("login_failed", "reason", "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	accessToken, accessExp, err := s.Tokens.IssueAccessToken(account.ID, account.RoleNames())
	if err != nil {
		l.Error("login_error", "reason", "cannot sign access token", "error", err)
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh := s.Tokens.IssueRefreshToken(account.ID)
	if err := s.Store.SaveRefreshToken(ctx, &refresh); err != nil {
		l.Error("login_error", "reason", "cannot store refresh token", "error", err)
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	s.publish(ctx, events.AccountEvent{
		Type:      events.TypeAccountLoggedIn,
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Provider:  string(account.Provider),
	})
	l.Info("login_success", "account_id", account.ID)

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		TokenType:    TokenTypeBearer,
		AccessExp:    accessExp,
		RefreshExp:   refresh.ExpiresAt,
	}, nil
}

// Refresh issues a new access token for a stored refresh token. Roles are
// reloaded so membership changes apply from the next refresh. The refresh
// token itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, token string) (res *RefreshResult, err error) {
	defer func() { s.Metrics.Observe(metrics.OpRefresh, err) }()

	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if strings.TrimSpace(token) == "" {
		l.Warn("refresh_failed", "reason", "empty token")
		return nil, ErrInvalidRefreshToken
	}

	stored, err := s.Store.FindRefreshTokenByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "reason", "unknown token")
			return nil, ErrInvalidRefreshToken
		}
		l.Error("refresh_error", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	l = l.With("account_id", stored.AccountID)

	if stored.Expired(s.now()) {
		if err := s.Store.DeleteRefreshToken(ctx, stored); err != nil {
			l.Error("refresh_error", "reason", "cannot delete expired token", "error", err)
			return nil, fmt.Errorf("delete expired refresh token: %w", err)
		}
		l.Warn("refresh_failed", "reason", "expired token")
		return nil, ErrRefreshTokenExpired
	}

	account, err := s.Store.FindAccountByID(ctx, stored.AccountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "reason", "account gone")
			return nil, ErrAccountNotFound
		}
		l.Error("refresh_error", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("find account: %w", err)
	}

	accessToken, accessExp, err := s.Tokens.IssueAccessToken(account.ID, account.RoleNames())
	if err != nil {
		l.Error("refresh_error", "reason", "cannot sign access token", "error", err)
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	l.Info("refresh_success")
	return &RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: stored.Token,
		TokenType:    TokenTypeBearer,
		AccessExp:    accessExp,
	}, nil
}

// Logout drops the account's refresh token. Having none is not an error.
// Access tokens already issued stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, email string) (err error) {
	defer func() { s.Metrics.Observe(metrics.OpLogout, err) }()

	email = NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.logout", "email", email)

	account, err := s.Store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("logout_failed", "reason", "unknown account")
			return ErrAccountNotFound
		}
		l.Error("logout_error", "reason", "db_error", "error", err)
		return fmt.Errorf("find account: %w", err)
	}

	if err := s.Store.DeleteRefreshTokenByAccount(ctx, account.ID); err != nil {
		l.Error("logout_error", "reason", "cannot revoke refresh token", "error", err)
		return fmt.Errorf("delete refresh token: %w", err)
	}

	l.Info("logout_success", "account_id", account.ID)
	return nil
}

// LogoutAccount is Logout limited to the caller's own account. Any email that
// is not the caller's, known or not, is ErrForbidden.
func (s *AuthService) LogoutAccount(ctx context.Context, callerID uint, email string) error {
	email = NormalizeEmail(email)

	account, err := s.Store.FindAccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("find account: %w", err)
	}
	if err != nil || account.ID != callerID {
		logging.FromContext(ctx).Warn("logout_failed", "svc", "auth.logout", "reason", "email does not belong to caller", "account_id", callerID)
		return ErrForbidden
	}
	return s.Logout(ctx, email)
}

// IssueFederatedAccessToken signs an access token for a principal produced by
// the identity reconciler.
func (s *AuthService) IssueFederatedAccessToken(ctx context.Context, p *models.Principal, provider string) (string, time.Time, error) {
	token, exp, err := s.Tokens.IssueAccessToken(p.AccountID, p.Authorities)
	s.Metrics.Observe(metrics.OpFederatedLogin, err)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue access token: %w", err)
	}

	s.publish(ctx, events.AccountEvent{
		Type:      events.TypeAccountFederatedLogin,
		AccountID: p.AccountID,
		Email:     p.Email,
		Provider:  provider,
	})
	return token, exp, nil
}

func (s *AuthService) publish(ctx context.Context, ev events.AccountEvent) {
	if s.Events == nil {
		return
	}
	ev.OccurredAt = s.now()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	key := strconv.FormatUint(uint64(ev.AccountID), 10)
	if err := s.Events.Publish(ctx, events.TopicAccountEvents, key, ev); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "event", ev.Type, "error", err)
	}
}
