package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/repo"
	"github.com/Skotchmaster/user_management/internal/storage"
	"github.com/Skotchmaster/user_management/pkg/logging"
)

const profilePictureDir = "profile-pictures"

type ProfileStore interface {
	FindAccountByID(ctx context.Context, id uint) (*models.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	SaveAccount(ctx context.Context, account *models.Account) error
}

type UserService struct {
	Store   ProfileStore
	Objects storage.ObjectStore
}

type PictureUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type usernameInput struct {
	Username string `validate:"required,min=3,max=20"`
}

func (s *UserService) Profile(ctx context.Context, accountID uint) (*models.Account, error) {
	return s.load(ctx, accountID)
}

func (s *UserService) UpdateUsername(ctx context.Context, accountID uint, username string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	l := logging.FromContext(ctx).With("svc", "user.update", "account_id", accountID)

	if err := validate.Struct(usernameInput{Username: username}); err != nil {
		l.Warn("update_failed", "reason", "validation", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if username != account.Username {
		taken, err := s.Store.ExistsByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken {
			l.Warn("update_failed", "reason", "username taken")
			return nil, ErrUsernameTaken
		}
		account.Username = username
	}

	if err := s.Store.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			l.Warn("update_failed", "reason", "username taken at save")
			return nil, ErrUsernameTaken
		}
		l.Error("update_error", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("save account: %w", err)
	}

	l.Info("update_success")
	return account, nil
}

// UpdateProfilePicture stores a new picture and points the account at it.
// Failing to remove the previous object is logged and otherwise ignored.
func (s *UserService) UpdateProfilePicture(ctx context.Context, accountID uint, up PictureUpload) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "user.picture", "account_id", accountID)

	if len(up.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if old := storedPictureKey(account); old != "" {
		if err := s.Objects.Delete(ctx, old); err != nil {
			l.Warn("picture_delete_failed", "key", old, "error", err)
		}
	}

	key := fmt.Sprintf("%s/%d/%s%s", profilePictureDir, account.ID, uuid.NewString(), path.Ext(up.Filename))
	key, err = s.Objects.Put(ctx, key, up.Data, up.ContentType)
	if err != nil {
		l.Error("picture_upload_failed", "error", err)
		return nil, fmt.Errorf("upload picture: %w", err)
	}

	account.ProfilePicture = &key
	if err := s.Store.SaveAccount(ctx, account); err != nil {
		l.Error("picture_error", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("save account: %w", err)
	}

	l.Info("picture_updated", "key", key)
	return account, nil
}

func (s *UserService) DeleteProfilePicture(ctx context.Context, accountID uint) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "user.picture", "account_id", accountID)

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.ProfilePicture == nil {
		return account, nil
	}

	if key := storedPictureKey(account); key != "" {
		if err := s.Objects.Delete(ctx, key); err != nil {
			l.Error("picture_delete_failed", "key", key, "error", err)
			return nil, fmt.Errorf("delete picture: %w", err)
		}
	}

	account.ProfilePicture = nil
	if err := s.Store.SaveAccount(ctx, account); err != nil {
		l.Error("picture_error", "reason", "db_error", "error", err)
		return nil, fmt.Errorf("save account: %w", err)
	}

	l.Info("picture_deleted")
	return account, nil
}

func (s *UserService) load(ctx context.Context, accountID uint) (*models.Account, error) {
	account, err := s.Store.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

// storedPictureKey returns the object key of an uploaded picture. Provider
// avatar URLs are not ours to delete.
func storedPictureKey(a *models.Account) string {
	if a.ProfilePicture == nil {
		return ""
	}
	key := *a.ProfilePicture
	if !strings.HasPrefix(key, profilePictureDir+"/") {
		return ""
	}
	return key
}
