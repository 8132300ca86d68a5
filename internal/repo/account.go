package repo

import (
	"context"

	"github.com/Skotchmaster/user_management/internal/models"
)

func (r *GormRepo) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.DB.WithContext(ctx).Preload("Roles").Where("email = ?", email).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *GormRepo) FindAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := r.DB.WithContext(ctx).Preload("Roles").Where("username = ?", username).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *GormRepo) FindAccountByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.DB.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *GormRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *GormRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *GormRepo) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

// SaveAccount inserts a new account (ID == 0) or updates every column of an
// existing one. Role links are inserted, never removed.
func (r *GormRepo) SaveAccount(ctx context.Context, account *models.Account) error {
	db := r.DB.WithContext(ctx)
	if account.ID == 0 {
		return translate(db.Create(account).Error)
	}
	return translate(db.Save(account).Error)
}

func (r *GormRepo) FindRoleByName(ctx context.Context, name models.RoleName) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *GormRepo) CountRoles(ctx context.Context) (int64, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Role{}).Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (r *GormRepo) CreateRoles(ctx context.Context, roles []models.Role) error {
	return translate(r.DB.WithContext(ctx).Create(&roles).Error)
}
