package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/user_management/internal/models"
)

func (r *GormRepo) FindRefreshTokenByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&rt).Error; err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

func (r *GormRepo) FindRefreshTokenByAccount(ctx context.Context, accountID uint) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("account_id = ?", accountID).First(&rt).Error; err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

// SaveRefreshToken stores rt as the account's only refresh token. A previous
// token for the same account is overwritten in one statement, so concurrent
// logins resolve as last writer wins.
func (r *GormRepo) SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "updated_at"}),
	}).Create(rt).Error
	return translate(err)
}

func (r *GormRepo) DeleteRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	return translate(r.DB.WithContext(ctx).Where("token = ?", rt.Token).Delete(&models.RefreshToken{}).Error)
}

func (r *GormRepo) DeleteRefreshTokenByAccount(ctx context.Context, accountID uint) error {
	return translate(r.DB.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.RefreshToken{}).Error)
}
