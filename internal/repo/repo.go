package repo

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/user_management/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("unique constraint violation")
)

type GormRepo struct {
	DB *gorm.DB
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Role{}, &models.Account{}, &models.RefreshToken{})
}

// translate maps driver errors onto the package sentinels so callers never
// match on gorm or driver types.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
