package models

import (
	"strconv"
	"time"
)

type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
	ProviderGitHub Provider = "GITHUB"
)

type RoleName string

const (
	RoleUser  RoleName = "ROLE_USER"
	RoleAdmin RoleName = "ROLE_ADMIN"
)

// AllRoles is the fixed role set seeded at startup.
var AllRoles = []RoleName{RoleUser, RoleAdmin}

type Role struct {
	ID   uint     `gorm:"primaryKey;autoIncrement"                json:"id"`
	Name RoleName `gorm:"type:varchar(32);uniqueIndex;not null"   json:"name"`
}

// Account is both a local and a federated identity. Federated accounts carry
// no PasswordHash; local ones carry no ProviderID.
type Account struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"                 json:"id"`
	Email          string    `gorm:"type:varchar(320);uniqueIndex;not null"   json:"email"`
	Username       string    `gorm:"type:varchar(64);uniqueIndex;not null"    json:"username"`
	PasswordHash   *string   `gorm:"type:varchar(100)"                        json:"-"`
	Provider       Provider  `gorm:"type:varchar(16);not null;default:LOCAL"  json:"provider"`
	ProviderID     *string   `gorm:"type:varchar(191)"                        json:"provider_id,omitempty"`
	ProfilePicture *string   `gorm:"type:text"                                json:"profile_picture_url,omitempty"`
	Roles          []Role    `gorm:"many2many:account_roles;"                 json:"roles"`
	CreatedAt      time.Time `gorm:"autoCreateTime"                           json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"                           json:"updated_at"`
}

func (a *Account) RoleNames() []string {
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		names = append(names, string(r.Name))
	}
	return names
}

func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// RefreshToken is the single live refresh credential of an account.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"               json:"id"`
	AccountID uint      `gorm:"uniqueIndex;not null"                   json:"account_id"`
	Token     string    `gorm:"type:varchar(64);uniqueIndex;not null"  json:"token"`
	ExpiresAt time.Time `gorm:"not null"                               json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime"                         json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"                         json:"updated_at"`
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// Principal is the authenticated identity seen by the rest of the system.
// Attributes is only set for federated logins.
type Principal struct {
	AccountID   uint
	Email       string
	Authorities []string
	Attributes  map[string]any
}

func NewPrincipal(a *Account, attrs map[string]any) *Principal {
	return &Principal{
		AccountID:   a.ID,
		Email:       a.Email,
		Authorities: a.RoleNames(),
		Attributes:  attrs,
	}
}

func (p *Principal) Subject() string {
	return strconv.FormatUint(uint64(p.AccountID), 10)
}

func (p *Principal) HasAuthority(name RoleName) bool {
	for _, a := range p.Authorities {
		if a == string(name) {
			return true
		}
	}
	return false
}
