// Package tokens issues and verifies the bearer credentials of the service.
//
// Access tokens are HS256 JWTs checked by signature and expiry alone.
// Refresh tokens are opaque random strings that only mean something as a
// lookup key in the credential store.
package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/user_management/internal/models"
)

var ErrEmptySecret = errors.New("tokens: signing secret is empty")

type AccessClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func New(secret []byte, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Service{
		Secret:     secret,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Now:        time.Now,
	}, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// IssueAccessToken signs a token whose subject is the account id.
func (s *Service) IssueAccessToken(accountID uint, roles []string) (string, time.Time, error) {
	issuedAt := s.now()
	exp := issuedAt.Add(s.AccessTTL)

	claims := AccessClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (s *Service) IssueRefreshToken(accountID uint) models.RefreshToken {
	return models.RefreshToken{
		AccountID: accountID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.RefreshTTL),
	}
}

// ParseAccessToken returns the claims of a valid token. Any failure, whether
// a bad signature, a malformed payload or an expired token, yields false.
func (s *Service) ParseAccessToken(token string) (*AccessClaims, bool) {
	if token == "" || len(s.Secret) == 0 {
		return nil, false
	}

	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if _, err := strconv.ParseUint(claims.Subject, 10, 64); err != nil {
		return nil, false
	}
	return &claims, true
}

func (s *Service) ValidateAccessToken(token string) (uint, bool) {
	claims, ok := s.ParseAccessToken(token)
	if !ok {
		return 0, false
	}
	return claims.AccountID(), true
}

// AccountID is the numeric subject. Zero for claims that were not produced
// by ParseAccessToken.
func (c *AccessClaims) AccountID() uint {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
