package auth

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/tokens"
	"github.com/Skotchmaster/user_management/pkg/logging"
)

const (
	ctxClaims    = "claims"
	ctxAccountID = "account_id"
	ctxRoles     = "roles"
)

type TokenParser interface {
	ParseAccessToken(token string) (*tokens.AccessClaims, bool)
}

// RequireBearer rejects requests without a valid "Authorization: Bearer"
// access token. Every rejection is the same 401.
func RequireBearer(parser TokenParser) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ctxClaims,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (any, error) {
			claims, ok := parser.ParseAccessToken(auth)
			if !ok {
				return nil, echo.ErrUnauthorized
			}
			c.Set(ctxAccountID, claims.AccountID())
			c.Set(ctxRoles, claims.Roles)
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logging.FromContext(c.Request().Context()).Warn("auth_failed", "status", http.StatusUnauthorized, "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		},
	})
}

// RequireRole must run after RequireBearer.
func RequireRole(role models.RoleName) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, r := range Roles(c) {
				if r == string(role) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
		}
	}
}

func AccountID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxAccountID).(uint)
	return id, ok && id != 0
}

func Roles(c echo.Context) []string {
	roles, _ := c.Get(ctxRoles).([]string)
	return roles
}
