package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	mwauth "github.com/Skotchmaster/user_management/internal/middleware/auth"
	"github.com/Skotchmaster/user_management/internal/models"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	UserHandler  *UserHTTP
	OAuthHandler *OAuthHTTP
	Tokens       mwauth.TokenParser
	Metrics      http.Handler
	// Ready reports whether dependencies such as the database are reachable.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewRequestValidator()

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	authMw := mwauth.RequireBearer(d.Tokens)

	auth := e.Group("/api/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.LogOut, authMw)

	users := e.Group("/api/users", authMw, mwauth.RequireRole(models.RoleUser))
	users.GET("/me", d.UserHandler.Me)
	users.PUT("/me", d.UserHandler.UpdateMe)
	users.POST("/me/profile-picture", d.UserHandler.UploadPicture)
	users.DELETE("/me/profile-picture", d.UserHandler.DeletePicture)

	if d.OAuthHandler != nil {
		e.GET("/oauth2/authorize/:provider", d.OAuthHandler.Authorize)
		e.GET("/oauth2/callback/:provider", d.OAuthHandler.Callback)
	}
}
