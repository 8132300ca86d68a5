package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mwauth "github.com/Skotchmaster/user_management/internal/middleware/auth"
	"github.com/Skotchmaster/user_management/internal/service"
	"github.com/Skotchmaster/user_management/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

type signupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	Email string `json:"email" validate:"required"`
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("signup_error", "status", http.StatusBadRequest, "error", err)
		return toHTTPError(err)
	}

	account, err := h.Svc.Signup(ctx, service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return toHTTPError(err)
	}

	l.Info("signup_successful", "account_id", account.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User registered successfully",
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("login_error", "status", http.StatusBadRequest, "error", err)
		return toHTTPError(err)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	l.Info("login_successful")
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"token_type":    res.TokenType,
		"expires_at":    res.AccessExp.Unix(),
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("refresh_error", "status", http.StatusBadRequest, "error", err)
		return toHTTPError(err)
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"token_type":    res.TokenType,
		"expires_at":    res.AccessExp.Unix(),
	})
}

// LogOut revokes the caller's refresh token. The body names the account and
// must match the bearer token's account.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req logoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("logout_error", "status", http.StatusBadRequest, "error", err)
		return toHTTPError(err)
	}

	callerID, ok := mwauth.AccountID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	if err := h.Svc.LogoutAccount(ctx, callerID, req.Email); err != nil {
		return toHTTPError(err)
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}
