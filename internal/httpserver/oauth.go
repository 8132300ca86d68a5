package httpserver

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_management/internal/middleware/csrf"
	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/oauth"
	"github.com/Skotchmaster/user_management/internal/service"
	"github.com/Skotchmaster/user_management/pkg/logging"
)

type OAuthClient interface {
	AuthCodeURL(p models.Provider, state string) (string, error)
	FetchAttributes(ctx context.Context, p models.Provider, code string) (map[string]any, error)
}

type OAuthHTTP struct {
	Client     OAuthClient
	Reconciler *oauth.Reconciler
	Auth       *service.AuthService
	// SuccessRedirect receives the access token as the "token" query value.
	SuccessRedirect string
	SecureCookies   bool
}

func (h *OAuthHTTP) stateConfig() csrf.Config {
	return csrf.Config{Secure: h.SecureCookies}
}

func (h *OAuthHTTP) Authorize(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "oauth_authorize")

	provider, err := oauth.ParseProvider(c.Param("provider"))
	if err != nil {
		return toHTTPError(err)
	}

	state, err := csrf.Issue(c, h.stateConfig())
	if err != nil {
		l.Error("oauth_error", "reason", "cannot create state", "error", err)
		return toHTTPError(err)
	}

	target, err := h.Client.AuthCodeURL(provider, state)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Redirect(http.StatusFound, target)
}

func (h *OAuthHTTP) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("provider")
	l := logging.FromContext(ctx).With("handler", "oauth_callback", "provider", name)

	provider, err := oauth.ParseProvider(name)
	if err != nil {
		return toHTTPError(err)
	}

	if e := c.QueryParam("error"); e != "" {
		l.Warn("oauth_failed", "status", http.StatusUnauthorized, "reason", e)
		return echo.NewHTTPError(http.StatusUnauthorized, errorResponse{Status: http.StatusUnauthorized, Message: "authorization denied"})
	}

	if !csrf.Verify(c, h.stateConfig(), c.QueryParam("state")) {
		l.Warn("oauth_failed", "status", http.StatusUnauthorized, "reason", "state mismatch")
		return echo.NewHTTPError(http.StatusUnauthorized, errorResponse{Status: http.StatusUnauthorized, Message: "invalid oauth state"})
	}

	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errorResponse{Status: http.StatusBadRequest, Message: "missing authorization code"})
	}

	attrs, err := h.Client.FetchAttributes(ctx, provider, code)
	if err != nil {
		l.Warn("oauth_failed", "status", http.StatusUnauthorized, "reason", "provider exchange", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, errorResponse{Status: http.StatusUnauthorized, Message: "authentication with provider failed"}).SetInternal(err)
	}

	principal, err := h.Reconciler.Reconcile(ctx, name, attrs)
	if err != nil {
		l.Warn("oauth_failed", "status", statusFor(err), "error", err)
		return toHTTPError(err)
	}

	token, _, err := h.Auth.IssueFederatedAccessToken(ctx, principal, string(provider))
	if err != nil {
		l.Error("oauth_error", "reason", "cannot sign access token", "error", err)
		return toHTTPError(err)
	}

	target, err := url.Parse(h.SuccessRedirect)
	if err != nil {
		return toHTTPError(err)
	}
	q := target.Query()
	q.Set("token", token)
	target.RawQuery = q.Encode()

	l.Info("oauth_login_successful", "account_id", principal.AccountID)
	return c.Redirect(http.StatusFound, target.String())
}
