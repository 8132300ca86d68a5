// Package csrf binds an anti-forgery token to the browser through an HttpOnly
// cookie. The OAuth2 flow uses it for the state parameter: the token goes out
// in the cookie and in the authorization URL and must come back in both.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Config struct {
	CookieName string
	CookiePath string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration
}

func DefaultConfig() Config {
	return Config{
		CookieName: "oauth_state",
		CookiePath: "/oauth2",
		Secure:     true,
		SameSite:   http.SameSiteLaxMode,
		MaxAge:     10 * time.Minute,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = def.SameSite
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}
	return cfg
}

// Issue creates a token, stores it in the cookie and returns it.
func Issue(c echo.Context, cfg Config) (string, error) {
	cfg = cfg.withDefaults()

	token, err := newToken(32)
	if err != nil {
		return "", err
	}
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     cfg.CookiePath,
		Expires:  time.Now().Add(cfg.MaxAge),
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
	return token, nil
}

// Verify compares provided with the cookie token and clears the cookie, so a
// token is good for one round trip.
func Verify(c echo.Context, cfg Config, provided string) bool {
	cfg = cfg.withDefaults()

	stored := readCookie(c.Request(), cfg.CookieName)
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     cfg.CookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
	return secureCompare(stored, provided)
}

func newToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func readCookie(req *http.Request, name string) string {
	c, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func secureCompare(a, b string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
