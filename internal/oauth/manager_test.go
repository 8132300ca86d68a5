package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Skotchmaster/user_management/internal/models"
)

func newProviderServer(t *testing.T, profile map[string]any, emails []map[string]any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(emails)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server, emailsURL string) ProviderConfig {
	return ProviderConfig{
		OAuth2: oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost/oauth2/callback/github",
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/authorize",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"user:email"},
		},
		UserInfoURL: srv.URL + "/user",
		EmailsURL:   emailsURL,
	}
}

func TestManager_AuthCodeURL(t *testing.T) {
	srv := newProviderServer(t, nil, nil)
	m := NewManager(map[models.Provider]ProviderConfig{models.ProviderGitHub: testProvider(srv, "")})

	raw, err := m.AuthCodeURL(models.ProviderGitHub, "state-123")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client", u.Query().Get("client_id"))

	_, err = m.AuthCodeURL(models.ProviderGoogle, "s")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestManager_FetchAttributes(t *testing.T) {
	srv := newProviderServer(t, map[string]any{"id": 12, "login": "octo", "email": "octo@example.com"}, nil)
	m := NewManager(map[models.Provider]ProviderConfig{models.ProviderGitHub: testProvider(srv, "")})
	m.HTTPClient = srv.Client()

	attrs, err := m.FetchAttributes(context.Background(), models.ProviderGitHub, "good-code")
	require.NoError(t, err)

	info, err := NewUserInfo(models.ProviderGitHub, attrs)
	require.NoError(t, err)
	assert.Equal(t, "12", info.ExternalID())
	assert.Equal(t, "octo@example.com", info.Email())
}

func TestManager_FetchAttributes_FallsBackToPrimaryEmail(t *testing.T) {
	emails := []map[string]any{
		{"email": "old@example.com", "primary": false, "verified": true},
		{"email": "main@example.com", "primary": true, "verified": true},
	}
	srv := newProviderServer(t, map[string]any{"id": 12, "login": "octo", "email": nil}, emails)
	m := NewManager(map[models.Provider]ProviderConfig{models.ProviderGitHub: testProvider(srv, srv.URL+"/user/emails")})
	m.HTTPClient = srv.Client()

	attrs, err := m.FetchAttributes(context.Background(), models.ProviderGitHub, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "main@example.com", attrs["email"])
}

func TestManager_FetchAttributes_NullProfile(t *testing.T) {
	emails := []map[string]any{{"email": "main@example.com", "primary": true, "verified": true}}
	srv := newProviderServer(t, nil, emails)
	m := NewManager(map[models.Provider]ProviderConfig{models.ProviderGitHub: testProvider(srv, srv.URL+"/user/emails")})
	m.HTTPClient = srv.Client()

	attrs, err := m.FetchAttributes(context.Background(), models.ProviderGitHub, "good-code")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"email": "main@example.com"}, attrs)
}

func TestManager_FetchAttributes_BadCode(t *testing.T) {
	srv := newProviderServer(t, map[string]any{}, nil)
	m := NewManager(map[models.Provider]ProviderConfig{models.ProviderGitHub: testProvider(srv, "")})
	m.HTTPClient = srv.Client()

	_, err := m.FetchAttributes(context.Background(), models.ProviderGitHub, "bad-code")
	require.Error(t, err)
}
