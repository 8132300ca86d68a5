package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/Skotchmaster/user_management/internal/models"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"
)

type ProviderConfig struct {
	OAuth2      oauth2.Config
	UserInfoURL string
	// EmailsURL is queried when the profile carries no public email.
	EmailsURL string
}

func GoogleProvider(clientID, clientSecret, redirectURL string) ProviderConfig {
	return ProviderConfig{
		OAuth2: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
	}
}

func GitHubProvider(clientID, clientSecret, redirectURL string) ProviderConfig {
	return ProviderConfig{
		OAuth2: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
		},
		UserInfoURL: githubUserURL,
		EmailsURL:   githubEmailsURL,
	}
}

// Manager drives the authorization code flow against the registered
// providers and returns the raw profile attributes.
type Manager struct {
	providers map[models.Provider]ProviderConfig
	// HTTPClient overrides the client used for token exchange and profile
	// calls. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

func NewManager(providers map[models.Provider]ProviderConfig) *Manager {
	return &Manager{providers: providers}
}

func (m *Manager) provider(p models.Provider) (ProviderConfig, error) {
	cfg, ok := m.providers[p]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, p)
	}
	return cfg, nil
}

func (m *Manager) AuthCodeURL(p models.Provider, state string) (string, error) {
	cfg, err := m.provider(p)
	if err != nil {
		return "", err
	}
	return cfg.OAuth2.AuthCodeURL(state), nil
}

func (m *Manager) FetchAttributes(ctx context.Context, p models.Provider, code string) (map[string]any, error) {
	cfg, err := m.provider(p)
	if err != nil {
		return nil, err
	}
	if m.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.HTTPClient)
	}

	token, err := cfg.OAuth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	client := cfg.OAuth2.Client(ctx, token)

	var attrs map[string]any
	if err := getJSON(ctx, client, cfg.UserInfoURL, &attrs); err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}

	if stringAttr(attrs, "email") == "" && cfg.EmailsURL != "" {
		email, err := primaryEmail(ctx, client, cfg.EmailsURL)
		if err != nil {
			return nil, fmt.Errorf("fetch emails: %w", err)
		}
		if email != "" {
			attrs["email"] = email
		}
	}
	return attrs, nil
}

func primaryEmail(ctx context.Context, client *http.Client, url string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, url, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
