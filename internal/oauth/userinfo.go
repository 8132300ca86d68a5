package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/user_management/internal/models"
)

var (
	ErrUnsupportedProvider   = errors.New("unsupported identity provider")
	ErrMissingFederatedEmail = errors.New("email not provided by identity provider")
	ErrProviderConflict      = errors.New("account is registered with a different provider")
)

// UserInfo pulls the fields reconciliation needs out of a provider's
// attribute map. Each provider knows its own attribute names.
type UserInfo interface {
	ExternalID() string
	Email() string
	DisplayName() string
	AvatarURL() string
}

// ParseProvider maps a registration id such as "google" to a federated
// provider. LOCAL is not a federated provider.
func ParseProvider(name string) (models.Provider, error) {
	switch models.Provider(strings.ToUpper(strings.TrimSpace(name))) {
	case models.ProviderGoogle:
		return models.ProviderGoogle, nil
	case models.ProviderGitHub:
		return models.ProviderGitHub, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}

func NewUserInfo(provider models.Provider, attrs map[string]any) (UserInfo, error) {
	switch provider {
	case models.ProviderGoogle:
		return googleUserInfo(attrs), nil
	case models.ProviderGitHub:
		return githubUserInfo(attrs), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

type googleUserInfo map[string]any

func (g googleUserInfo) ExternalID() string  { return stringAttr(g, "sub") }
func (g googleUserInfo) Email() string       { return stringAttr(g, "email") }
func (g googleUserInfo) DisplayName() string { return stringAttr(g, "name") }
func (g googleUserInfo) AvatarURL() string   { return stringAttr(g, "picture") }

type githubUserInfo map[string]any

func (g githubUserInfo) ExternalID() string { return stringAttr(g, "id") }
func (g githubUserInfo) Email() string      { return stringAttr(g, "email") }
func (g githubUserInfo) AvatarURL() string  { return stringAttr(g, "avatar_url") }

func (g githubUserInfo) DisplayName() string {
	if name := stringAttr(g, "name"); name != "" {
		return name
	}
	return stringAttr(g, "login")
}

// stringAttr renders scalar attributes as strings. GitHub ids arrive as JSON
// numbers, which decode to float64.
func stringAttr(attrs map[string]any, key string) string {
	switch v := attrs[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
