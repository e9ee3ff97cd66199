package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vanishhq/vanish/internal/config"
	"golang.org/x/oauth2"
)

// OAuthProvider exchanges authorization codes with a generic OAuth2 provider
// and reads the verified email from its userinfo endpoint.
type OAuthProvider struct {
	conf        *oauth2.Config
	userInfoURL string
}

// NewOAuthProvider returns nil when the provider is not configured, which
// disables the OAuth entry path.
func NewOAuthProvider(cfg *config.Config) *OAuthProvider {
	if cfg.OAuthClientID == "" || cfg.OAuthTokenURL == "" {
		return nil
	}
	return &OAuthProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
		},
		userInfoURL: cfg.OAuthUserInfoURL,
	}
}

func (p *OAuthProvider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchanging authorization code: %w", err)
	}

	client := p.conf.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return "", fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decoding userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response carried no email")
	}
	return info.Email, nil
}
