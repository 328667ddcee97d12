package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrEmailNotVerified = errors.New("email not verified by Google")

// Google runs the OAuth2 authorization-code flow against Google and reads
// the signed-in user's profile.
type Google struct {
	cfg         *oauth2.Config
	userInfoURL string
}

func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthCodeURL is where the shell sends the user to pick an account.
func (g *Google) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

// Identify exchanges the callback code and fetches the profile.
func (g *Google) Identify(ctx context.Context, code string) (Identity, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Identity{}, err
	}
	resp, err := g.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Identity{}, fmt.Errorf("get user info: status %d: %s", resp.StatusCode, body)
	}

	var user struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Verified bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return Identity{}, fmt.Errorf("decode user info: %w", err)
	}
	if !user.Verified {
		return Identity{}, ErrEmailNotVerified
	}
	return Identity{UserID: user.ID, Email: user.Email, Name: user.Name, Provider: ProviderGoogle}, nil
}
