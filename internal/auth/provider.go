package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/oauth2/github"
)

// Profile is the provider-neutral identity we extract after a successful
// OAuth exchange. Every provider returns a much larger object — this is the
// part the catalog cares about.
type Profile struct {
	Provider   string // "github" or "google"
	ProviderID string // the provider's stable user identifier, stringified
	Login      string // display name
	Email      string // may be empty (GitHub users can hide theirs)
	AvatarURL  string
}

// Provider is one external identity provider in the Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Our server redirects the user to the provider's authorization endpoint.
//  2. The user approves (or denies) the request on the provider's site.
//  3. The provider redirects back to our callback URL with a short-lived code.
//  4. Exchange trades the code for an access token (server-to-server, using
//     the client secret — the token never touches the browser) and then calls
//     the provider's user API to build a Profile.
type Provider interface {
	// Name returns the provider's registry key ("github", "google").
	Name() string

	// AuthURL returns the URL to redirect the user to for authorization.
	// The state is a random value verified on callback (CSRF protection).
	AuthURL(state string) string

	// Exchange completes the flow: code → access token → user profile.
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// GitHubProvider implements Provider for GitHub OAuth apps.
// Register one at https://github.com/settings/developers — the callback URL
// must match “Authorization callback URL” exactly.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// Scopes:
//   - "read:user"  — the user's public profile (ID, login, avatar)
//   - "user:email" — the user's email addresses
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

func (p *GitHubProvider) Name() string { return "github" }

func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// githubUser is the portion of the GitHub /user API response we care about.
type githubUser struct {
	ID        int64  `json:"id"` // numeric, stable, never changes
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Exchange trades the authorization code for a GitHub user profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging GitHub OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	var ghUser githubUser
	if err := fetchJSON(ctx, p.config.Client(ctx, token), "https://api.github.com/user", &ghUser); err != nil {
		return nil, fmt.Errorf("auth: GitHub /user API: %w", err)
	}

	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &Profile{
		Provider:   p.Name(),
		ProviderID: strconv.FormatInt(ghUser.ID, 10),
		Login:      ghUser.Login,
		Email:      ghUser.Email,
		AvatarURL:  ghUser.AvatarURL,
	}, nil
}

// GoogleProvider implements Provider for Google OAuth clients.
// Same shape as GitHub — only the endpoint, scopes, and userinfo schema
// differ. Google identifies users by an opaque "sub" string, not a number.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     endpoints.Google,
		},
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// googleUser is the portion of the OpenID userinfo response we care about.
type googleUser struct {
	Sub     string `json:"sub"` // opaque, stable subject identifier
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Exchange trades the authorization code for a Google user profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Google OAuth code: %w", err)
	}

	var gUser googleUser
	if err := fetchJSON(ctx, p.config.Client(ctx, token), "https://openidconnect.googleapis.com/v1/userinfo", &gUser); err != nil {
		return nil, fmt.Errorf("auth: Google userinfo API: %w", err)
	}

	if gUser.Sub == "" {
		return nil, fmt.Errorf("auth: Google returned an invalid user (empty sub)")
	}

	return &Profile{
		Provider:   p.Name(),
		ProviderID: gUser.Sub,
		Login:      gUser.Name,
		Email:      gUser.Email,
		AvatarURL:  gUser.Picture,
	}, nil
}

// fetchJSON GETs a provider API endpoint with the token-bearing client and
// decodes the JSON response. Shared by both providers.
func fetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", url, err)
	}

	return nil
}
