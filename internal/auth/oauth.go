package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/linkshare/internal/apperror"
)

// DefaultGitHubAPIURL is the base of the GitHub REST API.
const DefaultGitHubAPIURL = "https://api.github.com"

// GitHubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal the fields we need.
// It drives account reconciliation and is never stored as-is.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID    int64  `json:"id"`    // GitHub's numeric user ID — stable, never changes
	Login string `json:"login"` // GitHub username, e.g. "ada"
	Email string `json:"email"` // Primary email (empty if hidden in GitHub settings)
}

// GitHubConfig holds the OAuth App credentials and endpoints.
//
// Endpoint and APIURL default to GitHub's; tests point them at an
// httptest.Server.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	APIURL       string
	Endpoint     oauth2.Endpoint
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow (with PKCE) and calls the GitHub API on behalf of the signed-in user.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Your server redirects the user to GitHub's authorization endpoint,
//     with your ClientID, the requested scopes, a state and a PKCE challenge.
//  2. The user approves (or denies) the authorization request on GitHub.
//  3. GitHub redirects back to your CallbackURL with a short-lived "code".
//  4. Your server exchanges the code (plus the PKCE verifier) for an access
//     token (server-to-server call).
//  5. Your server uses the access token to call the GitHub API for user info.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// Scopes we request:
//   - "read:user" — access to the user's public profile (ID, login)
//   - "user:email" — access to the user's email address (billing customer)
func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = github.Endpoint
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultGitHubAPIURL
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		apiURL: apiURL,
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// The state is checked on callback (CSRF). The verifier never leaves the
// server: only its S256 challenge is put in the URL.
func (p *GitHubProvider) AuthURL(state, verifier string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange trades the authorization code for an OAuth access token.
// This makes a POST to GitHub's token endpoint using our ClientSecret.
func (p *GitHubProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, apperror.Upstream("github token exchange", err)
	}
	return token, nil
}

// FetchUser calls GET {api}/user with the access token as a bearer token.
//
// A non-2xx answer is an upstream failure: the body is drained and closed
// so the connection can be reused, and nothing about it is returned.
func (p *GitHubProvider) FetchUser(ctx context.Context, accessToken string) (*GitHubUser, error) {
	// oauth2.NewClient returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperror.Upstream("github user", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperror.Upstream("github user",
			fmt.Errorf("GET /user returned status %d", resp.StatusCode))
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, apperror.Upstream("github user", fmt.Errorf("decoding /user response: %w", err))
	}

	if ghUser.ID == 0 {
		return nil, apperror.Upstream("github user", fmt.Errorf("invalid user (ID = 0)"))
	}

	return &ghUser, nil
}
