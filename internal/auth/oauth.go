package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/garden-planner/internal/model"
)

const githubUserAPI = "https://api.github.com/user"

// GitHubUser is the part of the GitHub /user response the planner stores.
type GitHubUser struct {
	ID        int64  `json:"id"`    // stable numeric ID, the account key
	Login     string `json:"login"` // becomes the username
	Email     string `json:"email"` // empty if hidden in GitHub settings
	AvatarURL string `json:"avatar_url"`
}

// ToUser maps the profile onto an account for UserRepository.UpsertGitHub.
func (g *GitHubUser) ToUser() *model.User {
	id := g.ID
	return &model.User{
		Username:  g.Login,
		Email:     g.Email,
		GitHubID:  &id,
		AvatarURL: g.AvatarURL,
	}
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. /auth/github/login redirects the browser to GitHub with a state value.
//  2. The user approves on GitHub.
//  3. GitHub redirects to /auth/github/callback with a short-lived code.
//  4. The server exchanges the code for an access token (server-to-server).
//  5. The server reads the profile from the GitHub API.
type GitHubProvider struct {
	config  *oauth2.Config
	userAPI string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
// callbackURL must match the OAuth App's "Authorization callback URL" exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userAPI: githubUserAPI,
	}
}

// AuthURL returns the GitHub authorization URL. state is echoed back on the
// callback and compared against the oauth_state cookie (CSRF check).
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the user's GitHub profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// The client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userAPI, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &ghUser, nil
}
