package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// installationTokenSource mints GitHub App installation tokens. Wrap it in
// oauth2.ReuseTokenSource so a token is only exchanged again once it expires.
type installationTokenSource struct {
	ctx            context.Context
	jwt            *JWTGenerator
	installationID int64
	baseURL        string
	httpClient     *http.Client
}

// Token implements oauth2.TokenSource
func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	signed, err := s.jwt.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	client := github.NewClient(s.httpClient).WithAuthToken(signed)
	if s.baseURL != "" {
		client, err = client.WithEnterpriseURLs(s.baseURL, s.baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure base URL %q: %w", s.baseURL, err)
		}
	}

	token, _, err := client.Apps.CreateInstallationToken(s.ctx, s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange installation token: %w", err)
	}

	logger.WithField("installation_id", s.installationID).
		WithField("expires_at", token.GetExpiresAt().Time).
		Debug("Minted installation token")

	return &oauth2.Token{
		AccessToken: token.GetToken(),
		TokenType:   "token",
		Expiry:      token.GetExpiresAt().Time,
	}, nil
}
