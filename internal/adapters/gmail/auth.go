package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// Scopes defines the OAuth scopes required. Labeling, archiving and
// draft creation all need modify access.
var Scopes = []string{
	gmail.GmailModifyScope,
}

// loadCredentials loads the OAuth client config from a credentials file
func loadCredentials(credPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", credPath, err)
	}

	config, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return config, nil
}

// loadToken loads a saved OAuth token
func loadToken(tokenPath string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, err
	}

	return token, nil
}

// saveToken saves an OAuth token to file
func saveToken(tokenPath string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath, data, 0600)
}

// newHTTPClient returns an authenticated HTTP client from a previously
// provisioned token. The agent runs unattended, so there is no
// interactive flow here; tokens are provisioned out of band.
func newHTTPClient(ctx context.Context, credPath, tokenPath string) (*http.Client, error) {
	config, err := loadCredentials(credPath)
	if err != nil {
		return nil, err
	}

	token, err := loadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load token file %s (provision it with an OAuth tool first): %w", tokenPath, err)
	}

	// Token source auto-refreshes expired tokens
	tokenSource := config.TokenSource(ctx, token)

	// Save the refreshed token if it changed
	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if newToken.AccessToken != token.AccessToken {
		if err := saveToken(tokenPath, newToken); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
	}

	return oauth2.NewClient(ctx, tokenSource), nil
}
