package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Amadeus self-service test environment.
	DefaultBaseURL = "https://test.api.amadeus.com"
	tokenPath      = "/v1/security/oauth2/token"
	httpTimeout    = 10 * time.Second
)

// ClientCredentialsIssuer exchanges a client id and secret for a bearer token.
type ClientCredentialsIssuer struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client
}

// NewClientCredentialsIssuer constructs an issuer against the default Amadeus URL.
func NewClientCredentialsIssuer(clientID, clientSecret string) *ClientCredentialsIssuer {
	return NewClientCredentialsIssuerWithURL(DefaultBaseURL, clientID, clientSecret)
}

// NewClientCredentialsIssuerWithURL constructs an issuer pointing at a custom auth base URL.
func NewClientCredentialsIssuerWithURL(baseURL, clientID, clientSecret string) *ClientCredentialsIssuer {
	return &ClientCredentialsIssuer{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: httpTimeout},
	}
}

// IssueToken posts a client_credentials grant and decodes the token response.
func (i *ClientCredentialsIssuer) IssueToken(ctx context.Context) (IssuedToken, error) {
	endpoint := i.baseURL + tokenPath
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {i.clientID},
		"client_secret": {i.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return IssuedToken{}, fmt.Errorf("POST %s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok IssuedToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return IssuedToken{}, fmt.Errorf("decoding token response: %w", err)
	}

	switch {
	case tok.AccessToken == "":
		return IssuedToken{}, fmt.Errorf("token response has no access_token")
	case tok.ExpiresIn <= 0:
		return IssuedToken{}, fmt.Errorf("token response has invalid expires_in %d", tok.ExpiresIn)
	case tok.TokenType != "" && !strings.EqualFold(tok.TokenType, "Bearer"):
		return IssuedToken{}, fmt.Errorf("unexpected token_type %q", tok.TokenType)
	}

	return tok, nil
}
