package authflow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dsavelev/reviewpress/internal/auth"
)

// DefaultProviderTimeout bounds every network call to the identity provider.
// The provider is the only external party the application waits on.
const DefaultProviderTimeout = 30 * time.Second

var (
	// ErrStateMismatch means the callback's state parameter does not match
	// the flow stored in the session — a forged or expired callback.
	ErrStateMismatch = errors.New("state mismatch in callback")

	// ErrNonceMismatch means the ID token was not minted for this flow.
	ErrNonceMismatch = errors.New("nonce mismatch in id token")

	// ErrNoToken is returned by TokenSilently when the session has nothing
	// cached to refresh.
	ErrNoToken = errors.New("no token available")
)

// ProviderError is an error the identity provider reported through the
// callback's error parameters, distinct from local failures.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider error %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("provider error %s", e.Code)
}

// Config describes the app registration at the identity provider.
type Config struct {
	ClientID     string
	ClientSecret string
	// Authority is the tenant authority URL; the v2 endpoints hang off it.
	Authority   string
	RedirectURL string
	Scopes      []string
	// Timeout for provider calls, DefaultProviderTimeout when zero.
	Timeout time.Duration
}

// Client drives the authorization-code flow against the provider.
type Client struct {
	conf      oauth2.Config
	authority string
	timeout   time.Duration
}

func New(cfg Config) *Client {
	authority := strings.TrimRight(cfg.Authority, "/")

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultProviderTimeout
	}

	return &Client{
		conf: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authority + "/oauth2/v2.0/authorize",
				TokenURL: authority + "/oauth2/v2.0/token",
			},
		},
		authority: authority,
		timeout:   timeout,
	}
}

// Flow is the opaque per-login state kept in the session between the
// redirect to the provider and the callback. Serializable as JSON.
type Flow struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	Verifier  string    `json:"verifier"`
	StartedAt time.Time `json:"started_at"`
}

// Result is a completed login: the issued token set and the identity claims
// extracted from the ID token.
type Result struct {
	Token  *oauth2.Token
	Claims *auth.Claims
}

// BeginLogin generates fresh state, nonce and PKCE verifier and builds the
// authorization URL for the browser to follow.
func (c *Client) BeginLogin() (*Flow, string, error) {
	state, err := randomToken()
	if err != nil {
		return nil, "", fmt.Errorf("could not generate state: %w", err)
	}

	nonce, err := randomToken()
	if err != nil {
		return nil, "", fmt.Errorf("could not generate nonce: %w", err)
	}

	verifier := oauth2.GenerateVerifier()

	flow := &Flow{
		State:     state,
		Nonce:     nonce,
		Verifier:  verifier,
		StartedAt: time.Now(),
	}

	authURL := c.conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("nonce", nonce),
	)

	return flow, authURL, nil
}

// CompleteLogin validates the provider's callback against the stored flow
// and exchanges the authorization code for tokens.
func (c *Client) CompleteLogin(ctx context.Context, flow *Flow, query url.Values) (*Result, error) {
	if code := query.Get("error"); code != "" {
		return nil, &ProviderError{
			Code:        code,
			Description: query.Get("error_description"),
		}
	}

	if flow == nil || query.Get("state") != flow.State {
		return nil, ErrStateMismatch
	}

	code := query.Get("code")
	if code == "" {
		return nil, errors.New("authorization code missing in callback")
	}

	ctx, cancel := c.providerContext(ctx)
	defer cancel()

	tok, err := c.conf.Exchange(ctx, code, oauth2.VerifierOption(flow.Verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	claims, err := parseIDToken(tok, flow.Nonce)
	if err != nil {
		return nil, err
	}

	return &Result{Token: tok, Claims: claims}, nil
}

// TokenSilently attempts a non-interactive refresh of a cached token. The
// returned bool reports whether the provider rotated the token, in which
// case the caller must persist the cache.
func (c *Client) TokenSilently(ctx context.Context, cached *oauth2.Token) (*oauth2.Token, bool, error) {
	if cached == nil {
		return nil, false, ErrNoToken
	}

	ctx, cancel := c.providerContext(ctx)
	defer cancel()

	fresh, err := c.conf.TokenSource(ctx, cached).Token()
	if err != nil {
		return nil, false, fmt.Errorf("silent token refresh failed: %w", err)
	}

	return fresh, fresh.AccessToken != cached.AccessToken, nil
}

// LogoutURL is the provider's end-session endpoint with the post-logout
// return address.
func (c *Client) LogoutURL(postLogoutRedirect string) string {
	return c.authority + "/oauth2/v2.0/logout?post_logout_redirect_uri=" +
		url.QueryEscape(postLogoutRedirect)
}

// providerContext bounds a provider call with the configured timeout and a
// matching http client.
func (c *Client) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: c.timeout})
	return context.WithTimeout(ctx, c.timeout)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
