package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(authority string) *Client {
	return New(Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Authority:    authority,
		RedirectURL:  "http://localhost:8080/getAToken",
		Scopes:       []string{"User.ReadBasic.All"},
		Timeout:      5 * time.Second,
	})
}

// mintIDToken builds a signed JWT the way the provider would. The flow
// parses it without verifying the signature, so any HMAC key works here.
func mintIDToken(t *testing.T, claims jwt.MapClaims) string {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return raw
}

// newTokenEndpoint fakes the provider's token endpoint, answering every
// exchange with the given ID token.
func newTokenEndpoint(t *testing.T, idToken string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/v2.0/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostFormValue("grant_type"))
		assert.NotEmpty(t, r.PostFormValue("code_verifier"))

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access-token",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-token",
			"id_token":      idToken,
		})
		require.NoError(t, err)
	}))
}

func TestClient_BeginLogin(t *testing.T) {
	c := newTestClient("https://login.example.com/tenant")

	t.Run("Authorization URL carries the flow parameters", func(t *testing.T) {
		flow, authURL, err := c.BeginLogin()
		require.NoError(t, err)
		require.NotNil(t, flow)

		u, err := url.Parse(authURL)
		require.NoError(t, err)
		assert.Equal(t, "/tenant/oauth2/v2.0/authorize", u.Path)

		q := u.Query()
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Equal(t, "test-client", q.Get("client_id"))
		assert.Equal(t, "http://localhost:8080/getAToken", q.Get("redirect_uri"))
		assert.Equal(t, "User.ReadBasic.All", q.Get("scope"))
		assert.Equal(t, flow.State, q.Get("state"))
		assert.Equal(t, flow.Nonce, q.Get("nonce"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.Equal(t, oauth2.S256ChallengeFromVerifier(flow.Verifier), q.Get("code_challenge"))
	})

	t.Run("State and nonce are unique per flow", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			flow, _, err := c.BeginLogin()
			require.NoError(t, err)
			assert.False(t, seen[flow.State], "duplicate state")
			assert.False(t, seen[flow.Nonce], "duplicate nonce")
			seen[flow.State] = true
			seen[flow.Nonce] = true
		}
	})
}

func TestClient_CompleteLogin(t *testing.T) {
	t.Run("Successful exchange returns token and claims", func(t *testing.T) {
		c := newTestClient("placeholder")
		flow, _, err := c.BeginLogin()
		require.NoError(t, err)

		idToken := mintIDToken(t, jwt.MapClaims{
			"preferred_username": "alice@example.com",
			"name":               "Alice",
			"nonce":              flow.Nonce,
		})
		provider := newTokenEndpoint(t, idToken)
		defer provider.Close()
		c = newTestClient(provider.URL)

		query := url.Values{"state": {flow.State}, "code": {"auth-code"}}
		result, err := c.CompleteLogin(context.Background(), flow, query)
		require.NoError(t, err)
		assert.Equal(t, "access-token", result.Token.AccessToken)
		assert.Equal(t, "refresh-token", result.Token.RefreshToken)
		assert.Equal(t, "alice@example.com", result.Claims.PreferredUsername)
		assert.Equal(t, "Alice", result.Claims.Name)
	})

	t.Run("Provider error parameter is surfaced distinctly", func(t *testing.T) {
		c := newTestClient("https://login.example.com/tenant")
		flow, _, err := c.BeginLogin()
		require.NoError(t, err)

		query := url.Values{
			"error":             {"access_denied"},
			"error_description": {"the user cancelled"},
		}
		_, err = c.CompleteLogin(context.Background(), flow, query)

		var provErr *ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "access_denied", provErr.Code)
		assert.Equal(t, "the user cancelled", provErr.Description)
	})

	t.Run("State mismatch is rejected", func(t *testing.T) {
		c := newTestClient("https://login.example.com/tenant")
		flow, _, err := c.BeginLogin()
		require.NoError(t, err)

		query := url.Values{"state": {"forged"}, "code": {"auth-code"}}
		_, err = c.CompleteLogin(context.Background(), flow, query)
		assert.ErrorIs(t, err, ErrStateMismatch)
	})

	t.Run("Missing code is rejected", func(t *testing.T) {
		c := newTestClient("https://login.example.com/tenant")
		flow, _, err := c.BeginLogin()
		require.NoError(t, err)

		query := url.Values{"state": {flow.State}}
		_, err = c.CompleteLogin(context.Background(), flow, query)
		assert.Error(t, err)
	})

	t.Run("Nonce mismatch in the id token is rejected", func(t *testing.T) {
		idToken := mintIDToken(t, jwt.MapClaims{
			"preferred_username": "alice@example.com",
			"nonce":              "wrong-nonce",
		})
		provider := newTokenEndpoint(t, idToken)
		defer provider.Close()

		c := newTestClient(provider.URL)
		flow, _, err := c.BeginLogin()
		require.NoError(t, err)

		query := url.Values{"state": {flow.State}, "code": {"auth-code"}}
		_, err = c.CompleteLogin(context.Background(), flow, query)
		assert.ErrorIs(t, err, ErrNonceMismatch)
	})
}

func TestClient_TokenSilently(t *testing.T) {
	t.Run("No cached token", func(t *testing.T) {
		c := newTestClient("https://login.example.com/tenant")

		_, _, err := c.TokenSilently(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("Valid cached token is returned without rotation", func(t *testing.T) {
		c := newTestClient("https://login.example.com/tenant")

		cached := &oauth2.Token{
			AccessToken: "still-good",
			Expiry:      time.Now().Add(time.Hour),
		}

		tok, rotated, err := c.TokenSilently(context.Background(), cached)
		require.NoError(t, err)
		assert.False(t, rotated)
		assert.Equal(t, "still-good", tok.AccessToken)
	})

	t.Run("Expired token is refreshed", func(t *testing.T) {
		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostFormValue("grant_type"))

			w.Header().Set("Content-Type", "application/json")
			err := json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "fresh-token",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "rotated-refresh",
			})
			require.NoError(t, err)
		}))
		defer provider.Close()

		c := newTestClient(provider.URL)

		cached := &oauth2.Token{
			AccessToken:  "stale-token",
			RefreshToken: "refresh-token",
			Expiry:       time.Now().Add(-time.Hour),
		}

		tok, rotated, err := c.TokenSilently(context.Background(), cached)
		require.NoError(t, err)
		assert.True(t, rotated)
		assert.Equal(t, "fresh-token", tok.AccessToken)
		assert.Equal(t, "rotated-refresh", tok.RefreshToken)
	})

	t.Run("Refresh failure is reported", func(t *testing.T) {
		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, err := w.Write([]byte(`{"error":"invalid_grant"}`))
			require.NoError(t, err)
		}))
		defer provider.Close()

		c := newTestClient(provider.URL)

		cached := &oauth2.Token{
			AccessToken:  "stale-token",
			RefreshToken: "revoked",
			Expiry:       time.Now().Add(-time.Hour),
		}

		_, _, err := c.TokenSilently(context.Background(), cached)
		assert.Error(t, err)
	})
}

func TestClient_LogoutURL(t *testing.T) {
	c := newTestClient("https://login.example.com/tenant")

	logout := c.LogoutURL("http://localhost:8080/")

	u, err := url.Parse(logout)
	require.NoError(t, err)
	assert.Equal(t, "/tenant/oauth2/v2.0/logout", u.Path)
	assert.Equal(t, "http://localhost:8080/", u.Query().Get("post_logout_redirect_uri"))
}

func TestParseIDToken(t *testing.T) {
	t.Run("Missing id token", func(t *testing.T) {
		tok := &oauth2.Token{AccessToken: "access"}
		_, err := parseIDToken(tok, "nonce")
		assert.Error(t, err)
	})

	t.Run("Missing preferred_username claim", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"nonce": "nonce",
		}).SignedString([]byte("irrelevant"))
		require.NoError(t, err)

		tok := (&oauth2.Token{AccessToken: "access"}).WithExtra(map[string]interface{}{
			"id_token": raw,
		})
		_, err = parseIDToken(tok, "nonce")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrNonceMismatch))
	})
}
