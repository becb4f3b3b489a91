package session

import (
	"encoding/json"

	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
)

// Cache is the per-session token cache: the one token set the provider
// issued for this user, serialized into the session between requests so
// silent refresh survives across separate HTTP requests.
type Cache struct {
	token   *oauth2.Token
	changed bool
}

type cacheState struct {
	Token *oauth2.Token `json:"token,omitempty"`
}

// LoadCache deserializes the token cache stored in the session, or starts an
// empty cache when the key is absent or unreadable.
func LoadCache(s *sessions.Session) *Cache {
	raw, ok := s.Values[keyTokenCache].(string)
	if !ok || raw == "" {
		return &Cache{}
	}

	var state cacheState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return &Cache{}
	}

	return &Cache{token: state.Token}
}

// Token returns the cached token, nil when the cache is empty.
func (c *Cache) Token() *oauth2.Token {
	return c.token
}

// Put records a token issued or refreshed by the provider and marks the
// cache dirty.
func (c *Cache) Put(tok *oauth2.Token) {
	c.token = tok
	c.changed = true
}

// HasChanged reports whether the cache mutated since it was loaded.
func (c *Cache) HasChanged() bool {
	return c.changed
}

// SaveCache re-serializes the cache into the session, but only when it
// changed since load. Callers must invoke it after every operation that may
// have refreshed a token, including partial failure paths, so rotated
// refresh tokens are not lost.
func SaveCache(s *sessions.Session, c *Cache) error {
	if !c.changed {
		return nil
	}

	raw, err := json.Marshal(cacheState{Token: c.token})
	if err != nil {
		return err
	}

	s.Values[keyTokenCache] = string(raw)
	return nil
}
