package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/dsavelev/reviewpress/internal/auth"
	"github.com/dsavelev/reviewpress/internal/config"
)

const SessionName = "reviewpress_session"

// Session value keys. Everything the application keeps between requests
// lives under these three keys.
const (
	keyUser       = "user"
	keyFlow       = "flow"
	keyTokenCache = "token_cache"
)

// Manager wraps the cookie-keyed server-side session store. Each user session
// is logically single-threaded at the application layer; consistency across
// overlapping requests is the store's last-writer-wins, no in-process locks.
type Manager struct {
	store sessions.Store
}

func NewManager(store sessions.Store) *Manager {
	return &Manager{store: store}
}

// NewStoreFromEnv builds the session backend selected by SESSION_TYPE:
// "filesystem" keeps one file per session under SESSION_DIR (the default),
// anything else falls back to an encrypted cookie store.
func NewStoreFromEnv() sessions.Store {
	secret := []byte(config.GetEnv("SESSION_SECRET"))

	switch config.GetEnvDefault("SESSION_TYPE", "filesystem") {
	case "filesystem":
		return sessions.NewFilesystemStore(config.GetEnvDefault("SESSION_DIR", ""), secret)
	default:
		return sessions.NewCookieStore(secret)
	}
}

// Get returns the request's session, a fresh one when the cookie is absent
// or fails to decode.
func (m *Manager) Get(r *http.Request) *sessions.Session {
	// gorilla returns a usable new session alongside decode errors
	s, _ := m.store.Get(r, SessionName)
	return s
}

// CurrentUser reports the identity claims stored in the session, or false
// when the session is anonymous.
func (m *Manager) CurrentUser(r *http.Request) (*auth.Claims, bool) {
	s := m.Get(r)

	raw, ok := s.Values[keyUser].(string)
	if !ok || raw == "" {
		return nil, false
	}

	var claims auth.Claims
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		return nil, false
	}

	return &claims, true
}

// SetUser stores the identity claims, transitioning the session to
// authenticated. The caller still has to save the session.
func (m *Manager) SetUser(s *sessions.Session, claims *auth.Claims) error {
	raw, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("could not encode claims: %w", err)
	}

	s.Values[keyUser] = string(raw)
	return nil
}

// SaveFlow stores the in-flight authorization flow state, overwriting any
// prior in-progress flow.
func (m *Manager) SaveFlow(s *sessions.Session, flow interface{}) error {
	raw, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("could not encode flow state: %w", err)
	}

	s.Values[keyFlow] = string(raw)
	return nil
}

// TakeFlow decodes the stored flow state into dst and removes it from the
// session: a flow is single-use.
func (m *Manager) TakeFlow(s *sessions.Session, dst interface{}) error {
	raw, ok := s.Values[keyFlow].(string)
	if !ok || raw == "" {
		return fmt.Errorf("no login flow in progress")
	}

	delete(s.Values, keyFlow)

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("could not decode flow state: %w", err)
	}

	return nil
}

// Clear drops every session value and expires the cookie, returning the
// session to anonymous.
func (m *Manager) Clear(s *sessions.Session) {
	s.Values = make(map[interface{}]interface{})
	s.Options.MaxAge = -1
}

// Save persists the session to the store.
func (m *Manager) Save(r *http.Request, w http.ResponseWriter, s *sessions.Session) error {
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("could not save session: %w", err)
	}
	return nil
}
