// Package auth tracks logged-in sessions.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/factchecker/veritas/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

var (
	// ErrInvalidCredentials is returned for an empty token or user.
	ErrInvalidCredentials = errors.New("token and user are required")
	// ErrNoSession is returned when a token has no live session.
	ErrNoSession = errors.New("no such session")
)

type contextKey string

const sessionContextKey contextKey = "session"

// Manager holds sessions in an expiring in-memory cache.
//
// State transitions: Login moves a token from logged-out to logged-in
// (replacing any previous session for it); Logout or TTL expiry moves it back.
type Manager struct {
	sessions *gocache.Cache
	ttl      time.Duration
	now      func() time.Time
	onEnd    *endHooks
}

// endHooks is kept apart from Manager so the cache's eviction callback does
// not pin the cache itself, which would keep its janitor running forever.
type endHooks struct {
	mu  sync.RWMutex
	fns []func(*models.Session)
}

func (h *endHooks) run(_ string, v interface{}) {
	s, ok := v.(*models.Session)
	if !ok {
		return
	}
	h.mu.RLock()
	fns := h.fns
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(s)
	}
}

// maxCleanupInterval bounds how long an expired session lingers before the
// janitor evicts it.
const maxCleanupInterval = 10 * time.Minute

// NewManager creates a session manager with the given session lifetime.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cleanup := ttl
	if cleanup > maxCleanupInterval {
		cleanup = maxCleanupInterval
	}
	m := &Manager{
		sessions: gocache.New(ttl, cleanup),
		ttl:      ttl,
		now:      time.Now,
		onEnd:    &endHooks{},
	}
	m.sessions.OnEvicted(m.onEnd.run)
	return m
}

// OnEnd registers fn to run whenever a session ends, by Logout or by expiry.
func (m *Manager) OnEnd(fn func(*models.Session)) {
	m.onEnd.mu.Lock()
	defer m.onEnd.mu.Unlock()
	m.onEnd.fns = append(m.onEnd.fns, fn)
}

// Purge evicts every expired session now instead of waiting for the janitor.
func (m *Manager) Purge() {
	m.sessions.DeleteExpired()
}

// Login starts a session for user under token.
func (m *Manager) Login(token, user string) (*models.Session, error) {
	token = strings.TrimSpace(token)
	user = strings.TrimSpace(user)
	if token == "" || user == "" {
		return nil, ErrInvalidCredentials
	}

	session := &models.Session{
		Token:     token,
		User:      user,
		CreatedAt: m.now().UTC(),
	}
	m.sessions.Set(token, session, m.ttl)
	return session, nil
}

// Logout ends the session for token.
func (m *Manager) Logout(token string) error {
	if _, ok := m.sessions.Get(token); !ok {
		return ErrNoSession
	}
	m.sessions.Delete(token)
	return nil
}

// Lookup returns the live session for token.
func (m *Manager) Lookup(token string) (*models.Session, bool) {
	v, ok := m.sessions.Get(token)
	if !ok {
		return nil, false
	}
	return v.(*models.Session), true
}

// Count returns the number of live sessions. Expired entries the janitor
// has not purged yet are not counted.
func (m *Manager) Count() int {
	return len(m.sessions.Items())
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) *models.Session {
	if s, ok := ctx.Value(sessionContextKey).(*models.Session); ok {
		return s
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
