package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"bitwise74/seed-swap/pkg/util"

	"github.com/gin-gonic/gin"
)

const (
	idLength   = 32
	contextKey = "session"
)

// Manager ties a Store to the session cookie
type Manager struct {
	Store      Store
	CookieName string
	MaxAge     time.Duration
	Secure     bool // Send the cookie over HTTPS only
}

func NewManager(s Store, cookieName string, maxAge time.Duration, secure bool) *Manager {
	return &Manager{
		Store:      s,
		CookieName: cookieName,
		MaxAge:     maxAge,
		Secure:     secure,
	}
}

// Start binds userID to a brand new session. Any session the client
// already had is destroyed first so a planted session ID can never become
// an authenticated one.
func (m *Manager) Start(c *gin.Context, userID string) (*Session, error) {
	if old, err := c.Cookie(m.CookieName); err == nil && old != "" {
		if err := m.Store.Delete(c.Request.Context(), old); err != nil {
			return nil, fmt.Errorf("failed to drop previous session, %w", err)
		}
	}

	id, err := util.NewID(idLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID, %w", err)
	}

	s := &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.Now().Add(m.MaxAge),
	}

	if err := m.Store.Save(c.Request.Context(), s); err != nil {
		return nil, fmt.Errorf("failed to save session, %w", err)
	}

	m.setCookie(c, s.ID, int(m.MaxAge.Seconds()))
	c.Set(contextKey, s)

	return s, nil
}

// Load returns the session of the current request. Anonymous requests get
// nil with no error.
func (m *Manager) Load(c *gin.Context) (*Session, error) {
	if v, ok := c.Get(contextKey); ok {
		s, _ := v.(*Session)
		return s, nil
	}

	id, err := c.Cookie(m.CookieName)
	if err != nil || id == "" {
		return nil, nil
	}

	s, err := m.Store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Stale cookie, there's no point in sending it again
			m.setCookie(c, "", -1)
			c.Set(contextKey, (*Session)(nil))
			return nil, nil
		}

		return nil, err
	}

	c.Set(contextKey, s)
	return s, nil
}

// Destroy removes the session server side and expires the cookie
func (m *Manager) Destroy(c *gin.Context) error {
	id, err := c.Cookie(m.CookieName)
	if err == nil && id != "" {
		if err := m.Store.Delete(c.Request.Context(), id); err != nil {
			return err
		}
	}

	m.setCookie(c, "", -1)
	c.Set(contextKey, (*Session)(nil))
	return nil
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.CookieName, value, maxAge, "/", "", m.Secure, true)
}
