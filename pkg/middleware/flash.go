package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const flashSession = "seedswap_flash"

// Flashes keeps one-shot messages across a redirect in a signed cookie
type Flashes struct {
	store *sessions.CookieStore
}

func NewFlashes(secret []byte, secure bool) *Flashes {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Flashes{store: store}
}

// Add queues msg for the next page render
func (f *Flashes) Add(c *gin.Context, msg string) {
	if f == nil {
		return
	}

	s, err := f.store.Get(c.Request, flashSession)
	if err != nil && s == nil {
		zap.L().Warn("Failed to open flash session", zap.Error(err))
		return
	}

	s.AddFlash(msg)
	if err := s.Save(c.Request, c.Writer); err != nil {
		zap.L().Warn("Failed to save flash message", zap.Error(err))
	}
}

// Pop returns and clears the queued messages
func (f *Flashes) Pop(c *gin.Context) []string {
	if f == nil {
		return nil
	}

	// A tampered or stale cookie still yields a usable empty session
	s, _ := f.store.Get(c.Request, flashSession)
	if s == nil {
		return nil
	}

	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(string); ok {
			msgs = append(msgs, m)
		}
	}

	if err := s.Save(c.Request, c.Writer); err != nil {
		zap.L().Warn("Failed to clear flash messages", zap.Error(err))
	}

	return msgs
}
