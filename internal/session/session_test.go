package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"bitwise74/seed-swap/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testStore runs the behaviour every Store must have
func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	sess := &Session{ID: "abc", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)

	require.NoError(t, s.Delete(ctx, "abc"))
	_, err = s.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is not an error
	assert.NoError(t, s.Delete(ctx, "abc"))

	expired := &Session{ID: "old", UserID: "user-1", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, s.Save(ctx, expired))
	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	testStore(t, s)
}

func TestDBStore(t *testing.T) {
	testStore(t, NewDBStore(testutil.NewDB(t)))
}

func TestDBStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := NewDBStore(testutil.NewDB(t))

	require.NoError(t, s.Save(ctx, &Session{ID: "live", UserID: "u", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, s.Save(ctx, &Session{ID: "dead", UserID: "u", ExpiresAt: time.Now().Add(-time.Hour)}))

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	c := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { c.Close() })

	testStore(t, NewRedisStore(c))
}

func newTestManager() *Manager {
	return NewManager(NewMemoryStore(), "sid", 24*time.Hour, true)
}

func newContext(cookie *http.Cookie) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if cookie != nil {
		c.Request.AddCookie(cookie)
	}

	return c, w
}

func responseCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}

	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestManager_StartSetsHardenedCookie(t *testing.T) {
	m := newTestManager()
	c, w := newContext(nil)

	s, err := m.Start(c, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.UserID)
	assert.Len(t, s.ID, idLength)

	ck := responseCookie(t, w, "sid")
	assert.Equal(t, s.ID, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, 24*60*60, ck.MaxAge)
}

func TestManager_StartRegeneratesSession(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	// A session ID planted before login
	planted := &Session{ID: "planted", UserID: "", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, m.Store.Save(ctx, planted))

	c, w := newContext(&http.Cookie{Name: "sid", Value: "planted"})
	s, err := m.Start(c, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, "planted", s.ID)
	assert.Equal(t, s.ID, responseCookie(t, w, "sid").Value)

	_, err = m.Store.Get(ctx, "planted")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Load(t *testing.T) {
	m := newTestManager()

	c, _ := newContext(nil)
	s, err := m.Load(c)
	require.NoError(t, err)
	assert.Nil(t, s)

	c, _ = newContext(nil)
	started, err := m.Start(c, "alice")
	require.NoError(t, err)

	c, _ = newContext(&http.Cookie{Name: "sid", Value: started.ID})
	s, err = m.Load(c)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "alice", s.UserID)
}

func TestManager_LoadStaleCookie(t *testing.T) {
	m := newTestManager()

	c, w := newContext(&http.Cookie{Name: "sid", Value: "gone"})
	s, err := m.Load(c)
	require.NoError(t, err)
	assert.Nil(t, s)

	assert.Equal(t, -1, responseCookie(t, w, "sid").MaxAge)
}

func TestManager_Destroy(t *testing.T) {
	m := newTestManager()

	c, _ := newContext(nil)
	started, err := m.Start(c, "alice")
	require.NoError(t, err)

	c, w := newContext(&http.Cookie{Name: "sid", Value: started.ID})
	require.NoError(t, m.Destroy(c))
	assert.Equal(t, -1, responseCookie(t, w, "sid").MaxAge)

	_, err = m.Store.Get(context.Background(), started.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	c, _ = newContext(&http.Cookie{Name: "sid", Value: started.ID})
	s, err := m.Load(c)
	require.NoError(t, err)
	assert.Nil(t, s)
}
