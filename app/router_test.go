package app

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bitwise74/seed-swap/config"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/apperr"
	"bitwise74/seed-swap/internal/model"
	"bitwise74/seed-swap/internal/service"
	"bitwise74/seed-swap/internal/session"
	"bitwise74/seed-swap/internal/storage"
	"bitwise74/seed-swap/internal/testutil"
	"bitwise74/seed-swap/pkg/middleware"
	"bitwise74/seed-swap/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	deps   *internal.Deps
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	uploads := t.TempDir()
	cfg := &config.Config{
		App:     config.AppConfig{Env: "test", LogLevel: "info"},
		Host:    config.HostConfig{Port: 3000, Domain: "localhost"},
		Session: config.SessionConfig{Store: "memory", Secret: strings.Repeat("s", 32), MaxAge: 24 * time.Hour, CookieName: "sid"},
		Storage: config.StorageConfig{Type: "local", LocalDir: uploads, PublicPath: "/uploads"},
		Upload:  config.UploadConfig{MaxSize: 5 << 20},
		Security: config.SecurityConfig{
			AuthRateLimit:  5,
			AuthRateWindow: 15 * time.Minute,
		},
	}

	gdb := testutil.NewDB(t)

	images, err := storage.NewLocalStore(uploads, "/uploads", cfg.Upload.MaxSize)
	require.NoError(t, err)

	sessions := session.NewMemoryStore()
	t.Cleanup(func() { sessions.Close() })

	d := &internal.Deps{
		Config:   cfg,
		DB:       gdb,
		Auth:     service.NewAuthService(gdb, &security.PasswordHasher{Cost: bcrypt.MinCost}, images, nil),
		Seeds:    service.NewSeedService(gdb, images),
		Images:   images,
		Sessions: session.NewManager(sessions, cfg.Session.CookieName, cfg.Session.MaxAge, false),
		Flashes:  middleware.NewFlashes([]byte(cfg.Session.Secret), false),
	}

	router, err := NewRouter(t.Context(), d)
	require.NoError(t, err)

	return &testApp{t: t, router: router, deps: d}
}

func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (a *testApp) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, cookies...)
}

func (a *testApp) postMultipart(path string, fields map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, cookies...)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == "sid" && c.MaxAge > 0 {
			return c
		}
	}

	t.Fatal("no session cookie in response")
	return nil
}

func (a *testApp) register(username, email string) *http.Cookie {
	a.t.Helper()

	w := a.postMultipart("/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "secret1",
	})
	require.Equal(a.t, http.StatusSeeOther, w.Code, w.Body.String())
	require.Equal(a.t, "/dashboard", w.Header().Get("Location"))

	return sessionCookie(a.t, w)
}

func (a *testApp) userID(email string) string {
	var u model.User
	require.NoError(a.t, a.deps.DB.Where("email = ?", email).First(&u).Error)
	return u.ID
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newTestApp(t)
	a.register("alice", "a@x.com")

	w := a.postForm("/login", url.Values{"email": {"a@x.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	cookie := sessionCookie(t, w)

	w = a.get("/dashboard", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome, alice")

	w = a.get("/logout", cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	// The old cookie is worthless after logout
	w = a.get("/dashboard", cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	a := newTestApp(t)
	a.register("alice", "a@x.com")

	wrong := a.postForm("/login", url.Values{"email": {"a@x.com"}, "password": {"nope123"}})
	unknown := a.postForm("/login", url.Values{"email": {"ghost@x.com"}, "password": {"secret1"}})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Contains(t, wrong.Body.String(), apperr.InvalidCredentialsMsg)
	assert.Contains(t, unknown.Body.String(), apperr.InvalidCredentialsMsg)
}

func TestRegisterErrorsRerenderForm(t *testing.T) {
	a := newTestApp(t)
	a.register("alice", "a@x.com")

	w := a.postMultipart("/register", map[string]string{
		"username": "alice2",
		"email":    "a@x.com",
		"password": "secret1",
		"location": "Leeds",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already in use.")
	assert.Contains(t, w.Body.String(), `value="Leeds"`)
	assert.NotContains(t, w.Body.String(), "secret1")

	w = a.postMultipart("/register", map[string]string{"username": "al", "email": "bad", "password": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please provide a valid email address")

	// Short enough in runes, too long in bytes
	w = a.postMultipart("/register", map[string]string{
		"username": "bob",
		"email":    "b@x.com",
		"password": strings.Repeat("é", 40),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Password must be at most 72 bytes")
	assert.Contains(t, w.Body.String(), `value="bob"`)
}

func TestProtectedRoutesRedirect(t *testing.T) {
	a := newTestApp(t)

	for _, p := range []string{"/dashboard", "/seeds/new", "/seeds/mine", "/profile/edit", "/logout", "/seeds/edit/x"} {
		w := a.get(p)
		assert.Equal(t, http.StatusSeeOther, w.Code, p)
		assert.Equal(t, "/login", w.Header().Get("Location"), p)
	}
}

func TestSeedLifecycle(t *testing.T) {
	a := newTestApp(t)
	alice := a.register("alice", "a@x.com")
	bob := a.register("bob", "b@x.com")

	w := a.postMultipart("/seeds/new", map[string]string{
		"plantType":   "Tomato",
		"varietyName": "Brandywine",
	}, alice)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/seeds/mine", w.Header().Get("Location"))

	mine, err := a.deps.Seeds.ListMine(t.Context(), a.userID("a@x.com"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	seedID := mine[0].ID

	w = a.get("/seeds/mine", alice)
	assert.Contains(t, w.Body.String(), "Brandywine")

	w = a.get("/seeds/mine", bob)
	assert.NotContains(t, w.Body.String(), "Brandywine")

	// Bob can neither edit nor delete it
	w = a.get("/seeds/edit/"+seedID, bob)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = a.postMultipart("/seeds/edit/"+seedID, map[string]string{"plantType": "Weed", "varietyName": "x"}, bob)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/seeds/mine", w.Header().Get("Location"))

	w = a.postForm("/seeds/delete/"+seedID, url.Values{}, bob)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/seeds/mine", w.Header().Get("Location"))

	got, err := a.deps.Seeds.Get(t.Context(), seedID)
	require.NoError(t, err)
	assert.Equal(t, "Tomato", got.PlantType)

	// Alice edits it
	w = a.postMultipart("/seeds/edit/"+seedID, map[string]string{"plantType": "Tomato", "varietyName": "Cherokee Purple"}, alice)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	w = a.get("/seeds/search?q=cherokee")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cherokee Purple")
	assert.Contains(t, w.Body.String(), "Offered by alice")

	// Invalid edit keeps the entered values
	w = a.postMultipart("/seeds/edit/"+seedID, map[string]string{"plantType": "", "varietyName": "Kept"}, alice)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Plant type is required")
	assert.Contains(t, w.Body.String(), `value="Kept"`)

	// And deletes it
	w = a.postForm("/seeds/delete/"+seedID, url.Values{}, alice)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	_, err = a.deps.Seeds.Get(t.Context(), seedID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBrowseAndSearch(t *testing.T) {
	a := newTestApp(t)
	alice := a.register("alice", "a@x.com")

	a.postMultipart("/seeds/new", map[string]string{"plantType": "Bean", "varietyName": "Cherokee Trail"}, alice)

	w := a.get("/seeds/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cherokee Trail")

	w = a.get("/seeds/search?q=zucchini")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No seeds found")
}

func TestContactOwners(t *testing.T) {
	a := newTestApp(t)
	alice := a.register("alice", "a@x.com")
	a.postMultipart("/seeds/new", map[string]string{"plantType": "Bean", "varietyName": "Cherokee Trail"}, alice)

	mine, err := a.deps.Seeds.ListMine(t.Context(), a.userID("a@x.com"))
	require.NoError(t, err)
	require.Len(t, mine, 1)

	w := a.postForm("/seeds/contact", url.Values{"selectedSeeds": {mine[0].ID}, "address": {"1 Garden Lane"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mailto:a%40x.com?subject=Seed%20Swap%20Inquiry")

	w = a.postForm("/seeds/contact", url.Values{"selectedSeeds": {mine[0].ID}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter your address.")
	assert.Contains(t, w.Body.String(), `value="`+mine[0].ID+`" checked`)

	// The entered address survives a failed submit
	w = a.postForm("/seeds/contact", url.Values{"address": {"1 Garden Lane"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Select at least one seed")
	assert.Contains(t, w.Body.String(), ">1 Garden Lane</textarea>")
	assert.NotContains(t, w.Body.String(), " checked")
}

func TestJSONAPI(t *testing.T) {
	a := newTestApp(t)
	alice := a.register("alice", "a@x.com")
	a.postMultipart("/seeds/new", map[string]string{"plantType": "Bean", "varietyName": "Cherokee Trail"}, alice)

	w := a.get("/api/seeds")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "a@x.com")
	assert.NotContains(t, w.Body.String(), "password")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0]["owner_username"])

	w = a.get("/api/seeds/search?q=nothing")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = a.do(httptest.NewRequest(http.MethodHead, "/api/heartbeat", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.get("/api/seeds/mine")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Not logged in")

	w = a.get("/api/seeds/mine", alice)
	require.Equal(t, http.StatusOK, w.Code)

	var mine []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Cherokee Trail", mine[0]["variety_name"])
	assert.NotContains(t, mine[0], "owner_username")

	bob := a.register("bob", "b@x.com")
	w = a.get("/api/seeds/mine", bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestLoginRateLimit(t *testing.T) {
	a := newTestApp(t)
	form := url.Values{"email": {"a@x.com"}, "password": {"nope123"}}

	for range 5 {
		w := a.postForm("/login", form)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := a.postForm("/login", form)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Registration has its own budget
	a.register("alice", "a@x.com")
}

func TestErrorPages(t *testing.T) {
	a := newTestApp(t)

	w := a.get("/does-not-exist")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")

	w = a.get("/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
