package service

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"bitwise74/seed-swap/internal/storage"
	"bitwise74/seed-swap/internal/testutil"
	"bitwise74/seed-swap/pkg/security"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

func pngUpload() storage.Upload {
	return storage.Upload{Data: pngData, MIMEType: "image/png", Filename: "a.png", Size: int64(len(pngData))}
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) SendWelcome(to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, to)
	return m.err
}

type env struct {
	db     *gorm.DB
	images *storage.LocalStore
	mailer *recordingMailer
	auth   *AuthService
	seeds  *SeedService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	gdb := testutil.NewDB(t)

	images, err := storage.NewLocalStore(t.TempDir(), "/uploads", 0)
	require.NoError(t, err)

	mailer := &recordingMailer{}
	hasher := &security.PasswordHasher{Cost: bcrypt.MinCost}

	return &env{
		db:     gdb,
		images: images,
		mailer: mailer,
		auth:   NewAuthService(gdb, hasher, images, mailer),
		seeds:  NewSeedService(gdb, images),
	}
}

func (e *env) register(t *testing.T, username, email string) string {
	t.Helper()

	u, err := e.auth.Register(t.Context(), RegisterInput{
		Username: username,
		Email:    email,
		Password: "secret1",
	}, storage.Upload{})
	require.NoError(t, err)

	return u.ID
}

var errMail = errors.New("smtp down")
