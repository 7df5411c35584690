package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSetup_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := Setup(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 3000, cfg.Host.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "db", cfg.Session.Store)
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxSize)
	assert.Equal(t, 5, cfg.Security.AuthRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.Security.AuthRateWindow)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.MigrateOnly)
}

func TestSetup_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("APP_ENV", "production")
	t.Setenv("HOST_PORT", "8081")
	t.Setenv("SESSION_MAX_AGE", "2h")
	t.Setenv("HOST_CORS", "https://a.example,https://b.example")

	cfg, err := Setup([]string{"--migrate-only"})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 8081, cfg.Host.Port)
	assert.Equal(t, 2*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Host.CORS)
	assert.True(t, cfg.MigrateOnly)
}

func TestSetup_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "seeds.toml")
	body := strings.Join([]string{
		`[session]`,
		`secret = "` + testSecret + `"`,
		`store = "memory"`,
		`[upload]`,
		`max_size = 2`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Setup([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, int64(2<<20), cfg.Upload.MaxSize)
}

func TestSetup_MissingExplicitConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_SECRET", testSecret)

	_, err := Setup([]string{"--config", "does-not-exist.toml"})
	assert.Error(t, err)
}

func TestSetup_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"short secret", map[string]string{"SESSION_SECRET": "short"}},
		{"bad storage", map[string]string{"SESSION_SECRET": testSecret, "STORAGE_TYPE": "ftp"}},
		{"bad log level", map[string]string{"SESSION_SECRET": testSecret, "APP_LOG_LEVEL": "loud"}},
		{"bad session store", map[string]string{"SESSION_SECRET": testSecret, "SESSION_STORE": "file"}},
		{"r2 without account", map[string]string{"SESSION_SECRET": testSecret, "STORAGE_TYPE": "r2"}},
		{"s3 without bucket", map[string]string{"SESSION_SECRET": testSecret, "STORAGE_TYPE": "s3", "S3_REGION": "eu-west-1"}},
		{"ssl without cert", map[string]string{"SESSION_SECRET": testSecret, "HOST_SSL_ENABLED": "true"}},
		{"turnstile without secret", map[string]string{"SESSION_SECRET": testSecret, "CLOUDFLARE_TURNSTILE_ENABLED": "true"}},
		{"zero upload size", map[string]string{"SESSION_SECRET": testSecret, "UPLOAD_MAX_SIZE": "0"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Setup(nil)
			assert.Error(t, err)
		})
	}
}
