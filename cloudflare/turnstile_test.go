package cloudflare

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTurnstile(t *testing.T, status int, success bool) (*Turnstile, *map[string]string) {
	t.Helper()

	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(siteVerifyResponse{Success: success})
	}))
	t.Cleanup(srv.Close)

	ts := NewTurnstile("secret")
	ts.Endpoint = srv.URL

	return ts, &got
}

func TestTurnstile_Verify(t *testing.T) {
	ts, got := newTestTurnstile(t, http.StatusOK, true)

	ok, err := ts.Verify(context.Background(), "token", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "secret", (*got)["secret"])
	assert.Equal(t, "token", (*got)["response"])
	assert.Equal(t, "10.0.0.1", (*got)["remoteip"])
}

func TestTurnstile_Failed(t *testing.T) {
	ts, _ := newTestTurnstile(t, http.StatusOK, false)

	ok, err := ts.Verify(context.Background(), "token", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTurnstile_BadStatus(t *testing.T) {
	ts, _ := newTestTurnstile(t, http.StatusBadGateway, true)

	ok, err := ts.Verify(context.Background(), "token", "10.0.0.1")
	assert.Error(t, err)
	assert.False(t, ok)
}
