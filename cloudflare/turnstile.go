package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const siteVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

type Turnstile struct {
	Secret   string
	Endpoint string
	HTTP     *http.Client
}

func NewTurnstile(secret string) *Turnstile {
	return &Turnstile{
		Secret:   secret,
		Endpoint: siteVerifyURL,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify asks Cloudflare whether token is a solved challenge for the
// client at remoteIP
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	body, err := json.Marshal(map[string]string{
		"secret":   t.Secret,
		"response": token,
		"remoteip": remoteIP,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to reach turnstile, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("turnstile returned status %d", resp.StatusCode)
	}

	var res siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return false, fmt.Errorf("failed to decode turnstile response, %w", err)
	}

	return res.Success, nil
}
