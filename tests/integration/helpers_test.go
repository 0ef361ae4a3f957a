//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quiz-delivery/internal/auth/jwt"
)

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// mintToken signs an access token with the secret the server under test was started with.
func mintToken(t *testing.T, role string) string {
	t.Helper()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		t.Skip("JWT_SECRET not set; cannot mint tokens for the running server")
	}
	tokens := jwt.NewManager(jwt.TokenConfig{
		AccessSecret: []byte(secret),
		AccessTTL:    10 * time.Minute,
		Issuer:       envOrDefault("APP_NAME", "quiz-delivery"),
	})
	token, err := tokens.GenerateAccessToken(uuid.New(), role)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func makeAuthenticatedRequest(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func uniqueText(prefix string) string {
	return fmt.Sprintf("%s %s?", prefix, uuid.NewString())
}
