package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-delivery/internal/auth"
	"github.com/gokatarajesh/quiz-delivery/internal/auth/jwt"
)

func okHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(name))
	}
}

func newTestHandler(t *testing.T, checks map[string]Check) (http.Handler, *jwt.Manager) {
	t.Helper()
	tokens := jwt.NewManager(jwt.TokenConfig{AccessSecret: []byte("server-test"), AccessTTL: time.Minute})
	h := NewHandler(zerolog.Nop(), Routes{
		Evaluate:     okHandler("evaluate"),
		Create:       okHandler("create"),
		Pick:         okHandler("pick"),
		RepeatRates:  okHandler("repeat-rates"),
		HotBuckets:   okHandler("hot-buckets"),
		Authenticate: auth.AuthMiddleware(tokens, zerolog.Nop()),
		Checks:       checks,
	})
	return h, tokens
}

func bearer(t *testing.T, tokens *jwt.Manager, role string) string {
	t.Helper()
	token, err := tokens.GenerateAccessToken(uuid.New(), role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouteGuards(t *testing.T) {
	h, tokens := newTestHandler(t, nil)
	player := bearer(t, tokens, jwt.RolePlayer)
	editor := bearer(t, tokens, jwt.RoleEditor)

	cases := []struct {
		name   string
		method string
		path   string
		authz  string
		status int
		body   string
	}{
		{"pick anonymous", http.MethodGet, "/v1/questions/pick", "", http.StatusUnauthorized, ""},
		{"pick player", http.MethodGet, "/v1/questions/pick?count=5", player, http.StatusOK, "pick"},
		{"create player", http.MethodPost, "/v1/questions", player, http.StatusForbidden, ""},
		{"create editor", http.MethodPost, "/v1/questions", editor, http.StatusOK, "create"},
		{"evaluate editor", http.MethodPost, "/v1/questions/evaluate", editor, http.StatusOK, "evaluate"},
		{"analytics anonymous", http.MethodGet, "/v1/analytics/repeat-rates", "", http.StatusUnauthorized, ""},
		{"analytics player", http.MethodGet, "/v1/analytics/hot-buckets", player, http.StatusForbidden, ""},
		{"analytics editor", http.MethodGet, "/v1/analytics/hot-buckets", editor, http.StatusOK, "hot-buckets"},
		{"bad token", http.MethodGet, "/v1/questions/pick", "Bearer nope", http.StatusUnauthorized, ""},
		{"health", http.MethodGet, "/healthz", "", http.StatusOK, `{"status":"ok"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.authz != "" {
				req.Header.Set("Authorization", tc.authz)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestPingReportsFailingDependency(t *testing.T) {
	h, _ := newTestHandler(t, map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	h, _ = newTestHandler(t, map[string]Check{"postgres": func(context.Context) error { return nil }})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
