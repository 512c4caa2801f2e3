package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/linkpulse/pkg/config"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/services"
)

type testServer struct {
	handler http.Handler
	auth    *services.AuthService
	store   *sqlstore.Store
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	store, err := sqlstore.New(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.JWTSecret = "test-secret"
	if cfg.LoginRatePerSec == 0 {
		cfg.LoginRatePerSec = 100
		cfg.LoginRateBurst = 100
	}

	auth := services.NewAuthService(store, cfg.JWTSecret)
	_, err = auth.EnsureAdmin(context.Background(), "admin", "hunter2", false)
	require.NoError(t, err)

	h := NewRouter(cfg, Services{
		Links:     services.NewLinkService(store, store, time.UTC),
		Tracking:  services.NewTrackingService(store, time.UTC),
		Analytics: services.NewAnalyticsService(store, time.UTC, services.TrendMonth, 10),
		Auth:      auth,
		Ping:      store.Ping,
	})
	return &testServer{handler: h, auth: auth, store: store}
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	token, err := s.auth.IssueToken("admin", domain.RoleAdmin)
	require.NoError(t, err)
	return token
}

// do sends a JSON request; a non-empty token is sent as a bearer header.
func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, "GET", "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
}

func TestLinkRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.adminToken(t)

	rr := s.do(t, "POST", "/api/links", LinkRequest{Title: "Blog", URL: "https://blog.example.com"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, "POST", "/api/links", LinkRequest{Title: "Blog", URL: "https://blog.example.com"}, token)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created domain.Link
	decode(t, rr, &created)
	assert.Equal(t, "Blog", created.Title)

	rr = s.do(t, "POST", "/api/links", LinkRequest{Title: "", URL: "https://blog.example.com"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "GET", "/api/links", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var links []domain.Link
	decode(t, rr, &links)
	require.Len(t, links, 1)

	path := fmt.Sprintf("/api/links/%d", created.ID)
	rr = s.do(t, "PUT", path, LinkRequest{Title: "Notes", URL: "https://notes.example.com", Description: "d"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var updated domain.Link
	decode(t, rr, &updated)
	assert.Equal(t, "Notes", updated.Title)

	rr = s.do(t, "PUT", "/api/links/999", LinkRequest{Title: "Notes", URL: "https://notes.example.com"}, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, "PUT", "/api/links/abc", LinkRequest{Title: "Notes", URL: "https://notes.example.com"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "DELETE", path, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, "DELETE", path, nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())

	rr = s.do(t, "GET", "/api/links", nil, "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestInvalidBody(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/api/links", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+s.adminToken(t))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, rr.Body.String())
}

func TestClickRoute(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.adminToken(t)

	rr := s.do(t, "POST", "/api/links", LinkRequest{Title: "Blog", URL: "https://blog.example.com"}, token)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created domain.Link
	decode(t, rr, &created)

	rr = s.do(t, "POST", fmt.Sprintf("/api/links/%d/click", created.ID), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"recorded":true}`, rr.Body.String())

	rr = s.do(t, "POST", "/api/links/999/click", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"recorded":false}`, rr.Body.String())
}

func TestPageViewRoute(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, "POST", "/api/analytics/pageview", map[string]interface{}{
		"page":        "/",
		"sessionId":   "s1",
		"referrer":    "https://www.google.com/",
		"userAgent":   "Mozilla/5.0 Chrome/120.0 Safari/537.36",
		"screenWidth": 390, "screenHeight": 844,
		"country": "Canada",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())

	rr = s.do(t, "POST", "/api/analytics/pageview", map[string]string{"page": "/admin", "sessionId": "s1"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"skipped":"admin page"}`, rr.Body.String())

	rr = s.do(t, "POST", "/api/analytics/pageview", map[string]string{"page": "/"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	sum, err := s.store.SummarizePageViews(context.Background(), domain.PageViewFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Views)
}

func TestAnalyticsRoute(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.adminToken(t)

	rr := s.do(t, "GET", "/api/analytics", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, "GET", "/api/analytics", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var report domain.Report
	decode(t, rr, &report)
	assert.Len(t, report.SiteStats.DailyTrends, 30)
	assert.Len(t, report.SiteStats.HourlyViews, 24)

	rr = s.do(t, "GET", "/api/analytics?range=7d", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &report)
	assert.Len(t, report.SiteStats.DailyTrends, 7)

	for _, bad := range []string{"14d", "week", "-7d"} {
		rr = s.do(t, "GET", "/api/analytics?range="+bad, nil, token)
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, "POST", "/api/auth/login", LoginRequest{Username: "admin", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"invalid username or password"}`, rr.Body.String())

	rr = s.do(t, "POST", "/api/auth/login", LoginRequest{Username: "admin"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "POST", "/api/auth/login", LoginRequest{Username: "admin", Password: "hunter2"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Success bool   `json:"success"`
		Role    string `json:"role"`
		Token   string `json:"token"`
	}
	decode(t, rr, &body)
	assert.True(t, body.Success)
	assert.Equal(t, domain.RoleAdmin, body.Role)

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == tokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, body.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest("GET", "/api/auth/check", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.JSONEq(t, `{"authenticated":true,"user":{"username":"admin","role":"admin"}}`, rr.Body.String())

	rr = s.do(t, "GET", "/api/auth/check", nil, "")
	assert.JSONEq(t, `{"authenticated":false}`, rr.Body.String())

	rr = s.do(t, "POST", "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, tokenCookie, cleared[0].Name)
	assert.Empty(t, cleared[0].Value)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, &config.Config{LoginRatePerSec: 0.001, LoginRateBurst: 2})

	for i := 0; i < 2; i++ {
		rr := s.do(t, "POST", "/api/auth/login", LoginRequest{Username: "admin", Password: "wrong"}, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr := s.do(t, "POST", "/api/auth/login", LoginRequest{Username: "admin", Password: "hunter2"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestGoogleRoutesOnlyWhenConfigured(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, "GET", "/auth/google/login", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	s = newTestServer(t, &config.Config{GoogleClientID: "id", GoogleClientSecret: "secret"})
	rr = s.do(t, "GET", "/auth/google/login", nil, "")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "accounts.google.com")
}
