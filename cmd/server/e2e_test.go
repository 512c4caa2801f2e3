package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkpulse/pkg/app"
	"github.com/wadjakorntonsri/linkpulse/pkg/config"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		StorageBackend:  "sql",
		DatabaseURL:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		JWTSecret:       "e2e-secret",
		AdminUsername:   "admin",
		AdminPassword:   "hunter2",
		ReportTimezone:  "UTC",
		TrendDays:       7,
		TopN:            10,
		LinkCacheTTL:    time.Minute,
		LoginRatePerSec: 10,
		LoginRateBurst:  10,
	}
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	server := httptest.NewServer(a.Handler)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, client *http.Client, url, token string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, server.Client(), server.URL+"/api/auth/login", "", map[string]string{
		"username": "admin",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func getReport(t *testing.T, server *httptest.Server, token string) domain.Report {
	t.Helper()
	req, err := http.NewRequest("GET", server.URL+"/api/analytics?range=7d", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report domain.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	return report
}

func TestLinkClicksEndToEnd(t *testing.T) {
	server := setupServer(t)
	client := server.Client()
	token := login(t, server)

	resp := postJSON(t, client, server.URL+"/api/links", token, map[string]string{
		"title": "Example",
		"url":   "https://example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created domain.Link
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	// The public list reflects the new link even though it is cached.
	listResp, err := client.Get(server.URL + "/api/links")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var links []domain.Link
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&links))
	require.Len(t, links, 1)
	assert.Equal(t, created.ID, links[0].ID)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, client, fmt.Sprintf("%s/api/links/%d/click", server.URL, created.ID), "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	report := getReport(t, server, token)
	require.Len(t, report.LinkAnalytics, 1)
	assert.Equal(t, int64(3), report.LinkAnalytics[0].Clicks)
	assert.Equal(t, int64(3), report.TotalLinkClicks)
	assert.Equal(t, 3.0, report.AvgClicksPerLink)

	var daily int64
	for _, n := range report.LinkAnalytics[0].DailyClicks {
		daily += n
	}
	assert.Equal(t, int64(3), daily)
}

func TestConcurrentPageViewsOneSession(t *testing.T) {
	server := setupServer(t)
	client := server.Client()

	const views = 20
	var wg sync.WaitGroup
	errs := make(chan error, views)
	for i := 0; i < views; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(map[string]interface{}{
				"page":      fmt.Sprintf("/post/%d", i%4),
				"sessionId": "shared-session",
				"referrer":  fmt.Sprintf("https://ref%d.example.com/", i),
			})
			resp, err := client.Post(server.URL+"/api/analytics/pageview", "application/json", bytes.NewReader(body))
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("status %d", resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	report := getReport(t, server, login(t, server))
	assert.Equal(t, int64(views), report.SiteStats.TotalPageViews)
	assert.Equal(t, int64(1), report.SiteStats.TotalSessions)
	assert.Equal(t, float64(views), report.SiteStats.AvgPagesPerSession)
	require.Len(t, report.SiteStats.TopReferrers, 10)
}
