package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

func TestCreateLink(t *testing.T) {
	store := newStore(t)
	svc := NewLinkService(store, store, time.UTC)

	link, err := svc.CreateLink(adminCtx(), "  Blog ", " https://blog.example.com ", "")
	require.NoError(t, err)
	assert.NotZero(t, link.ID)
	assert.Equal(t, "Blog", link.Title)
	assert.Equal(t, "https://blog.example.com", link.URL)

	links, err := svc.ListLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, link.ID, links[0].ID)
}

func TestCreateLinkRequiresAdmin(t *testing.T) {
	store := newStore(t)
	svc := NewLinkService(store, store, time.UTC)

	_, err := svc.CreateLink(context.Background(), "Blog", "https://blog.example.com", "")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	viewer := domain.WithIdentity(context.Background(), domain.Identity{Subject: "bob", Role: "viewer"})
	_, err = svc.CreateLink(viewer, "Blog", "https://blog.example.com", "")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	assert.ErrorIs(t, svc.DeleteLink(context.Background(), 1), domain.ErrAuthRequired)
}

func TestCreateLinkValidation(t *testing.T) {
	store := newStore(t)
	svc := NewLinkService(store, store, time.UTC)

	tests := []struct {
		name  string
		title string
		url   string
	}{
		{"missing title", "  ", "https://example.com"},
		{"missing url", "Blog", ""},
		{"relative url", "Blog", "/blog"},
		{"ftp scheme", "Blog", "ftp://example.com"},
		{"no host", "Blog", "https://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateLink(adminCtx(), tt.title, tt.url, "")
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}

	links, err := svc.ListLinks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestUpdateLink(t *testing.T) {
	store := newStore(t)
	svc := NewLinkService(store, store, time.UTC)
	ctx := adminCtx()

	link, err := svc.CreateLink(ctx, "Blog", "https://blog.example.com", "old")
	require.NoError(t, err)

	updated, err := svc.UpdateLink(ctx, link.ID, "Notes", "https://notes.example.com", "new")
	require.NoError(t, err)
	assert.Equal(t, "Notes", updated.Title)
	assert.True(t, link.DateAdded.Equal(updated.DateAdded))

	got, err := store.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Description)

	_, err = svc.UpdateLink(ctx, 999, "Notes", "https://notes.example.com", "")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDeleteMissingLink(t *testing.T) {
	store := newStore(t)
	svc := NewLinkService(store, store, time.UTC)

	assert.NoError(t, svc.DeleteLink(adminCtx(), 42))
}

func TestRecordClickOnMissingLink(t *testing.T) {
	store := newStore(t)
	svc := NewLinkService(store, store, time.UTC)

	ok, err := svc.RecordClick(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.RecordClick(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClicksAcrossDays(t *testing.T) {
	store := newStore(t)
	clk := &clock{t: base.AddDate(0, 0, -1)}
	links := NewLinkService(store, store, time.UTC)
	links.now = clk.now
	reports := NewAnalyticsService(store, time.UTC, TrendWeek, 10)
	reports.now = clk.now

	link, err := links.CreateLink(adminCtx(), "Blog", "https://blog.example.com", "")
	require.NoError(t, err)
	idle, err := links.CreateLink(adminCtx(), "Idle", "https://idle.example.com", "")
	require.NoError(t, err)

	for _, at := range []time.Time{base.AddDate(0, 0, -1), base.AddDate(0, 0, -1).Add(time.Hour), base} {
		clk.t = at
		ok, err := links.RecordClick(context.Background(), link.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	report, err := reports.Report(adminCtx(), ports.ReportOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.TotalLinkClicks)
	assert.Equal(t, int64(2), report.TotalLinks)
	assert.Equal(t, int64(1), report.ActiveLinks)
	assert.Equal(t, 1.5, report.AvgClicksPerLink)

	require.Len(t, report.LinkAnalytics, 2)
	top := report.LinkAnalytics[0]
	assert.Equal(t, link.ID, top.ID)
	assert.Equal(t, int64(3), top.Clicks)
	assert.Equal(t, map[string]int64{"2026-01-09": 2, "2026-01-10": 1}, top.DailyClicks)
	require.NotNil(t, top.FirstClick)
	require.NotNil(t, top.LastClick)
	assert.True(t, top.FirstClick.Equal(base.AddDate(0, 0, -1)))
	assert.True(t, top.LastClick.Equal(base))

	quiet := report.LinkAnalytics[1]
	assert.Equal(t, idle.ID, quiet.ID)
	assert.Zero(t, quiet.Clicks)
	assert.Nil(t, quiet.FirstClick)
	assert.NotNil(t, quiet.DailyClicks)
	assert.Empty(t, quiet.DailyClicks)
}
