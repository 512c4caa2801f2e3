// Package storetest is the behavioral contract every Storage Adapter must
// satisfy. Adapter packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/analytics"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) ports.Repository

var base = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo ports.Repository)
	}{
		{"LinksNewestFirst", testLinksNewestFirst},
		{"GetAndUpdateLink", testGetAndUpdateLink},
		{"DeleteLinkCascades", testDeleteLinkCascades},
		{"LinkIDsNotReused", testLinkIDsNotReused},
		{"RecordClickRequiresLink", testRecordClickRequiresLink},
		{"LinkClickStats", testLinkClickStats},
		{"SessionFirstWriterWins", testSessionFirstWriterWins},
		{"ConcurrentSessionUpsert", testConcurrentSessionUpsert},
		{"GroupPageViews", testGroupPageViews},
		{"SummarizePageViews", testSummarizePageViews},
		{"Admins", testAdmins},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStore(t)
			t.Cleanup(func() { _ = repo.Close() })
			tt.fn(t, repo)
		})
	}
}

func createLink(t *testing.T, repo ports.Repository, title string, added time.Time) *domain.Link {
	t.Helper()
	l := &domain.Link{Title: title, URL: "https://example.com/" + title, DateAdded: added}
	require.NoError(t, repo.CreateLink(context.Background(), l))
	require.NotZero(t, l.ID)
	return l
}

func click(t *testing.T, repo ports.Repository, linkID int64, at time.Time) bool {
	t.Helper()
	ok, err := repo.RecordClick(context.Background(), &domain.ClickEvent{
		LinkID:    linkID,
		ClickedAt: at,
		Day:       analytics.DayKey(at, time.UTC),
	})
	require.NoError(t, err)
	return ok
}

func pageView(page, session string, at time.Time) *domain.PageView {
	return &domain.PageView{
		Page:      page,
		SessionID: session,
		ViewedAt:  at,
		Day:       analytics.DayKey(at, time.UTC),
		Hour:      analytics.HourOf(at, time.UTC),
	}
}

func record(t *testing.T, repo ports.Repository, pv *domain.PageView) {
	t.Helper()
	require.NoError(t, repo.RecordPageView(context.Background(), pv, domain.NewSessionFromView(pv)))
}

func intp(v int) *int { return &v }

func testLinksNewestFirst(t *testing.T, repo ports.Repository) {
	ctx := context.Background()

	links, err := repo.ListLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)

	a := createLink(t, repo, "a", base)
	b := createLink(t, repo, "b", base.Add(time.Hour))
	c := createLink(t, repo, "c", base.Add(30*time.Minute))

	links, err = repo.ListLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, []int64{links[0].ID, links[1].ID, links[2].ID})
	assert.True(t, links[0].DateAdded.Equal(b.DateAdded))
}

func testGetAndUpdateLink(t *testing.T, repo ports.Repository) {
	ctx := context.Background()

	missing, err := repo.GetLink(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	l := createLink(t, repo, "orig", base)
	l.Title = "renamed"
	l.URL = "https://example.org"
	l.Description = "about"
	require.NoError(t, repo.UpdateLink(ctx, l))

	got, err := repo.GetLink(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "https://example.org", got.URL)
	assert.Equal(t, "about", got.Description)
	assert.True(t, got.DateAdded.Equal(base))

	err = repo.UpdateLink(ctx, &domain.Link{ID: 999, Title: "x", URL: "https://x.test"})
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf), "got %v", err)
}

func testDeleteLinkCascades(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	keep := createLink(t, repo, "keep", base)
	gone := createLink(t, repo, "gone", base)
	require.True(t, click(t, repo, keep.ID, base))
	require.True(t, click(t, repo, gone.ID, base))
	require.True(t, click(t, repo, gone.ID, base.Add(time.Minute)))

	require.NoError(t, repo.DeleteLink(ctx, gone.ID))
	require.NoError(t, repo.DeleteLink(ctx, gone.ID), "deleting twice succeeds")
	require.NoError(t, repo.DeleteLink(ctx, 12345))

	links, err := repo.ListLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, keep.ID, links[0].ID)

	daily, err := repo.DailyLinkClicks(ctx)
	require.NoError(t, err)
	assert.NotContains(t, daily, gone.ID)
	assert.Equal(t, int64(1), daily[keep.ID]["2026-01-10"])

	stats, err := repo.LinkClickStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, keep.ID, stats[0].ID)
}

func testLinkIDsNotReused(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	first := createLink(t, repo, "first", base)
	second := createLink(t, repo, "second", base)
	require.NoError(t, repo.DeleteLink(ctx, second.ID))

	third := createLink(t, repo, "third", base)
	assert.Greater(t, third.ID, second.ID)
	assert.NotEqual(t, first.ID, third.ID)
}

func testRecordClickRequiresLink(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	assert.False(t, click(t, repo, 4242, base), "click on unknown link")

	l := createLink(t, repo, "l", base)
	ev := &domain.ClickEvent{LinkID: l.ID, ClickedAt: base, Day: "2026-01-10"}
	ok, err := repo.RecordClick(ctx, ev)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotZero(t, ev.ID)

	require.NoError(t, repo.DeleteLink(ctx, l.ID))
	assert.False(t, click(t, repo, l.ID, base), "click on deleted link")

	daily, err := repo.DailyLinkClicks(ctx)
	require.NoError(t, err)
	assert.Empty(t, daily)
}

func testLinkClickStats(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	busy := createLink(t, repo, "busy", base)
	idle := createLink(t, repo, "idle", base)

	day2 := base.Add(24 * time.Hour)
	require.True(t, click(t, repo, busy.ID, base))
	require.True(t, click(t, repo, busy.ID, base.Add(2*time.Hour)))
	require.True(t, click(t, repo, busy.ID, day2))

	stats, err := repo.LinkClickStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byID := map[int64]domain.LinkClickStats{}
	for _, s := range stats {
		byID[s.ID] = s
	}
	b := byID[busy.ID]
	assert.Equal(t, int64(3), b.Clicks)
	require.NotNil(t, b.FirstClick)
	require.NotNil(t, b.LastClick)
	assert.True(t, b.FirstClick.Equal(base))
	assert.True(t, b.LastClick.Equal(day2))
	assert.Equal(t, "busy", b.Title)

	i := byID[idle.ID]
	assert.Zero(t, i.Clicks)
	assert.Nil(t, i.FirstClick)
	assert.Nil(t, i.LastClick)

	daily, err := repo.DailyLinkClicks(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"2026-01-10": 2, "2026-01-11": 1}, daily[busy.ID])
}

func testSessionFirstWriterWins(t *testing.T, repo ports.Repository) {
	ctx := context.Background()

	missing, err := repo.GetSession(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	lat, lng := 43.65, -79.38
	first := pageView("/", "s1", base)
	first.ScreenWidth, first.ScreenHeight = intp(390), intp(844)
	first.Country, first.City = "Canada", "Toronto"
	first.Referrer = "https://www.google.com/"
	first.Latitude, first.Longitude = &lat, &lng
	record(t, repo, first)

	later := pageView("/projects", "s1", base.Add(5*time.Minute))
	later.ScreenWidth, later.ScreenHeight = intp(1920), intp(1080)
	later.Country = "France"
	record(t, repo, later)

	earlier := pageView("/resume", "s1", base.Add(time.Minute))
	record(t, repo, earlier)

	sess, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.StartTime.Equal(base))
	assert.True(t, sess.LastActivity.Equal(base.Add(5*time.Minute)), "last activity never moves backwards")
	assert.Equal(t, "390x844", sess.ScreenSize)
	assert.Equal(t, "Canada", sess.Country)
	assert.Equal(t, "Toronto", sess.City)
	assert.Equal(t, "https://www.google.com/", sess.Referrer)
	require.NotNil(t, sess.Coordinates)
	assert.InDelta(t, lat, sess.Coordinates.Lat, 1e-9)

	n, err := repo.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sum, err := repo.SummarizePageViews(ctx, domain.PageViewFilter{})
	require.NoError(t, err)
	assert.Equal(t, domain.PageViewSummary{Views: 3, Sessions: 1}, sum)
}

func testConcurrentSessionUpsert(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	times := []time.Time{base, base.Add(3 * time.Second)}

	var wg sync.WaitGroup
	errs := make([]error, len(times))
	for i, at := range times {
		wg.Add(1)
		go func(i int, at time.Time) {
			defer wg.Done()
			pv := pageView("/", "fresh", at)
			errs[i] = repo.RecordPageView(ctx, pv, domain.NewSessionFromView(pv))
		}(i, at)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	n, err := repo.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sess, err := repo.GetSession(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.LastActivity.Equal(times[1]))
	assert.True(t, sess.StartTime.Equal(times[0]) || sess.StartTime.Equal(times[1]))

	sum, err := repo.SummarizePageViews(ctx, domain.PageViewFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Views)
}

func testGroupPageViews(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	day2 := base.Add(24 * time.Hour)

	a := pageView("/", "s1", base)
	a.ScreenWidth, a.ScreenHeight = intp(390), intp(844)
	a.UserAgent = "Chrome/100 Safari/537"
	a.Country, a.Region, a.City = "Canada", "Ontario", "Toronto"
	a.Referrer = "https://www.google.com/search?q=1"

	b := pageView("/", "s2", base.Add(time.Hour))
	b.ScreenWidth = intp(1280)
	b.Country = "Canada"

	c := pageView("/resume", "s1", day2)
	c.ScreenWidth, c.ScreenHeight = intp(390), intp(844)
	c.Country = "Unknown"

	for _, pv := range []*domain.PageView{a, b, c} {
		record(t, repo, pv)
	}

	group := func(dim domain.Dimension, f domain.PageViewFilter) []domain.Bucket {
		t.Helper()
		buckets, err := repo.GroupPageViews(ctx, dim, f)
		require.NoError(t, err)
		return buckets
	}

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"/"}, Views: 2, Sessions: 2},
		{Keys: []string{"/resume"}, Views: 1, Sessions: 1},
	}, group(domain.DimPage, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"/resume"}, Views: 1, Sessions: 1},
	}, group(domain.DimPage, domain.PageViewFilter{Day: "2026-01-11"}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"390", "844"}, Views: 2, Sessions: 1},
	}, group(domain.DimResolution, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"390"}, Views: 2, Sessions: 1},
		{Keys: []string{"1280"}, Views: 1, Sessions: 1},
	}, group(domain.DimWidth, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{""}, Views: 2, Sessions: 2},
		{Keys: []string{"Chrome/100 Safari/537"}, Views: 1, Sessions: 1},
	}, group(domain.DimUserAgent, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{""}, Views: 2, Sessions: 2},
		{Keys: []string{"https://www.google.com/search?q=1"}, Views: 1, Sessions: 1},
	}, group(domain.DimReferrer, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"Canada"}, Views: 2, Sessions: 2},
		{Keys: []string{"Unknown"}, Views: 1, Sessions: 1},
	}, group(domain.DimCountry, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"Ontario", "Canada"}, Views: 1, Sessions: 1},
		{Keys: []string{"", "Canada"}, Views: 1, Sessions: 1},
		{Keys: []string{"", "Unknown"}, Views: 1, Sessions: 1},
	}, group(domain.DimRegion, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"Toronto", "Canada", "Ontario"}, Views: 1, Sessions: 1},
		{Keys: []string{"", "Canada", ""}, Views: 1, Sessions: 1},
		{Keys: []string{"", "Unknown", ""}, Views: 1, Sessions: 1},
	}, group(domain.DimCity, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"2026-01-10"}, Views: 2, Sessions: 2},
		{Keys: []string{"2026-01-11"}, Views: 1, Sessions: 1},
	}, group(domain.DimDay, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"9"}, Views: 2, Sessions: 1},
		{Keys: []string{"10"}, Views: 1, Sessions: 1},
	}, group(domain.DimHour, domain.PageViewFilter{}))

	assert.ElementsMatch(t, []domain.Bucket{
		{Keys: []string{"2026-01-11"}, Views: 1, Sessions: 1},
	}, group(domain.DimDay, domain.PageViewFilter{SinceDay: "2026-01-11"}))
}

func testSummarizePageViews(t *testing.T, repo ports.Repository) {
	ctx := context.Background()

	empty, err := repo.SummarizePageViews(ctx, domain.PageViewFilter{})
	require.NoError(t, err)
	assert.Zero(t, empty)

	record(t, repo, pageView("/", "s1", base))
	record(t, repo, pageView("/a", "s1", base))
	record(t, repo, pageView("/", "s2", base.Add(24*time.Hour)))

	all, err := repo.SummarizePageViews(ctx, domain.PageViewFilter{})
	require.NoError(t, err)
	assert.Equal(t, domain.PageViewSummary{Views: 3, Sessions: 2}, all)

	day, err := repo.SummarizePageViews(ctx, domain.PageViewFilter{Day: "2026-01-10"})
	require.NoError(t, err)
	assert.Equal(t, domain.PageViewSummary{Views: 2, Sessions: 1}, day)

	n, err := repo.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func testAdmins(t *testing.T, repo ports.Repository) {
	ctx := context.Background()

	missing, err := repo.GetAdmin(ctx, "admin")
	require.NoError(t, err)
	assert.Nil(t, missing)

	a := &domain.Admin{Username: "admin", PasswordHash: "h1", Role: domain.RoleAdmin, CreatedAt: base}
	require.NoError(t, repo.SaveAdmin(ctx, a))
	require.NotZero(t, a.ID)

	b := &domain.Admin{Username: "admin", PasswordHash: "h2", Role: domain.RoleAdmin, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, repo.SaveAdmin(ctx, b))
	assert.Equal(t, a.ID, b.ID)

	got, err := repo.GetAdmin(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.True(t, got.CreatedAt.Equal(base), "created_at kept on overwrite")
}
