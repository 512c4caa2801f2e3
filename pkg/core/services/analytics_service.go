package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/analytics"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

// Trend windows the report accepts.
const (
	TrendWeek  = 7
	TrendMonth = 30
)

const keySep = "\x00"

type AnalyticsService struct {
	repo      ports.ReportRepository
	loc       *time.Location
	trendDays int
	topN      int
	now       func() time.Time
}

func NewAnalyticsService(repo ports.ReportRepository, loc *time.Location, trendDays, topN int) *AnalyticsService {
	if trendDays != TrendWeek && trendDays != TrendMonth {
		trendDays = TrendMonth
	}
	if topN <= 0 {
		topN = 10
	}
	return &AnalyticsService{repo: repo, loc: loc, trendDays: trendDays, topN: topN, now: time.Now}
}

// Report rebuilds the analytics payload from the raw events.
func (s *AnalyticsService) Report(ctx context.Context, opts ports.ReportOptions) (*domain.Report, error) {
	if err := domain.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	window := opts.TrendDays
	if window == 0 {
		window = s.trendDays
	}
	if window != TrendWeek && window != TrendMonth {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("trend window must be %d or %d days", TrendWeek, TrendMonth)}
	}

	now := s.now()
	report := &domain.Report{
		GeneratedAt: now.UTC(),
		Timezone:    s.loc.String(),
	}
	if err := s.linkRollups(ctx, report); err != nil {
		return nil, err
	}
	stats, err := s.siteStats(ctx, now, window)
	if err != nil {
		return nil, err
	}
	report.SiteStats = *stats
	return report, nil
}

func (s *AnalyticsService) linkRollups(ctx context.Context, report *domain.Report) error {
	stats, err := s.repo.LinkClickStats(ctx)
	if err != nil {
		return domain.WrapStorage("link click stats", err)
	}
	daily, err := s.repo.DailyLinkClicks(ctx)
	if err != nil {
		return domain.WrapStorage("daily link clicks", err)
	}

	report.LinkAnalytics = make([]domain.LinkAnalytics, 0, len(stats))
	for _, st := range stats {
		days := daily[st.ID]
		if days == nil {
			days = map[string]int64{}
		}
		report.LinkAnalytics = append(report.LinkAnalytics, domain.LinkAnalytics{LinkClickStats: st, DailyClicks: days})
		report.TotalLinkClicks += st.Clicks
		if st.Clicks > 0 {
			report.ActiveLinks++
		}
	}
	sort.SliceStable(report.LinkAnalytics, func(i, j int) bool {
		a, b := report.LinkAnalytics[i], report.LinkAnalytics[j]
		if a.Clicks != b.Clicks {
			return a.Clicks > b.Clicks
		}
		return a.ID < b.ID
	})
	report.TotalLinks = int64(len(stats))
	report.AvgClicksPerLink = analytics.Ratio(report.TotalLinkClicks, report.TotalLinks)
	return nil
}

func (s *AnalyticsService) siteStats(ctx context.Context, now time.Time, window int) (*domain.SiteStats, error) {
	today := analytics.DayKey(now, s.loc)
	days := analytics.TrailingDays(now, s.loc, window)

	total, err := s.repo.SummarizePageViews(ctx, domain.PageViewFilter{})
	if err != nil {
		return nil, domain.WrapStorage("summarize page views", err)
	}
	todaySum, err := s.repo.SummarizePageViews(ctx, domain.PageViewFilter{Day: today})
	if err != nil {
		return nil, domain.WrapStorage("summarize page views", err)
	}
	sessions, err := s.repo.CountSessions(ctx)
	if err != nil {
		return nil, domain.WrapStorage("count sessions", err)
	}

	stats := &domain.SiteStats{
		TotalPageViews:     total.Views,
		PageViewsToday:     todaySum.Views,
		TotalSessions:      sessions,
		AvgPagesPerSession: analytics.Ratio(total.Views, sessions),
	}

	// Every rollup below reads one grouping from the store.
	group := func(dim domain.Dimension, f domain.PageViewFilter) ([]domain.Bucket, error) {
		buckets, err := s.repo.GroupPageViews(ctx, dim, f)
		if err != nil {
			return nil, domain.WrapStorage("group page views by "+string(dim), err)
		}
		return buckets, nil
	}

	pages, err := group(domain.DimPage, domain.PageViewFilter{})
	if err != nil {
		return nil, err
	}
	todayPages, err := group(domain.DimPage, domain.PageViewFilter{Day: today})
	if err != nil {
		return nil, err
	}
	stats.PopularPages = s.popularPages(pages, todayPages)

	referrers, err := group(domain.DimReferrer, domain.PageViewFilter{})
	if err != nil {
		return nil, err
	}
	stats.TopReferrers = s.topReferrers(referrers)

	resolutions, err := group(domain.DimResolution, domain.PageViewFilter{})
	if err != nil {
		return nil, err
	}
	stats.DeviceStats = s.deviceStats(resolutions)

	widths, err := group(domain.DimWidth, domain.PageViewFilter{})
	if err != nil {
		return nil, err
	}
	stats.DeviceTypes = deviceTypes(widths, total.Views)

	agents, err := group(domain.DimUserAgent, domain.PageViewFilter{})
	if err != nil {
		return nil, err
	}
	stats.BrowserStats = s.browserStats(agents)

	countries, err := group(domain.DimCountry, domain.PageViewFilter{})
	if err != nil {
		return nil, err
	}
	regions, err := group(domain.DimRegion, domain.PageViewFilter{})
	if err != nil {
		return nil, err
	}
	cities, err := group(domain.DimCity, domain.PageViewFilter{})
	if err != nil {
		return nil, err
	}
	stats.CountryStats, stats.RegionStats, stats.CityStats = s.geoStats(countries, regions, cities)

	hours, err := group(domain.DimHour, domain.PageViewFilter{})
	if err != nil {
		return nil, err
	}
	stats.HourlyViews = hourlyViews(hours)

	trend, err := group(domain.DimDay, domain.PageViewFilter{SinceDay: days[0]})
	if err != nil {
		return nil, err
	}
	stats.DailyTrends = dailyTrends(trend, days)

	return stats, nil
}

func (s *AnalyticsService) popularPages(all, today []domain.Bucket) []domain.PageStat {
	byPage := make(map[string]domain.Bucket, len(all))
	views := analytics.NewCounter()
	for _, b := range all {
		byPage[b.Key(0)] = b
		views.Add(b.Key(0), b.Views)
	}
	todayViews := make(map[string]int64, len(today))
	for _, b := range today {
		todayViews[b.Key(0)] = b.Views
	}

	out := make([]domain.PageStat, 0, s.topN)
	for _, e := range views.Top(s.topN) {
		out = append(out, domain.PageStat{
			Page:           e.Key,
			Views:          e.Count,
			UniqueSessions: byPage[e.Key].Sessions,
			TodayViews:     todayViews[e.Key],
		})
	}
	return out
}

// topReferrers merges raw referrer URLs by hostname.
func (s *AnalyticsService) topReferrers(buckets []domain.Bucket) []domain.ReferrerStat {
	hosts := analytics.NewCounter()
	for _, b := range buckets {
		hosts.Add(analytics.ReferrerHost(b.Key(0)), b.Views)
	}
	out := make([]domain.ReferrerStat, 0, s.topN)
	for _, e := range hosts.Top(s.topN) {
		out = append(out, domain.ReferrerStat{Domain: e.Key, Referrals: e.Count})
	}
	return out
}

func (s *AnalyticsService) deviceStats(buckets []domain.Bucket) []domain.DeviceStat {
	res := analytics.NewCounter()
	class := make(map[string]string, len(buckets))
	for _, b := range buckets {
		key := b.Key(0) + "x" + b.Key(1)
		res.Add(key, b.Views)
		class[key] = analytics.Unknown
		if w, err := strconv.Atoi(b.Key(0)); err == nil {
			class[key] = analytics.DeviceClass(w)
		}
	}
	out := make([]domain.DeviceStat, 0, s.topN)
	for _, e := range res.Top(s.topN) {
		out = append(out, domain.DeviceStat{Resolution: e.Key, Count: e.Count, Type: class[e.Key]})
	}
	return out
}

// deviceTypes classifies every view; views without a width count as Unknown.
func deviceTypes(widths []domain.Bucket, totalViews int64) []domain.DeviceType {
	types := analytics.NewCounter()
	var known int64
	for _, b := range widths {
		w, err := strconv.Atoi(b.Key(0))
		if err != nil {
			continue
		}
		types.Add(analytics.DeviceClass(w), b.Views)
		known += b.Views
	}
	if unknown := totalViews - known; unknown > 0 {
		types.Add(analytics.Unknown, unknown)
	}
	out := make([]domain.DeviceType, 0, types.Len())
	for _, e := range types.Top(0) {
		out = append(out, domain.DeviceType{Type: e.Key, Count: e.Count})
	}
	return out
}

// browserStats skips views that reported no user agent.
func (s *AnalyticsService) browserStats(buckets []domain.Bucket) []domain.BrowserStat {
	browsers := analytics.NewCounter()
	for _, b := range buckets {
		if strings.TrimSpace(b.Key(0)) == "" {
			continue
		}
		browsers.Add(analytics.Browser(b.Key(0)), b.Views)
	}
	out := make([]domain.BrowserStat, 0, browsers.Len())
	for _, e := range browsers.Top(s.topN) {
		out = append(out, domain.BrowserStat{Browser: e.Key, Count: e.Count})
	}
	return out
}

// geoStats drops buckets whose leading key is missing or Unknown. Those views
// still count in the site totals.
func (s *AnalyticsService) geoStats(countries, regions, cities []domain.Bucket) ([]domain.CountryStat, []domain.RegionStat, []domain.CityStat) {
	countryOut := make([]domain.CountryStat, 0, s.topN)
	for _, e := range s.rankKnown(countries) {
		countryOut = append(countryOut, domain.CountryStat{Country: e.Key, Count: e.Count})
	}

	regionOut := make([]domain.RegionStat, 0, s.topN)
	for _, e := range s.rankKnown(regions) {
		k := strings.Split(e.Key, keySep)
		regionOut = append(regionOut, domain.RegionStat{Region: k[0], Country: k[1], Count: e.Count})
	}

	cityOut := make([]domain.CityStat, 0, s.topN)
	for _, e := range s.rankKnown(cities) {
		k := strings.Split(e.Key, keySep)
		cityOut = append(cityOut, domain.CityStat{City: k[0], Country: k[1], Region: k[2], Count: e.Count})
	}
	return countryOut, regionOut, cityOut
}

// rankKnown ranks buckets by views under their joined keys. Trailing keys that
// are Unknown are blanked so they merge with missing values.
func (s *AnalyticsService) rankKnown(buckets []domain.Bucket) []analytics.Entry {
	c := analytics.NewCounter()
	for _, b := range buckets {
		if !analytics.KnownGeo(b.Key(0)) {
			continue
		}
		keys := make([]string, len(b.Keys))
		for i, k := range b.Keys {
			if i > 0 && !analytics.KnownGeo(k) {
				k = ""
			}
			keys[i] = strings.TrimSpace(k)
		}
		c.Add(strings.Join(keys, keySep), b.Views)
	}
	return c.Top(s.topN)
}

func hourlyViews(buckets []domain.Bucket) []domain.HourStat {
	out := make([]domain.HourStat, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, b := range buckets {
		h, err := strconv.Atoi(b.Key(0))
		if err != nil || h < 0 || h > 23 {
			continue
		}
		out[h].PageViews += b.Views
	}
	return out
}

// dailyTrends emits one point per day of the window, zero days included.
func dailyTrends(buckets []domain.Bucket, days []string) []domain.TrendPoint {
	byDay := make(map[string]domain.Bucket, len(buckets))
	for _, b := range buckets {
		byDay[b.Key(0)] = b
	}
	out := make([]domain.TrendPoint, 0, len(days))
	for _, d := range days {
		b := byDay[d]
		out = append(out, domain.TrendPoint{
			Date:        d,
			PageViews:   b.Views,
			Sessions:    b.Sessions,
			DisplayDate: analytics.DisplayDate(d),
		})
	}
	return out
}
