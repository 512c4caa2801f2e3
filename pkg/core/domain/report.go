package domain

import "time"

// Report is the admin analytics payload. It is rebuilt from raw events on
// every request and never persisted.
type Report struct {
	GeneratedAt      time.Time       `json:"generatedAt"`
	Timezone         string          `json:"timezone"`
	LinkAnalytics    []LinkAnalytics `json:"linkAnalytics"`
	TotalLinkClicks  int64           `json:"totalLinkClicks"`
	TotalLinks       int64           `json:"totalLinks"`
	ActiveLinks      int64           `json:"activeLinks"`
	AvgClicksPerLink float64         `json:"avgClicksPerLink"`
	SiteStats        SiteStats       `json:"siteStats"`
}

type LinkAnalytics struct {
	LinkClickStats
	DailyClicks map[string]int64 `json:"dailyClicks"`
}

type SiteStats struct {
	TotalPageViews     int64          `json:"totalPageViews"`
	PageViewsToday     int64          `json:"pageViewsToday"`
	TotalSessions      int64          `json:"totalSessions"`
	AvgPagesPerSession float64        `json:"avgPagesPerSession"`
	PopularPages       []PageStat     `json:"popularPages"`
	TopReferrers       []ReferrerStat `json:"topReferrers"`
	DeviceStats        []DeviceStat   `json:"deviceStats"`
	DeviceTypes        []DeviceType   `json:"deviceTypes"`
	BrowserStats       []BrowserStat  `json:"browserStats"`
	CountryStats       []CountryStat  `json:"countryStats"`
	RegionStats        []RegionStat   `json:"regionStats"`
	CityStats          []CityStat     `json:"cityStats"`
	HourlyViews        []HourStat     `json:"hourlyViews"`
	DailyTrends        []TrendPoint   `json:"dailyTrends"`
}

type PageStat struct {
	Page           string `json:"page"`
	Views          int64  `json:"views"`
	UniqueSessions int64  `json:"unique_sessions"`
	TodayViews     int64  `json:"todayViews"`
}

type ReferrerStat struct {
	Domain    string `json:"domain"`
	Referrals int64  `json:"referrals"`
}

type DeviceStat struct {
	Resolution string `json:"resolution"`
	Count      int64  `json:"count"`
	Type       string `json:"type"`
}

type DeviceType struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

type BrowserStat struct {
	Browser string `json:"browser"`
	Count   int64  `json:"count"`
}

type CountryStat struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

type RegionStat struct {
	Region  string `json:"region"`
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

type CityStat struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Region  string `json:"region"`
	Count   int64  `json:"count"`
}

type HourStat struct {
	Hour      int   `json:"hour"`
	PageViews int64 `json:"pageViews"`
}

type TrendPoint struct {
	Date        string `json:"date"`
	PageViews   int64  `json:"pageViews"`
	Sessions    int64  `json:"sessions"`
	DisplayDate string `json:"displayDate"`
}
