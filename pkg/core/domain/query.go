package domain

// Dimension names a page-view grouping the store can push down.
// Bucket.Keys holds one entry per grouped column, in the order listed.
type Dimension string

const (
	DimPage       Dimension = "page"       // [page]
	DimReferrer   Dimension = "referrer"   // [referrer]
	DimResolution Dimension = "resolution" // [width, height]; views without both are dropped
	DimWidth      Dimension = "width"      // [width]; views without a width are dropped
	DimUserAgent  Dimension = "user_agent" // [user_agent]
	DimCountry    Dimension = "country"    // [country]
	DimRegion     Dimension = "region"     // [region, country]
	DimCity       Dimension = "city"       // [city, country, region]
	DimDay        Dimension = "day"        // [YYYY-MM-DD]
	DimHour       Dimension = "hour"       // [0..23]
)

// Valid reports whether d is one of the dimensions above.
func (d Dimension) Valid() bool {
	switch d {
	case DimPage, DimReferrer, DimResolution, DimWidth, DimUserAgent,
		DimCountry, DimRegion, DimCity, DimDay, DimHour:
		return true
	}
	return false
}

// PageViewFilter restricts page-view counts to a day or a trailing range of
// days. Zero values mean unbounded.
type PageViewFilter struct {
	Day      string // exact YYYY-MM-DD
	SinceDay string // inclusive lower bound YYYY-MM-DD
}

// Match reports whether a view on day passes the filter.
func (f PageViewFilter) Match(day string) bool {
	if f.Day != "" && day != f.Day {
		return false
	}
	if f.SinceDay != "" && day < f.SinceDay {
		return false
	}
	return true
}

// Bucket is one group of a page-view rollup.
type Bucket struct {
	Keys     []string
	Views    int64
	Sessions int64 // distinct session ids in the group
}

// Key returns the i-th grouping key or "" when absent.
func (b Bucket) Key(i int) string {
	if i < len(b.Keys) {
		return b.Keys[i]
	}
	return ""
}

// PageViewSummary is an ungrouped count over a filter.
type PageViewSummary struct {
	Views    int64
	Sessions int64
}
