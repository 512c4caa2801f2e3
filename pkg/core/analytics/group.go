package analytics

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

// GroupPageViews is the in-process equivalent of the relational store's
// GROUP BY for a dimension. Buckets come back ordered by their keys.
func GroupPageViews(views []domain.PageView, dim domain.Dimension, f domain.PageViewFilter) []domain.Bucket {
	type acc struct {
		keys     []string
		views    int64
		sessions map[string]struct{}
	}
	groups := make(map[string]*acc)

	for i := range views {
		pv := &views[i]
		if !f.Match(pv.Day) {
			continue
		}
		keys, ok := bucketKeys(pv, dim)
		if !ok {
			continue
		}
		id := strings.Join(keys, "\x00")
		g, found := groups[id]
		if !found {
			g = &acc{keys: keys, sessions: make(map[string]struct{})}
			groups[id] = g
		}
		g.views++
		g.sessions[pv.SessionID] = struct{}{}
	}

	out := make([]domain.Bucket, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.Bucket{Keys: g.keys, Views: g.views, Sessions: int64(len(g.sessions))})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Join(out[i].Keys, "\x00") < strings.Join(out[j].Keys, "\x00")
	})
	return out
}

// SummarizePageViews counts views and distinct sessions passing the filter.
func SummarizePageViews(views []domain.PageView, f domain.PageViewFilter) domain.PageViewSummary {
	var sum domain.PageViewSummary
	sessions := make(map[string]struct{})
	for i := range views {
		if !f.Match(views[i].Day) {
			continue
		}
		sum.Views++
		sessions[views[i].SessionID] = struct{}{}
	}
	sum.Sessions = int64(len(sessions))
	return sum
}

func bucketKeys(pv *domain.PageView, dim domain.Dimension) ([]string, bool) {
	switch dim {
	case domain.DimPage:
		return []string{pv.Page}, true
	case domain.DimReferrer:
		return []string{pv.Referrer}, true
	case domain.DimResolution:
		if pv.ScreenWidth == nil || pv.ScreenHeight == nil {
			return nil, false
		}
		return []string{strconv.Itoa(*pv.ScreenWidth), strconv.Itoa(*pv.ScreenHeight)}, true
	case domain.DimWidth:
		if pv.ScreenWidth == nil {
			return nil, false
		}
		return []string{strconv.Itoa(*pv.ScreenWidth)}, true
	case domain.DimUserAgent:
		return []string{pv.UserAgent}, true
	case domain.DimCountry:
		return []string{pv.Country}, true
	case domain.DimRegion:
		return []string{pv.Region, pv.Country}, true
	case domain.DimCity:
		return []string{pv.City, pv.Country, pv.Region}, true
	case domain.DimDay:
		return []string{pv.Day}, true
	case domain.DimHour:
		return []string{strconv.Itoa(pv.Hour)}, true
	}
	return nil, false
}
