package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/analytics"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

// linkClicks loads every link with its click list in one pipeline.
func (s *Store) linkClicks(ctx context.Context) ([]linkRecord, map[int64][]clickRecord, error) {
	links, err := s.allLinks(ctx)
	if err != nil {
		return nil, nil, err
	}

	cmds := make([]*redis.StringSliceCmd, len(links))
	if len(links) > 0 {
		_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, l := range links {
				cmds[i] = pipe.LRange(ctx, s.clicksKey(l.ID), 0, -1)
			}
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("load clicks: %w", err)
		}
	}

	clicks := make(map[int64][]clickRecord, len(links))
	for i, l := range links {
		for _, raw := range cmds[i].Val() {
			var c clickRecord
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				return nil, nil, fmt.Errorf("decode click: %w", err)
			}
			clicks[l.ID] = append(clicks[l.ID], c)
		}
	}
	return links, clicks, nil
}

func (s *Store) LinkClickStats(ctx context.Context) ([]domain.LinkClickStats, error) {
	links, clicks, err := s.linkClicks(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]domain.LinkClickStats, 0, len(links))
	for _, l := range links {
		st := domain.LinkClickStats{Link: l.toDomain()}
		for _, c := range clicks[l.ID] {
			st.Clicks++
			at := fromMillis(c.ClickedAt)
			if st.FirstClick == nil || at.Before(*st.FirstClick) {
				first := at
				st.FirstClick = &first
			}
			if st.LastClick == nil || at.After(*st.LastClick) {
				last := at
				st.LastClick = &last
			}
		}
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats, nil
}

func (s *Store) DailyLinkClicks(ctx context.Context) (map[int64]map[string]int64, error) {
	_, clicks, err := s.linkClicks(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]map[string]int64, len(clicks))
	for id, list := range clicks {
		days := make(map[string]int64)
		for _, c := range list {
			days[c.Day]++
		}
		out[id] = days
	}
	return out, nil
}

// allViews reads the whole page view list.
func (s *Store) allViews(ctx context.Context) ([]domain.PageView, error) {
	raws, err := s.rdb.LRange(ctx, s.viewsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load page views: %w", err)
	}
	views := make([]domain.PageView, 0, len(raws))
	for _, raw := range raws {
		var r viewRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode page view: %w", err)
		}
		views = append(views, r.toDomain())
	}
	return views, nil
}

func (s *Store) SummarizePageViews(ctx context.Context, f domain.PageViewFilter) (domain.PageViewSummary, error) {
	views, err := s.allViews(ctx)
	if err != nil {
		return domain.PageViewSummary{}, err
	}
	return analytics.SummarizePageViews(views, f), nil
}

func (s *Store) GroupPageViews(ctx context.Context, dim domain.Dimension, f domain.PageViewFilter) ([]domain.Bucket, error) {
	if !dim.Valid() {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}
	views, err := s.allViews(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.GroupPageViews(views, dim, f), nil
}

func (s *Store) CountSessions(ctx context.Context) (int64, error) {
	n, err := s.rdb.SCard(ctx, s.sessionsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
