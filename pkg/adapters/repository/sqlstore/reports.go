package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

// groupColumns is the SELECT list and extra WHERE conditions per dimension.
// Nullable text columns are coalesced so NULL and empty share a bucket.
var groupColumns = map[domain.Dimension]struct {
	cols  []string
	where []string
}{
	domain.DimPage:       {cols: []string{"page"}},
	domain.DimReferrer:   {cols: []string{"COALESCE(referrer, '')"}},
	domain.DimResolution: {cols: []string{"screen_width", "screen_height"}, where: []string{"screen_width IS NOT NULL", "screen_height IS NOT NULL"}},
	domain.DimWidth:      {cols: []string{"screen_width"}, where: []string{"screen_width IS NOT NULL"}},
	domain.DimUserAgent:  {cols: []string{"COALESCE(user_agent, '')"}},
	domain.DimCountry:    {cols: []string{"COALESCE(country, '')"}},
	domain.DimRegion:     {cols: []string{"COALESCE(region, '')", "COALESCE(country, '')"}},
	domain.DimCity:       {cols: []string{"COALESCE(city, '')", "COALESCE(country, '')", "COALESCE(region, '')"}},
	domain.DimDay:        {cols: []string{"day"}},
	domain.DimHour:       {cols: []string{"hour"}},
}

func (s *Store) LinkClickStats(ctx context.Context) ([]domain.LinkClickStats, error) {
	query := `SELECT l.id, l.title, l.url, l.description, l.date_added,
			  COUNT(c.id), MIN(c.clicked_at), MAX(c.clicked_at)
			  FROM links l
			  LEFT JOIN click_analytics c ON c.link_id = l.id
			  GROUP BY l.id, l.title, l.url, l.description, l.date_added
			  ORDER BY l.id`

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("link click stats: %w", err)
	}
	defer rows.Close()

	stats := []domain.LinkClickStats{}
	for rows.Next() {
		var st domain.LinkClickStats
		var desc sql.NullString
		var added int64
		var first, last sql.NullInt64
		if err := rows.Scan(&st.ID, &st.Title, &st.URL, &desc, &added, &st.Clicks, &first, &last); err != nil {
			return nil, fmt.Errorf("scan link click stats: %w", err)
		}
		st.Description = desc.String
		st.DateAdded = fromMillis(added)
		if first.Valid {
			t := fromMillis(first.Int64)
			st.FirstClick = &t
		}
		if last.Valid {
			t := fromMillis(last.Int64)
			st.LastClick = &t
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *Store) DailyLinkClicks(ctx context.Context) (map[int64]map[string]int64, error) {
	query := `SELECT link_id, day, COUNT(*) FROM click_analytics GROUP BY link_id, day`

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("daily link clicks: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]map[string]int64)
	for rows.Next() {
		var id, n int64
		var day string
		if err := rows.Scan(&id, &day, &n); err != nil {
			return nil, fmt.Errorf("scan daily link clicks: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[string]int64)
		}
		out[id][day] = n
	}
	return out, rows.Err()
}

func (s *Store) SummarizePageViews(ctx context.Context, f domain.PageViewFilter) (domain.PageViewSummary, error) {
	where, args := filterClause(f, nil)
	query := `SELECT COUNT(*), COUNT(DISTINCT session_id) FROM page_views` + where

	var sum domain.PageViewSummary
	if err := s.queryRow(ctx, query, args...).Scan(&sum.Views, &sum.Sessions); err != nil {
		return sum, fmt.Errorf("summarize page views: %w", err)
	}
	return sum, nil
}

// GroupPageViews runs one GROUP BY over page_views. Buckets are ordered by
// their keys.
func (s *Store) GroupPageViews(ctx context.Context, dim domain.Dimension, f domain.PageViewFilter) ([]domain.Bucket, error) {
	g, ok := groupColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}
	where, args := filterClause(f, g.where)

	ordinals := make([]string, len(g.cols))
	for i := range g.cols {
		ordinals[i] = fmt.Sprint(i + 1)
	}
	query := `SELECT ` + strings.Join(g.cols, ", ") + `, COUNT(*), COUNT(DISTINCT session_id)
			  FROM page_views` + where + `
			  GROUP BY ` + strings.Join(ordinals, ", ") + `
			  ORDER BY ` + strings.Join(ordinals, ", ")

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group page views by %s: %w", dim, err)
	}
	defer rows.Close()

	buckets := []domain.Bucket{}
	for rows.Next() {
		b := domain.Bucket{Keys: make([]string, len(g.cols))}
		dest := make([]any, 0, len(g.cols)+2)
		for i := range b.Keys {
			dest = append(dest, &b.Keys[i])
		}
		dest = append(dest, &b.Views, &b.Sessions)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s bucket: %w", dim, err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (s *Store) CountSessions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM user_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func filterClause(f domain.PageViewFilter, extra []string) (string, []any) {
	conds := append([]string{}, extra...)
	var args []any
	if f.Day != "" {
		conds = append(conds, "day = ?")
		args = append(args, f.Day)
	}
	if f.SinceDay != "" {
		conds = append(conds, "day >= ?")
		args = append(args, f.SinceDay)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
