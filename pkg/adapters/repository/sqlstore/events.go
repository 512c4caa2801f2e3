package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

// RecordClick inserts the click only when its link exists. The check and the
// insert are one statement, so a click never outlives a concurrent delete.
func (s *Store) RecordClick(ctx context.Context, click *domain.ClickEvent) (bool, error) {
	query := `INSERT INTO click_analytics (link_id, clicked_at, day)
			  SELECT CAST(? AS BIGINT), CAST(? AS BIGINT), CAST(? AS TEXT)
			  WHERE EXISTS (SELECT 1 FROM links WHERE id = ?)
			  RETURNING id`

	err := s.queryRow(ctx, query, click.LinkID, toMillis(click.ClickedAt), click.Day, click.LinkID).Scan(&click.ID)
	if errors.Is(err, sql.ErrNoRows) || isForeignKeyViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert click: %w", err)
	}
	return true, nil
}

// RecordPageView inserts the view and upserts its session in one transaction.
// An existing session only has last_activity moved forward.
func (s *Store) RecordPageView(ctx context.Context, view *domain.PageView, session *domain.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin page view: %w", err)
	}
	defer tx.Rollback()

	insertView := `INSERT INTO page_views (page, session_id, referrer, user_agent, screen_width, screen_height,
			  country, region, city, timezone, latitude, longitude, viewed_at, day, hour)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

	err = tx.QueryRowContext(ctx, s.d.rebind(insertView),
		view.Page, view.SessionID, nullString(view.Referrer), nullString(view.UserAgent),
		nullInt(view.ScreenWidth), nullInt(view.ScreenHeight),
		nullString(view.Country), nullString(view.Region), nullString(view.City), nullString(view.Timezone),
		nullFloat(view.Latitude), nullFloat(view.Longitude),
		toMillis(view.ViewedAt), view.Day, view.Hour,
	).Scan(&view.ID)
	if err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}

	var lat, lng *float64
	if session.Coordinates != nil {
		lat, lng = &session.Coordinates.Lat, &session.Coordinates.Lng
	}
	upsertSession := `INSERT INTO user_sessions (session_id, start_time, last_activity, referrer, user_agent,
			  screen_size, country, region, city, timezone, latitude, longitude)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(session_id) DO UPDATE SET
			  last_activity = ` + s.d.greatest + `(user_sessions.last_activity, excluded.last_activity)`

	_, err = tx.ExecContext(ctx, s.d.rebind(upsertSession),
		session.SessionID, toMillis(session.StartTime), toMillis(session.LastActivity),
		nullString(session.Referrer), nullString(session.UserAgent), nullString(session.ScreenSize),
		nullString(session.Country), nullString(session.Region), nullString(session.City), nullString(session.Timezone),
		nullFloat(lat), nullFloat(lng),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return tx.Commit()
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT session_id, start_time, last_activity, referrer, user_agent, screen_size,
			  country, region, city, timezone, latitude, longitude
			  FROM user_sessions WHERE session_id = ?`

	var sess domain.Session
	var start, last int64
	var ref, ua, size, country, region, city, tz sql.NullString
	var lat, lng sql.NullFloat64
	err := s.queryRow(ctx, query, sessionID).Scan(
		&sess.SessionID, &start, &last, &ref, &ua, &size,
		&country, &region, &city, &tz, &lat, &lng,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	sess.StartTime = fromMillis(start)
	sess.LastActivity = fromMillis(last)
	sess.Referrer = ref.String
	sess.UserAgent = ua.String
	sess.ScreenSize = size.String
	sess.Country = country.String
	sess.Region = region.String
	sess.City = city.String
	sess.Timezone = tz.String
	if lat.Valid && lng.Valid {
		sess.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &sess, nil
}
