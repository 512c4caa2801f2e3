package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

type clickRecord struct {
	ID        int64  `json:"id"`
	ClickedAt int64  `json:"clicked_at"`
	Day       string `json:"day"`
}

type viewRecord struct {
	ID           int64    `json:"id"`
	Page         string   `json:"page"`
	SessionID    string   `json:"session_id"`
	Referrer     string   `json:"referrer,omitempty"`
	UserAgent    string   `json:"user_agent,omitempty"`
	ScreenWidth  *int     `json:"screen_width,omitempty"`
	ScreenHeight *int     `json:"screen_height,omitempty"`
	Country      string   `json:"country,omitempty"`
	Region       string   `json:"region,omitempty"`
	City         string   `json:"city,omitempty"`
	Timezone     string   `json:"timezone,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	ViewedAt     int64    `json:"viewed_at"`
	Day          string   `json:"day"`
	Hour         int      `json:"hour"`
}

func (r viewRecord) toDomain() domain.PageView {
	return domain.PageView{
		ID:           r.ID,
		Page:         r.Page,
		SessionID:    r.SessionID,
		Referrer:     r.Referrer,
		UserAgent:    r.UserAgent,
		ScreenWidth:  r.ScreenWidth,
		ScreenHeight: r.ScreenHeight,
		Country:      r.Country,
		Region:       r.Region,
		City:         r.City,
		Timezone:     r.Timezone,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		ViewedAt:     fromMillis(r.ViewedAt),
		Day:          r.Day,
		Hour:         r.Hour,
	}
}

type sessionRecord struct {
	SessionID    string              `json:"session_id"`
	StartTime    int64               `json:"start_time"`
	LastActivity int64               `json:"last_activity"`
	Referrer     string              `json:"referrer,omitempty"`
	UserAgent    string              `json:"user_agent,omitempty"`
	ScreenSize   string              `json:"screen_size,omitempty"`
	Country      string              `json:"country,omitempty"`
	Region       string              `json:"region,omitempty"`
	City         string              `json:"city,omitempty"`
	Timezone     string              `json:"timezone,omitempty"`
	Coordinates  *domain.Coordinates `json:"coordinates,omitempty"`
}

func newSessionRecord(s *domain.Session) sessionRecord {
	return sessionRecord{
		SessionID:    s.SessionID,
		StartTime:    s.StartTime.UnixMilli(),
		LastActivity: s.LastActivity.UnixMilli(),
		Referrer:     s.Referrer,
		UserAgent:    s.UserAgent,
		ScreenSize:   s.ScreenSize,
		Country:      s.Country,
		Region:       s.Region,
		City:         s.City,
		Timezone:     s.Timezone,
		Coordinates:  s.Coordinates,
	}
}

func (r sessionRecord) toDomain() *domain.Session {
	return &domain.Session{
		SessionID:    r.SessionID,
		StartTime:    fromMillis(r.StartTime),
		LastActivity: fromMillis(r.LastActivity),
		Referrer:     r.Referrer,
		UserAgent:    r.UserAgent,
		ScreenSize:   r.ScreenSize,
		Country:      r.Country,
		Region:       r.Region,
		City:         r.City,
		Timezone:     r.Timezone,
		Coordinates:  r.Coordinates,
	}
}

// RecordClick appends to the link's click list under WATCH on the links hash,
// so a concurrent delete either lands first and the click is dropped, or
// lands after and removes the click with the link.
func (s *Store) RecordClick(ctx context.Context, click *domain.ClickEvent) (bool, error) {
	id, err := s.rdb.Incr(ctx, s.seqKey("clicks")).Result()
	if err != nil {
		return false, fmt.Errorf("next click id: %w", err)
	}
	data, err := json.Marshal(clickRecord{ID: id, ClickedAt: click.ClickedAt.UnixMilli(), Day: click.Day})
	if err != nil {
		return false, err
	}

	err = s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, s.linksKey(), strconv.FormatInt(click.LinkID, 10)).Result()
		if err != nil {
			return err
		}
		if !exists {
			return errLinkMissing
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, s.clicksKey(click.LinkID), data)
			return nil
		})
		return err
	}, s.linksKey())
	if errors.Is(err, errLinkMissing) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("record click: %w", err)
	}
	click.ID = id
	return true, nil
}

// RecordPageView appends the view and compare-and-swaps the session record.
// Only last_activity of an existing session moves, and only forward.
func (s *Store) RecordPageView(ctx context.Context, view *domain.PageView, session *domain.Session) error {
	id, err := s.rdb.Incr(ctx, s.seqKey("pageviews")).Result()
	if err != nil {
		return fmt.Errorf("next page view id: %w", err)
	}
	view.ID = id
	viewData, err := json.Marshal(viewRecord{
		ID:           id,
		Page:         view.Page,
		SessionID:    view.SessionID,
		Referrer:     view.Referrer,
		UserAgent:    view.UserAgent,
		ScreenWidth:  view.ScreenWidth,
		ScreenHeight: view.ScreenHeight,
		Country:      view.Country,
		Region:       view.Region,
		City:         view.City,
		Timezone:     view.Timezone,
		Latitude:     view.Latitude,
		Longitude:    view.Longitude,
		ViewedAt:     view.ViewedAt.UnixMilli(),
		Day:          view.Day,
		Hour:         view.Hour,
	})
	if err != nil {
		return err
	}

	key := s.sessionKey(session.SessionID)
	err = s.watch(ctx, func(tx *redis.Tx) error {
		rec := newSessionRecord(session)
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var existing sessionRecord
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}
			if rec.LastActivity > existing.LastActivity {
				existing.LastActivity = rec.LastActivity
			}
			rec = existing
		case !errors.Is(err, redis.Nil):
			return err
		}

		sessData, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, s.viewsKey(), viewData)
			pipe.Set(ctx, key, sessData, 0)
			pipe.SAdd(ctx, s.sessionsKey(), session.SessionID)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("record page view: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := s.rdb.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return rec.toDomain(), nil
}
