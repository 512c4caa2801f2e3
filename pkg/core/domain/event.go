package domain

import (
	"fmt"
	"time"
)

// ClickEvent represents a visitor following a Link's URL
type ClickEvent struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	ClickedAt time.Time `json:"clicked_at"`
	Day       string    `json:"day"` // YYYY-MM-DD in the report time zone
}

// PageView represents a visitor loading one page of the site
type PageView struct {
	ID           int64     `json:"id"`
	Page         string    `json:"page"`
	SessionID    string    `json:"session_id"`
	Referrer     string    `json:"referrer,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	ScreenWidth  *int      `json:"screen_width,omitempty"`
	ScreenHeight *int      `json:"screen_height,omitempty"`
	Country      string    `json:"country,omitempty"`
	Region       string    `json:"region,omitempty"`
	City         string    `json:"city,omitempty"`
	Timezone     string    `json:"timezone,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	ViewedAt     time.Time `json:"viewed_at"`
	Day          string    `json:"day"`  // YYYY-MM-DD in the report time zone
	Hour         int       `json:"hour"` // 0-23 in the report time zone
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Session groups a visitor's page views. Every field except LastActivity is
// fixed by the first page view that created it.
type Session struct {
	SessionID    string       `json:"session_id"`
	StartTime    time.Time    `json:"start_time"`
	LastActivity time.Time    `json:"last_activity"`
	Referrer     string       `json:"referrer,omitempty"`
	UserAgent    string       `json:"user_agent,omitempty"`
	ScreenSize   string       `json:"screen_size,omitempty"`
	Country      string       `json:"country,omitempty"`
	Region       string       `json:"region,omitempty"`
	City         string       `json:"city,omitempty"`
	Timezone     string       `json:"timezone,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
}

// NewSessionFromView builds the first-seen session record for a page view.
func NewSessionFromView(pv *PageView) *Session {
	s := &Session{
		SessionID:    pv.SessionID,
		StartTime:    pv.ViewedAt,
		LastActivity: pv.ViewedAt,
		Referrer:     pv.Referrer,
		UserAgent:    pv.UserAgent,
		Country:      pv.Country,
		Region:       pv.Region,
		City:         pv.City,
		Timezone:     pv.Timezone,
	}
	if pv.ScreenWidth != nil && pv.ScreenHeight != nil {
		s.ScreenSize = fmt.Sprintf("%dx%d", *pv.ScreenWidth, *pv.ScreenHeight)
	}
	if pv.Latitude != nil && pv.Longitude != nil {
		s.Coordinates = &Coordinates{Lat: *pv.Latitude, Lng: *pv.Longitude}
	}
	return s
}

// Touch applies a later page view to an existing session. Only LastActivity
// moves, and never backwards.
func (s *Session) Touch(at time.Time) {
	if at.After(s.LastActivity) {
		s.LastActivity = at
	}
}
