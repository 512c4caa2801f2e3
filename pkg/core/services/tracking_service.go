package services

import (
	"context"
	"strings"
	"time"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/analytics"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

const skippedAdminPage = "admin page"

type TrackingService struct {
	repo ports.EventRepository
	loc  *time.Location
	now  func() time.Time
}

func NewTrackingService(repo ports.EventRepository, loc *time.Location) *TrackingService {
	return &TrackingService{repo: repo, loc: loc, now: time.Now}
}

// RecordPageView stores one page view and stitches it into its session.
// Views of the admin surface are acknowledged but never stored.
func (s *TrackingService) RecordPageView(ctx context.Context, in ports.PageViewInput) (ports.TrackResult, error) {
	page := strings.TrimSpace(in.Page)
	sessionID := strings.TrimSpace(in.SessionID)
	if page == "" || sessionID == "" {
		return ports.TrackResult{}, &domain.ValidationError{Message: "page and sessionId are required"}
	}
	if analytics.IsAdminPage(page) {
		return ports.TrackResult{Success: true, Skipped: skippedAdminPage}, nil
	}

	at := eventTime(s.now)
	view := &domain.PageView{
		Page:         page,
		SessionID:    sessionID,
		Referrer:     strings.TrimSpace(in.Referrer),
		UserAgent:    strings.TrimSpace(in.UserAgent),
		ScreenWidth:  positive(in.ScreenWidth),
		ScreenHeight: positive(in.ScreenHeight),
		Country:      strings.TrimSpace(in.Country),
		Region:       strings.TrimSpace(in.Region),
		City:         strings.TrimSpace(in.City),
		Timezone:     strings.TrimSpace(in.Timezone),
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		ViewedAt:     at,
		Day:          analytics.DayKey(at, s.loc),
		Hour:         analytics.HourOf(at, s.loc),
	}

	if err := s.repo.RecordPageView(ctx, view, domain.NewSessionFromView(view)); err != nil {
		return ports.TrackResult{}, domain.WrapStorage("record page view", err)
	}
	return ports.TrackResult{Success: true}, nil
}

// positive drops zero and negative screen dimensions some clients report.
func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
