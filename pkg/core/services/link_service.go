package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/analytics"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

type LinkService struct {
	repo   ports.LinkRepository
	events ports.EventRepository
	loc    *time.Location
	now    func() time.Time
}

func NewLinkService(repo ports.LinkRepository, events ports.EventRepository, loc *time.Location) *LinkService {
	return &LinkService{repo: repo, events: events, loc: loc, now: time.Now}
}

func (s *LinkService) ListLinks(ctx context.Context) ([]domain.Link, error) {
	links, err := s.repo.ListLinks(ctx)
	if err != nil {
		return nil, domain.WrapStorage("list links", err)
	}
	if links == nil {
		links = []domain.Link{}
	}
	return links, nil
}

func (s *LinkService) CreateLink(ctx context.Context, title, rawURL, description string) (*domain.Link, error) {
	if err := domain.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	link, err := validateLink(title, rawURL, description)
	if err != nil {
		return nil, err
	}
	link.DateAdded = eventTime(s.now)

	if err := s.repo.CreateLink(ctx, link); err != nil {
		return nil, domain.WrapStorage("create link", err)
	}
	return link, nil
}

func (s *LinkService) UpdateLink(ctx context.Context, id int64, title, rawURL, description string) (*domain.Link, error) {
	if err := domain.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	fields, err := validateLink(title, rawURL, description)
	if err != nil {
		return nil, err
	}

	link, err := s.repo.GetLink(ctx, id)
	if err != nil {
		return nil, domain.WrapStorage("get link", err)
	}
	if link == nil {
		return nil, &domain.NotFoundError{Message: "link not found"}
	}

	link.Title = fields.Title
	link.URL = fields.URL
	link.Description = fields.Description

	if err := s.repo.UpdateLink(ctx, link); err != nil {
		return nil, domain.WrapStorage("update link", err)
	}
	return link, nil
}

// DeleteLink removes the link and its clicks. Deleting a missing id succeeds.
func (s *LinkService) DeleteLink(ctx context.Context, id int64) error {
	if err := domain.RequireAdmin(ctx); err != nil {
		return err
	}
	return domain.WrapStorage("delete link", s.repo.DeleteLink(ctx, id))
}

// RecordClick appends a click for linkID. A click on a link that does not
// exist is dropped without error and reported as not recorded.
func (s *LinkService) RecordClick(ctx context.Context, linkID int64) (bool, error) {
	if linkID <= 0 {
		return false, nil
	}
	at := eventTime(s.now)
	click := &domain.ClickEvent{
		LinkID:    linkID,
		ClickedAt: at,
		Day:       analytics.DayKey(at, s.loc),
	}
	recorded, err := s.events.RecordClick(ctx, click)
	if err != nil {
		return false, domain.WrapStorage("record click", err)
	}
	return recorded, nil
}

func validateLink(title, rawURL, description string) (*domain.Link, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)
	if title == "" || rawURL == "" {
		return nil, &domain.ValidationError{Message: "title and url are required"}
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &domain.ValidationError{Message: "url must be an absolute http or https URL"}
	}
	return &domain.Link{
		Title:       title,
		URL:         rawURL,
		Description: strings.TrimSpace(description),
	}, nil
}

// eventTime is the persisted precision of every timestamp.
func eventTime(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Millisecond)
}
