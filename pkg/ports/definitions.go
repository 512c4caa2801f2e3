package ports

import (
	"context"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

// LinkRepository defines storage operations for links
type LinkRepository interface {
	// CreateLink assigns link.ID.
	CreateLink(ctx context.Context, link *domain.Link) error
	// GetLink returns nil, nil when the id is missing.
	GetLink(ctx context.Context, id int64) (*domain.Link, error)
	UpdateLink(ctx context.Context, link *domain.Link) error
	// DeleteLink removes the link and its click events. A missing id is not an error.
	DeleteLink(ctx context.Context, id int64) error
	// ListLinks returns newest first.
	ListLinks(ctx context.Context) ([]domain.Link, error)
}

// EventRepository appends tracking events
type EventRepository interface {
	// RecordClick appends the click only if the link exists, atomically.
	// It reports whether a row was written.
	RecordClick(ctx context.Context, click *domain.ClickEvent) (bool, error)

	// RecordPageView appends the view and upserts its session in one atomic
	// step: insert when absent, otherwise only LastActivity may advance.
	RecordPageView(ctx context.Context, view *domain.PageView, session *domain.Session) error

	// GetSession returns nil, nil when the session is unknown.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// ReportRepository exposes the group/count primitives the analytics report is
// built from. Relational stores push these down to SQL; key-value stores read
// the full event set and group in-process.
type ReportRepository interface {
	// LinkClickStats covers every link, zero-click links included.
	LinkClickStats(ctx context.Context) ([]domain.LinkClickStats, error)
	// DailyLinkClicks maps link id to day to clicks.
	DailyLinkClicks(ctx context.Context) (map[int64]map[string]int64, error)
	SummarizePageViews(ctx context.Context, f domain.PageViewFilter) (domain.PageViewSummary, error)
	GroupPageViews(ctx context.Context, dim domain.Dimension, f domain.PageViewFilter) ([]domain.Bucket, error)
	CountSessions(ctx context.Context) (int64, error)
}

// AdminRepository stores admin accounts
type AdminRepository interface {
	// GetAdmin returns nil, nil when the username is unknown.
	GetAdmin(ctx context.Context, username string) (*domain.Admin, error)
	// SaveAdmin inserts, or replaces the password and role of an existing username.
	SaveAdmin(ctx context.Context, admin *domain.Admin) error
}

// Repository is the full Storage Adapter a backend provides.
type Repository interface {
	LinkRepository
	EventRepository
	ReportRepository
	AdminRepository
	Ping(ctx context.Context) error
	Close() error
}

// LinkService defines the link registry and click tracker operations
type LinkService interface {
	ListLinks(ctx context.Context) ([]domain.Link, error)
	CreateLink(ctx context.Context, title, url, description string) (*domain.Link, error)
	UpdateLink(ctx context.Context, id int64, title, url, description string) (*domain.Link, error)
	DeleteLink(ctx context.Context, id int64) error
	RecordClick(ctx context.Context, linkID int64) (bool, error)
}

// PageViewInput is the client payload of a page view
type PageViewInput struct {
	Page         string   `json:"page"`
	SessionID    string   `json:"sessionId"`
	Referrer     string   `json:"referrer,omitempty"`
	UserAgent    string   `json:"userAgent,omitempty"`
	ScreenWidth  *int     `json:"screenWidth,omitempty"`
	ScreenHeight *int     `json:"screenHeight,omitempty"`
	Country      string   `json:"country,omitempty"`
	Region       string   `json:"region,omitempty"`
	City         string   `json:"city,omitempty"`
	Timezone     string   `json:"timezone,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// TrackResult tells the client a page view was accepted. Skipped is set when
// the view was deliberately not stored.
type TrackResult struct {
	Success bool   `json:"success"`
	Skipped string `json:"skipped,omitempty"`
}

// TrackingService defines the page view tracker
type TrackingService interface {
	RecordPageView(ctx context.Context, in PageViewInput) (TrackResult, error)
}

// ReportOptions tunes a single analytics report
type ReportOptions struct {
	TrendDays int // 7 or 30; 0 uses the configured default
}

// AnalyticsService builds the admin analytics report
type AnalyticsService interface {
	Report(ctx context.Context, opts ReportOptions) (*domain.Report, error)
}

// AuthService verifies admin credentials and issues session tokens
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *domain.Admin, error)
	IssueToken(subject, role string) (string, error)
	Verify(token string) (domain.Identity, error)
	EnsureAdmin(ctx context.Context, username, password string, overwrite bool) (bool, error)
}
