package domain

import "time"

// Link is an admin-curated external URL shown on the public list page.
type Link struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"` // Stored as NULL when empty
	DateAdded   time.Time `json:"date_added"`
}

// LinkClickStats is the per-link click rollup returned by the store.
type LinkClickStats struct {
	Link
	Clicks     int64      `json:"clicks"`
	FirstClick *time.Time `json:"first_click,omitempty"`
	LastClick  *time.Time `json:"last_click,omitempty"`
}
