package sqlstore

import (
	"strconv"
	"strings"
)

type dialect struct {
	name   string
	driver string
	// dollar placeholders ($1, $2...) instead of ?
	dollar bool
	// greatest is the two-argument max function
	greatest string
	schema   []string
}

var (
	sqliteDialect = dialect{
		name:     "sqlite",
		driver:   "sqlite",
		greatest: "MAX",
		schema:   sqliteSchema,
	}
	libsqlDialect = dialect{
		name:     "libsql",
		driver:   "libsql",
		greatest: "MAX",
		schema:   sqliteSchema,
	}
	postgresDialect = dialect{
		name:     "postgres",
		driver:   "postgres",
		dollar:   true,
		greatest: "GREATEST",
		schema:   postgresSchema,
	}
)

// dialectFor picks the dialect from the shape of the database URL.
func dialectFor(dsn string) dialect {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgresDialect
	case strings.Contains(dsn, "libsql://"), strings.Contains(dsn, "wss://"):
		return libsqlDialect
	default:
		return sqliteDialect
	}
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		description TEXT,
		date_added INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_date_added ON links(date_added)`,
	`CREATE TABLE IF NOT EXISTS click_analytics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link_id INTEGER NOT NULL,
		clicked_at INTEGER NOT NULL,
		day TEXT NOT NULL,
		FOREIGN KEY(link_id) REFERENCES links(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_click_analytics_link_id ON click_analytics(link_id)`,
	`CREATE TABLE IF NOT EXISTS page_views (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page TEXT NOT NULL,
		session_id TEXT NOT NULL,
		referrer TEXT,
		user_agent TEXT,
		screen_width INTEGER,
		screen_height INTEGER,
		country TEXT,
		region TEXT,
		city TEXT,
		timezone TEXT,
		latitude REAL,
		longitude REAL,
		viewed_at INTEGER NOT NULL,
		day TEXT NOT NULL,
		hour INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_views_day ON page_views(day)`,
	`CREATE INDEX IF NOT EXISTS idx_page_views_session_id ON page_views(session_id)`,
	`CREATE TABLE IF NOT EXISTS user_sessions (
		session_id TEXT PRIMARY KEY,
		start_time INTEGER NOT NULL,
		last_activity INTEGER NOT NULL,
		referrer TEXT,
		user_agent TEXT,
		screen_size TEXT,
		country TEXT,
		region TEXT,
		city TEXT,
		timezone TEXT,
		latitude REAL,
		longitude REAL
	)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'admin',
		created_at INTEGER NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		description TEXT,
		date_added BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_date_added ON links(date_added)`,
	`CREATE TABLE IF NOT EXISTS click_analytics (
		id BIGSERIAL PRIMARY KEY,
		link_id BIGINT NOT NULL REFERENCES links(id),
		clicked_at BIGINT NOT NULL,
		day TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_click_analytics_link_id ON click_analytics(link_id)`,
	`CREATE TABLE IF NOT EXISTS page_views (
		id BIGSERIAL PRIMARY KEY,
		page TEXT NOT NULL,
		session_id TEXT NOT NULL,
		referrer TEXT,
		user_agent TEXT,
		screen_width INTEGER,
		screen_height INTEGER,
		country TEXT,
		region TEXT,
		city TEXT,
		timezone TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		viewed_at BIGINT NOT NULL,
		day TEXT NOT NULL,
		hour INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_views_day ON page_views(day)`,
	`CREATE INDEX IF NOT EXISTS idx_page_views_session_id ON page_views(session_id)`,
	`CREATE TABLE IF NOT EXISTS user_sessions (
		session_id TEXT PRIMARY KEY,
		start_time BIGINT NOT NULL,
		last_activity BIGINT NOT NULL,
		referrer TEXT,
		user_agent TEXT,
		screen_size TEXT,
		country TEXT,
		region TEXT,
		city TEXT,
		timezone TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'admin',
		created_at BIGINT NOT NULL
	)`,
}
