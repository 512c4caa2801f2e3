// Package sqlstore is the relational Storage Adapter. One implementation
// serves local SQLite, remote libSQL (Turso) and PostgreSQL; report rollups
// are pushed down to SQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

type Store struct {
	db *sql.DB
	d  dialect
}

// New opens the database named by dsn and creates the schema. postgres://
// URLs use lib/pq, libsql:// and wss:// URLs use the Turso client, anything
// else is a local SQLite file or in-memory database.
func New(dsn string) (*Store, error) {
	d := dialectFor(dsn)

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}

	switch d.name {
	case "sqlite":
		// One writer; the busy timeout covers the CLI running next to the server.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	case "postgres":
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", d.name, err)
	}

	s := &Store{db: db, d: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s database: %w", d.name, err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Dialect names the SQL flavor in use.
func (s *Store) Dialect() string {
	return s.d.name
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.d.rebind(q), args...)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.d.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.d.rebind(q), args...)
}

// --- Links ---

func (s *Store) CreateLink(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (title, url, description, date_added)
			  VALUES (?, ?, ?, ?) RETURNING id`

	err := s.queryRow(ctx, query, link.Title, link.URL, nullString(link.Description), toMillis(link.DateAdded)).
		Scan(&link.ID)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (s *Store) GetLink(ctx context.Context, id int64) (*domain.Link, error) {
	query := `SELECT id, title, url, description, date_added FROM links WHERE id = ?`

	link, err := scanLink(s.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *Store) UpdateLink(ctx context.Context, link *domain.Link) error {
	query := `UPDATE links SET title = ?, url = ?, description = ? WHERE id = ?`

	res, err := s.exec(ctx, query, link.Title, link.URL, nullString(link.Description), link.ID)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Message: "link not found"}
	}
	return nil
}

// DeleteLink removes the link's clicks, then the link, in one transaction.
func (s *Store) DeleteLink(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete link: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.d.rebind(`DELETE FROM click_analytics WHERE link_id = ?`), id); err != nil {
		return fmt.Errorf("delete link clicks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.d.rebind(`DELETE FROM links WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListLinks(ctx context.Context) ([]domain.Link, error) {
	query := `SELECT id, title, url, description, date_added FROM links ORDER BY date_added DESC, id DESC`

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.Link, error) {
	var l domain.Link
	var desc sql.NullString
	var added int64
	if err := row.Scan(&l.ID, &l.Title, &l.URL, &desc, &added); err != nil {
		return nil, err
	}
	l.Description = desc.String
	l.DateAdded = fromMillis(added)
	return &l, nil
}

// --- Admins ---

func (s *Store) GetAdmin(ctx context.Context, username string) (*domain.Admin, error) {
	query := `SELECT id, username, password_hash, role, created_at FROM admin_users WHERE username = ?`

	var a domain.Admin
	var created int64
	err := s.queryRow(ctx, query, username).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	a.CreatedAt = fromMillis(created)
	return &a, nil
}

func (s *Store) SaveAdmin(ctx context.Context, admin *domain.Admin) error {
	query := `INSERT INTO admin_users (username, password_hash, role, created_at)
			  VALUES (?, ?, ?, ?)
			  ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash, role = excluded.role
			  RETURNING id`

	err := s.queryRow(ctx, query, admin.Username, admin.PasswordHash, admin.Role, toMillis(admin.CreatedAt)).
		Scan(&admin.ID)
	if err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	return nil
}

// isForeignKeyViolation matches the postgres error raised when a click races
// a concurrent link delete.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// Ensure interface compliance
var _ ports.Repository = (*Store)(nil)
