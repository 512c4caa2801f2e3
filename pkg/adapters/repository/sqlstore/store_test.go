package sqlstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/repository/storetest"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

// newMemoryStore opens a private in-memory SQLite database.
func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	return s
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Repository {
		return newMemoryStore(t)
	})
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"file:db.sqlite", "sqlite"},
		{"file:memdb1?mode=memory&cache=shared", "sqlite"},
		{"libsql://my-db.turso.io?authToken=x", "libsql"},
		{"wss://my-db.turso.io", "libsql"},
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "postgres"},
		{"postgresql://localhost/db", "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, dialectFor(tt.dsn).name)
		})
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = ? AND y >= ?`
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, `SELECT a FROM t WHERE x = $1 AND y >= $2`, postgresDialect.rebind(q))
}

func TestGroupPageViewsUnknownDimension(t *testing.T) {
	s := newMemoryStore(t)
	defer s.Close()

	_, err := s.GroupPageViews(context.Background(), domain.Dimension("planet"), domain.PageViewFilter{})
	assert.Error(t, err)
}

func TestEmptyDescriptionStoredAsNull(t *testing.T) {
	s := newMemoryStore(t)
	defer s.Close()
	ctx := context.Background()

	l := &domain.Link{Title: "t", URL: "https://example.com"}
	require.NoError(t, s.CreateLink(ctx, l))

	var isNull bool
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT description IS NULL FROM links WHERE id = ?`, l.ID).Scan(&isNull))
	assert.True(t, isNull)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newMemoryStore(t)
	defer s.Close()
	require.NoError(t, s.migrate())
	assert.Equal(t, "sqlite", s.Dialect())
}
