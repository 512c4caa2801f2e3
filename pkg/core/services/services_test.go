package services

import (
	"context"
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

var base = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.New(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func adminCtx() context.Context {
	return domain.WithIdentity(context.Background(), domain.Identity{Subject: "admin", Role: domain.RoleAdmin})
}

// clock is a settable time source shared by the services under test.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func intPtr(v int) *int { return &v }
