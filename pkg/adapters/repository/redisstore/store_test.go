package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/repository/storetest"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(client), mr
}

func TestRedisContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Repository {
		s, _ := setupTestRedis(t)
		return s
	})
}

func TestNewFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := New("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))

	_, err = New("not a url")
	assert.Error(t, err)
}

func TestKeyLayout(t *testing.T) {
	s, mr := setupTestRedis(t)
	defer s.Close()
	ctx := context.Background()

	l := &domain.Link{Title: "t", URL: "https://example.com"}
	require.NoError(t, s.CreateLink(ctx, l))
	ok, err := s.RecordClick(ctx, &domain.ClickEvent{LinkID: l.ID, Day: "2026-01-10"})
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, mr.Exists("linkpulse:links"))
	assert.True(t, mr.Exists("linkpulse:clicks:1"))
	seq, err := mr.Get("linkpulse:links:seq")
	require.NoError(t, err)
	assert.Equal(t, "1", seq)

	require.NoError(t, s.DeleteLink(ctx, l.ID))
	assert.False(t, mr.Exists("linkpulse:clicks:1"))
}

func TestGroupPageViewsUnknownDimension(t *testing.T) {
	s, _ := setupTestRedis(t)
	defer s.Close()

	_, err := s.GroupPageViews(context.Background(), domain.Dimension("planet"), domain.PageViewFilter{})
	assert.Error(t, err)
}
