package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.New(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)
	added := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, src.CreateLink(ctx, &domain.Link{Title: "Blog", URL: "https://blog.example.com", DateAdded: added}))
	require.NoError(t, src.CreateLink(ctx, &domain.Link{Title: "Code", URL: "https://code.example.com", Description: "repos", DateAdded: added.Add(time.Hour)}))

	var buf bytes.Buffer
	require.NoError(t, doExport(ctx, src, &buf))

	dst := newStore(t)
	require.NoError(t, dst.CreateLink(ctx, &domain.Link{Title: "Old blog", URL: "https://blog.example.com", DateAdded: added}))

	n, err := importLinks(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	links, err := dst.ListLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Code", links[0].Title)
	assert.Equal(t, "repos", links[0].Description)
	assert.True(t, links[0].DateAdded.Equal(added.Add(time.Hour)))
	assert.Equal(t, "Old blog", links[1].Title)
}

func TestImportSkipsDuplicatesAndBlanks(t *testing.T) {
	ctx := context.Background()
	dst := newStore(t)

	payload, err := json.Marshal([]domain.Link{
		{ID: 7, Title: "A", URL: "https://a.example.com"},
		{ID: 8, Title: "A again", URL: " https://a.example.com "},
		{ID: 9, Title: "", URL: "https://b.example.com"},
	})
	require.NoError(t, err)

	n, err := importLinks(ctx, dst, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	links, err := dst.ListLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, int64(1), links[0].ID)
	assert.False(t, links[0].DateAdded.IsZero())
}

func TestImportRejectsBadJSON(t *testing.T) {
	_, err := importLinks(context.Background(), newStore(t), strings.NewReader("{"))
	assert.Error(t, err)
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, doExport(context.Background(), newStore(t), &buf))
	assert.JSONEq(t, `[]`, buf.String())
}
