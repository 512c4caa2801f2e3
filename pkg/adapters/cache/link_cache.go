// Package cache keeps the public link list in memory between writes.
package cache

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

// LinkCache wraps a LinkRepository with a read-through cache for ListLinks.
// Every write bumps a generation number that is part of the cache key, so a
// list loaded before a write is never served after it.
type LinkCache struct {
	repo       ports.LinkRepository
	client     *ristretto.Cache
	ttl        time.Duration
	generation atomic.Uint64
}

func NewLinkCache(repo ports.LinkRepository, ttl time.Duration) (*LinkCache, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,    // Keys tracked for admission
		MaxCost:     1 << 16, // One unit per cached link
		BufferItems: 64,      // Keys per Get buffer
	})
	if err != nil {
		return nil, err
	}

	log.Info().Dur("ttl", ttl).Msg("Link cache initialized")
	return &LinkCache{repo: repo, client: client, ttl: ttl}, nil
}

func (c *LinkCache) key() string {
	return "links:" + strconv.FormatUint(c.generation.Load(), 10)
}

func (c *LinkCache) invalidate() {
	c.generation.Add(1)
}

func (c *LinkCache) ListLinks(ctx context.Context) ([]domain.Link, error) {
	key := c.key()
	if v, ok := c.client.Get(key); ok {
		if links, ok := v.([]domain.Link); ok {
			return append([]domain.Link(nil), links...), nil
		}
	}

	links, err := c.repo.ListLinks(ctx)
	if err != nil {
		return nil, err
	}
	c.client.SetWithTTL(key, append([]domain.Link(nil), links...), int64(len(links))+1, c.ttl)
	c.client.Wait()
	return links, nil
}

func (c *LinkCache) GetLink(ctx context.Context, id int64) (*domain.Link, error) {
	return c.repo.GetLink(ctx, id)
}

func (c *LinkCache) CreateLink(ctx context.Context, link *domain.Link) error {
	defer c.invalidate()
	return c.repo.CreateLink(ctx, link)
}

func (c *LinkCache) UpdateLink(ctx context.Context, link *domain.Link) error {
	defer c.invalidate()
	return c.repo.UpdateLink(ctx, link)
}

func (c *LinkCache) DeleteLink(ctx context.Context, id int64) error {
	defer c.invalidate()
	return c.repo.DeleteLink(ctx, id)
}

// Close releases the cache. The wrapped repository is left open.
func (c *LinkCache) Close() {
	c.client.Close()
}

// Ensure interface compliance
var _ ports.LinkRepository = (*LinkCache)(nil)
