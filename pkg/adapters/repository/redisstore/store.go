// Package redisstore is the key-value Storage Adapter. Links, clicks, page
// views and sessions live in Redis; report rollups read the full event set
// and group it in-process. Reads therefore cost time proportional to the
// number of stored events, while every write stays a single round trip.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

const (
	defaultPrefix = "linkpulse"
	// maxTxRetries bounds optimistic WATCH/MULTI retries under contention.
	maxTxRetries = 16
)

var errLinkMissing = errors.New("link missing")

type Store struct {
	rdb    *redis.Client
	prefix string
}

// New connects to the Redis server at redisURL (redis://[:pass@]host:port/db).
func New(redisURL string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewFromClient(rdb), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, prefix: defaultPrefix}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) linksKey() string { return s.key("links") }
func (s *Store) clicksKey(linkID int64) string { return s.key("clicks", strconv.FormatInt(linkID, 10)) }
func (s *Store) viewsKey() string { return s.key("pageviews") }
func (s *Store) sessionKey(id string) string { return s.key("session", id) }
func (s *Store) sessionsKey() string { return s.key("sessions") }
func (s *Store) adminsKey() string { return s.key("admins") }
func (s *Store) seqKey(name string) string { return s.key(name, "seq") }

// watch runs fn under WATCH on keys, retrying when a concurrent writer
// invalidates the transaction.
func (s *Store) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction on %v: %w", keys, redis.TxFailedErr)
}

// --- Links ---

type linkRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	DateAdded   int64  `json:"date_added"`
}

func newLinkRecord(l *domain.Link) linkRecord {
	return linkRecord{ID: l.ID, Title: l.Title, URL: l.URL, Description: l.Description, DateAdded: l.DateAdded.UnixMilli()}
}

func (r linkRecord) toDomain() domain.Link {
	return domain.Link{ID: r.ID, Title: r.Title, URL: r.URL, Description: r.Description, DateAdded: fromMillis(r.DateAdded)}
}

// CreateLink takes the id from an INCR counter, so ids are never reused.
func (s *Store) CreateLink(ctx context.Context, link *domain.Link) error {
	id, err := s.rdb.Incr(ctx, s.seqKey("links")).Result()
	if err != nil {
		return fmt.Errorf("next link id: %w", err)
	}
	link.ID = id

	data, err := json.Marshal(newLinkRecord(link))
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, s.linksKey(), strconv.FormatInt(id, 10), data).Err(); err != nil {
		return fmt.Errorf("save link: %w", err)
	}
	return nil
}

func (s *Store) GetLink(ctx context.Context, id int64) (*domain.Link, error) {
	data, err := s.rdb.HGet(ctx, s.linksKey(), strconv.FormatInt(id, 10)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	var rec linkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode link %d: %w", id, err)
	}
	l := rec.toDomain()
	return &l, nil
}

func (s *Store) UpdateLink(ctx context.Context, link *domain.Link) error {
	field := strconv.FormatInt(link.ID, 10)
	return s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.HGet(ctx, s.linksKey(), field).Bytes()
		if errors.Is(err, redis.Nil) {
			return &domain.NotFoundError{Message: "link not found"}
		}
		if err != nil {
			return fmt.Errorf("get link: %w", err)
		}
		var rec linkRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode link %d: %w", link.ID, err)
		}
		rec.Title, rec.URL, rec.Description = link.Title, link.URL, link.Description
		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.linksKey(), field, updated)
			return nil
		})
		return err
	}, s.linksKey())
}

// DeleteLink drops the click list and the link in one MULTI/EXEC.
func (s *Store) DeleteLink(ctx context.Context, id int64) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.clicksKey(id))
		pipe.HDel(ctx, s.linksKey(), strconv.FormatInt(id, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

func (s *Store) ListLinks(ctx context.Context) ([]domain.Link, error) {
	recs, err := s.allLinks(ctx)
	if err != nil {
		return nil, err
	}
	links := make([]domain.Link, 0, len(recs))
	for _, r := range recs {
		links = append(links, r.toDomain())
	}
	sort.Slice(links, func(i, j int) bool {
		if !links[i].DateAdded.Equal(links[j].DateAdded) {
			return links[i].DateAdded.After(links[j].DateAdded)
		}
		return links[i].ID > links[j].ID
	})
	return links, nil
}

func (s *Store) allLinks(ctx context.Context) ([]linkRecord, error) {
	vals, err := s.rdb.HVals(ctx, s.linksKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	recs := make([]linkRecord, 0, len(vals))
	for _, v := range vals {
		var r linkRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode link: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// --- Admins ---

type adminRecord struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
	CreatedAt    int64  `json:"created_at"`
}

func (s *Store) GetAdmin(ctx context.Context, username string) (*domain.Admin, error) {
	data, err := s.rdb.HGet(ctx, s.adminsKey(), username).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	var rec adminRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode admin: %w", err)
	}
	return &domain.Admin{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Role:         rec.Role,
		CreatedAt:    fromMillis(rec.CreatedAt),
	}, nil
}

// SaveAdmin keeps the id and creation time of an existing username.
func (s *Store) SaveAdmin(ctx context.Context, admin *domain.Admin) error {
	return s.watch(ctx, func(tx *redis.Tx) error {
		rec := adminRecord{
			Username:     admin.Username,
			PasswordHash: admin.PasswordHash,
			Role:         admin.Role,
			CreatedAt:    admin.CreatedAt.UnixMilli(),
		}
		data, err := tx.HGet(ctx, s.adminsKey(), admin.Username).Bytes()
		switch {
		case err == nil:
			var existing adminRecord
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("decode admin: %w", err)
			}
			rec.ID, rec.CreatedAt = existing.ID, existing.CreatedAt
		case errors.Is(err, redis.Nil):
			if rec.ID, err = tx.Incr(ctx, s.seqKey("admins")).Result(); err != nil {
				return fmt.Errorf("next admin id: %w", err)
			}
		default:
			return fmt.Errorf("get admin: %w", err)
		}

		encoded, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.adminsKey(), admin.Username, encoded)
			return nil
		}); err != nil {
			return err
		}
		admin.ID = rec.ID
		return nil
	}, s.adminsKey())
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Ensure interface compliance
var _ ports.Repository = (*Store)(nil)
