// Package repository selects the Storage Adapter named by the configuration.
package repository

import (
	"fmt"

	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/repository/redisstore"
	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/linkpulse/pkg/config"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
)

// Open connects to the configured backend. The sql backend picks SQLite,
// libSQL or PostgreSQL from DATABASE_URL.
func Open(cfg *config.Config) (ports.Repository, error) {
	switch cfg.StorageBackend {
	case BackendSQL, "":
		return sqlstore.New(cfg.DatabaseURL)
	case BackendRedis:
		return redisstore.New(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
