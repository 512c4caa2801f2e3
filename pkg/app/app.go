// Package app wires configuration, storage, services and the HTTP router.
// The standalone server and the serverless entrypoint both start from New.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/cache"
	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/handler"
	"github.com/wadjakorntonsri/linkpulse/pkg/adapters/repository"
	"github.com/wadjakorntonsri/linkpulse/pkg/config"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/services"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

type App struct {
	Config  *config.Config
	Repo    ports.Repository
	Links   *services.LinkService
	Auth    *services.AuthService
	Handler http.Handler

	linkCache *cache.LinkCache
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("report timezone %q: %w", cfg.ReportTimezone, err)
	}

	repo, err := repository.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info().Str("backend", cfg.StorageBackend).Msg("Storage connected")

	a := &App{Config: cfg, Repo: repo}

	var links ports.LinkRepository = repo
	if cfg.LinkCacheTTL > 0 {
		a.linkCache, err = cache.NewLinkCache(repo, cfg.LinkCacheTTL)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("link cache: %w", err)
		}
		links = a.linkCache
	}

	a.Links = services.NewLinkService(links, repo, loc)
	a.Auth = services.NewAuthService(repo, cfg.JWTSecret)

	if err := a.bootstrapAdmin(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Handler = handler.NewRouter(cfg, handler.Services{
		Links:     a.Links,
		Tracking:  services.NewTrackingService(repo, loc),
		Analytics: services.NewAnalyticsService(repo, loc, cfg.TrendDays, cfg.TopN),
		Auth:      a.Auth,
		Ping:      repo.Ping,
	})
	return a, nil
}

// bootstrapAdmin creates the configured admin account once. An existing
// account keeps its password; use the CLI to change it.
func (a *App) bootstrapAdmin(ctx context.Context) error {
	if a.Config.JWTSecret == "secret" && a.Config.IsProduction() {
		log.Warn().Msg("JWT_SECRET is the default value")
	}
	if a.Config.AdminPassword == "" {
		log.Warn().Msg("ADMIN_PASSWORD not set, skipping admin bootstrap")
		return nil
	}

	created, err := a.Auth.EnsureAdmin(ctx, a.Config.AdminUsername, a.Config.AdminPassword, false)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Info().Str("username", a.Config.AdminUsername).Msg("Admin account created")
	}
	return nil
}

func (a *App) Close() error {
	if a.linkCache != nil {
		a.linkCache.Close()
	}
	return a.Repo.Close()
}
