package handler

import (
	"context"
	"net/http"
	_ "time/tzdata"

	"github.com/wadjakorntonsri/linkpulse/pkg/app"
	"github.com/wadjakorntonsri/linkpulse/pkg/config"
	"github.com/wadjakorntonsri/linkpulse/pkg/logger"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logger.Initialize(cfg.AppEnv, cfg.LogLevel)

	// Note: On Vercel, a file DATABASE_URL is ephemeral; use libsql://, postgres:// or STORAGE_BACKEND=redis
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	mux = a.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
