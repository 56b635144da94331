package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultTimeout = 15 * time.Second

type RouterConfig struct {
	Service string
	// Timeout bounds every request, uploads included. Zero means 15s.
	Timeout time.Duration
	// Sessions, when set, reports the live session count on /healthz.
	Sessions interface{ Len() int }
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "ok", "service": cfg.Service}
		if cfg.Sessions != nil {
			resp["sessions"] = cfg.Sessions.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	})
	return r
}
