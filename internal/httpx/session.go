package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/go-chi/chi/v5"
)

// SessionHeader carries the id of the UI session a request belongs to.
const SessionHeader = "X-Session-ID"

type sessionKey struct{}

// RequireSession resolves the session named by SessionHeader, creating it on
// first use.
func RequireSession(reg *app.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := reg.Session(r.Context(), r.Header.Get(SessionHeader))
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
		})
	}
}

func sessionFrom(r *http.Request) *app.Session {
	s, _ := r.Context().Value(sessionKey{}).(*app.Session)
	return s
}

type SessionHandler struct {
	Registry *app.Registry
}

type tokenReq struct {
	Token string `json:"token"`
}

func (h *SessionHandler) Register(r *chi.Mux) {
	r.Route("/session", func(r chi.Router) {
		r.Use(RequireSession(h.Registry))
		r.Get("/", h.get)
		r.Delete("/", h.end)
		r.Put("/token", h.setToken)
		r.Delete("/token", h.clearToken)
		r.Get("/user/{id}", h.user)
	})
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	c := s.Tokens.Claims()
	resp := map[string]any{
		"session_id":    s.ID,
		"authenticated": s.Tokens.Optional() != "",
		"user_id":       c.UserID,
		"roles":         c.Roles,
	}
	if u, ok := s.User(); ok {
		resp["user"] = u
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) setToken(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		badRequest(w, "token required")
		return
	}
	s := sessionFrom(r)
	s.SignIn(req.Token)
	c := s.Tokens.Claims()
	writeJSON(w, http.StatusOK, map[string]any{"user_id": c.UserID, "roles": c.Roles})
}

func (h *SessionHandler) clearToken(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// end signs the session out and forgets it. The persisted cart is kept.
func (h *SessionHandler) end(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	s.SignOut()
	h.Registry.Drop(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) user(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	u, err := sessionFrom(r).LoadUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
