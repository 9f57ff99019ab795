// Package diag exposes a session's state to the outside world over HTTP:
// a health check, a handful of read-only info endpoints, and a long-poll
// scout endpoint that blocks until a Hello arrives instead of requiring a
// fixed-interval client poll.
package diag

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/session"
)

// Server is the HTTP diagnostics surface for one Session.
type Server struct {
	sess   *session.Session
	router chi.Router
}

// NewServer builds the diagnostics router for sess.
func NewServer(sess *session.Session) *Server {
	s := &Server{sess: sess, router: chi.NewRouter()}
	s.router.Get("/healthz", s.healthz)
	s.router.Get("/info/zid", s.infoZid)
	s.router.Get("/info/peers", s.infoPeers)
	s.router.Get("/info/routers", s.infoRouters)
	s.router.Get("/scout", s.scout)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.sess.State() != session.StateEstablished {
		http.Error(w, s.sess.State().String(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) infoZid(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"zid": s.sess.Zid().String()})
}

func zidsJSON(w http.ResponseWriter, zids []model.ZenohId) {
	out := make([]string, len(zids))
	for i, z := range zids {
		out[i] = z.String()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) infoPeers(w http.ResponseWriter, r *http.Request) {
	zidsJSON(w, s.sess.InfoPeersZid())
}

func (s *Server) infoRouters(w http.ResponseWriter, r *http.Request) {
	zidsJSON(w, s.sess.InfoRoutersZid())
}

// defaultScoutTimeout bounds the long-poll when the caller omits ?timeout.
const defaultScoutTimeout = 10 * time.Second

// scout holds the request open until a Hello is observed or the requested
// timeout elapses (?timeout=<duration>, e.g. "5s"; defaults to 10s, and an
// unparseable value falls back to the default rather than erroring).
func (s *Server) scout(w http.ResponseWriter, r *http.Request) {
	timeout := defaultScoutTimeout
	if q := r.URL.Query().Get("timeout"); q != "" {
		if d, err := time.ParseDuration(q); err == nil && d > 0 {
			timeout = d
		}
	}

	helloCh := make(chan *model.Hello, 1)
	s.sess.OnHello(model.Closure[*model.Hello]{
		Call: func(h *model.Hello) {
			select {
			case helloCh <- h:
			default:
			}
		},
	})

	select {
	case <-r.Context().Done():
		return
	case <-time.After(timeout):
		w.WriteHeader(http.StatusNoContent)
		return
	case h := <-helloCh:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"zid":      h.Zid.String(),
			"whatami":  h.WhatAmI.String(),
			"locators": h.Locators,
		})
	}
}
