package web

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/session"
)

const msgLoginFailed = "Login failed"

type loginBody struct {
	Username string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if id := s.sessionID(r); id != "" {
		if res := s.guard.Resolve(r.Context(), id); res.State == session.StateAuthenticated {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
	}
	s.render(w, http.StatusOK, "login", layout{Title: "Sign in"}, loginBody{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "login", layout{Title: "Sign in", Error: msgLoginFailed}, loginBody{})
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	token, profile, err := s.backend.Login(r.Context(), username, password)
	if err != nil {
		s.log.Info("login rejected", zap.String("user", username), zap.Error(err))
		s.render(w, http.StatusUnauthorized, "login",
			layout{Title: "Sign in", Error: messageOf(err, msgLoginFailed)}, loginBody{Username: username})
		return
	}

	sess, err := s.guard.Establish(r.Context(), token, profile)
	if err != nil {
		s.log.Error("establish session", zap.Error(err))
		s.render(w, http.StatusServiceUnavailable, "login",
			layout{Title: "Sign in", Error: msgLoginFailed}, loginBody{Username: username})
		return
	}
	s.reportSessions(r.Context())
	s.setCookie(w, sess.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := s.sessionID(r); id != "" {
		if err := s.guard.End(r.Context(), id); err != nil {
			s.log.Warn("end session", zap.String("session", id), zap.Error(err))
		}
		s.workspaces.Drop(id)
		s.reportSessions(r.Context())
	}
	s.clearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) reportSessions(ctx context.Context) {
	stats, err := s.workspaces.SessionStats(ctx)
	if err != nil {
		s.log.Warn("count sessions", zap.Error(err))
		return
	}
	s.metrics.SessionsActive(stats.Active)
}
