package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/session"
	"github.com/warlaundry/washerman/internal/tracing"
)

type ctxKey string

const sessionCtxKey ctxKey = "session"

func sessionFrom(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionCtxKey).(session.Session)
	return s, ok
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		took := time.Since(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequest(r.Method+" "+route, status, took)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("took", took),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("trace_id", tracing.TraceID(r.Context())))
	})
}

// requireSession runs the guard. Pages go to /login when signed out and see a loading page
// while the auth service cannot answer; the API answers with status codes instead.
func (s *Server) requireSession(api bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := s.guard.Resolve(r.Context(), s.sessionID(r))
			switch res.State {
			case session.StateAuthenticated:
				ctx := context.WithValue(r.Context(), sessionCtxKey, res.Session)
				next.ServeHTTP(w, r.WithContext(ctx))
			case session.StateUnauthenticated:
				s.clearCookie(w)
				if api {
					writeJSON(w, http.StatusUnauthorized, apiError{Error: "not signed in"})
					return
				}
				http.Redirect(w, r, "/login", http.StatusFound)
			default:
				if api {
					w.Header().Set("Retry-After", "2")
					writeJSON(w, http.StatusAccepted, apiError{State: res.State.String()})
					return
				}
				s.renderLoading(w, r)
			}
		})
	}
}

func (s *Server) rateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if sess, ok := sessionFrom(r.Context()); ok {
				key = sess.ID
			}

			limiterCtx, err := l.Get(r.Context(), key)
			if err != nil {
				s.log.Error("rate limiter", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limiterCtx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(limiterCtx.Remaining, 10))
			if limiterCtx.Reached {
				s.log.Warn("rate limited", zap.String("key", key), zap.String("path", r.URL.Path))
				http.Error(w, "Too many requests, slow down", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) sessionID(r *http.Request) string {
	c, err := r.Cookie(s.opts.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
