package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/domain"
)

type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// Machine resolves once, out of Loading, and never moves again.
type Machine struct {
	state State
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Resolve(to State) bool {
	if m.state != StateLoading || to == StateLoading {
		return false
	}
	m.state = to
	return true
}

// Authority is the auth service's view of a token.
type Authority interface {
	Check(ctx context.Context, token string) (domain.Profile, error)
}

// Classifier tells a rejected token apart from an authority that could not answer.
type Classifier func(err error) (rejected bool)

type Resolution struct {
	State   State
	Session Session
}

type Guard struct {
	store     Store
	authority Authority
	rejected  Classifier
	now       func() time.Time
	log       *zap.Logger
}

// NewGuard builds a guard; a nil authority means token presence and expiry decide alone.
func NewGuard(store Store, authority Authority, rejected Classifier, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	if rejected == nil {
		rejected = func(error) bool { return false }
	}
	return &Guard{store: store, authority: authority, rejected: rejected, now: time.Now, log: log}
}

func (g *Guard) Resolve(ctx context.Context, sessionID string) Resolution {
	var m Machine
	s, ok := g.resolve(ctx, sessionID, &m)
	if !ok {
		return Resolution{State: m.State()}
	}
	return Resolution{State: m.State(), Session: s}
}

func (g *Guard) resolve(ctx context.Context, sessionID string, m *Machine) (Session, bool) {
	if sessionID == "" {
		m.Resolve(StateUnauthenticated)
		return Session{}, false
	}

	s, err := g.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		m.Resolve(StateUnauthenticated)
		return Session{}, false
	}
	if err != nil {
		g.log.Warn("session store unavailable", zap.Error(err))
		return Session{}, false
	}

	if s.Token == "" || TokenExpired(s.Token, g.now()) {
		g.drop(ctx, s.ID)
		m.Resolve(StateUnauthenticated)
		return Session{}, false
	}

	if g.authority == nil {
		m.Resolve(StateAuthenticated)
		return s, true
	}

	profile, err := g.authority.Check(ctx, s.Token)
	switch {
	case err == nil:
		s.Profile = profile
		m.Resolve(StateAuthenticated)
		return s, true
	case g.rejected(err):
		g.drop(ctx, s.ID)
		m.Resolve(StateUnauthenticated)
		return Session{}, false
	default:
		g.log.Warn("auth check indeterminate", zap.String("session", s.ID), zap.Error(err))
		return Session{}, false
	}
}

// Establish stores a session for a freshly issued token.
func (g *Guard) Establish(ctx context.Context, token string, profile domain.Profile) (Session, error) {
	s := New(token, profile, g.now())
	if err := g.store.Save(ctx, s); err != nil {
		return Session{}, err
	}
	g.log.Info("session established", zap.String("session", s.ID), zap.String("user", profile.Username))
	return s, nil
}

func (g *Guard) End(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return g.store.Delete(ctx, sessionID)
}

func (g *Guard) drop(ctx context.Context, id string) {
	if err := g.store.Delete(ctx, id); err != nil {
		g.log.Warn("drop session", zap.String("session", id), zap.Error(err))
	}
}

// TokenExpired reads exp without checking the signature; the auth service stays the authority.
// Tokens that are not JWTs, or carry no exp, never expire locally.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
