package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warlaundry/washerman/internal/domain"
)

var errRejected = errors.New("401")

type fakeAuthority struct {
	profile domain.Profile
	err     error
	calls   int
}

func (f *fakeAuthority) Check(context.Context, string) (domain.Profile, error) {
	f.calls++
	return f.profile, f.err
}

func isRejected(err error) bool {
	return errors.Is(err, errRejected)
}

type brokenStore struct {
	Store
}

func (brokenStore) Get(context.Context, string) (Session, error) {
	return Session{}, errors.New("redis: connection refused")
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ramesh",
		"exp": exp.Unix(),
	}).SignedString([]byte("not-our-key"))
	require.NoError(t, err)
	return tok
}

func TestMachine_ResolvesOnce(t *testing.T) {
	t.Parallel()

	var m Machine
	assert.Equal(t, StateLoading, m.State())
	assert.False(t, m.Resolve(StateLoading))
	assert.True(t, m.Resolve(StateAuthenticated))
	assert.False(t, m.Resolve(StateUnauthenticated))
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestTokenExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, TokenExpired(signed(t, now.Add(time.Hour)), now))
	assert.True(t, TokenExpired(signed(t, now.Add(-time.Second)), now))
	assert.True(t, TokenExpired(signed(t, now), now))
	assert.False(t, TokenExpired("opaque-token", now))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.False(t, TokenExpired(noExp, now))
}

func TestGuard_Resolve(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ctx := context.Background()

	tests := []struct {
		name        string
		token       string
		authority   *fakeAuthority
		sessionID   func(store Store) string
		wantState   State
		wantDropped bool
	}{
		{
			name:      "NoCookie",
			sessionID: func(Store) string { return "" },
			wantState: StateUnauthenticated,
		},
		{
			name:      "UnknownSession",
			sessionID: func(Store) string { return "nope" },
			wantState: StateUnauthenticated,
		},
		{
			name:      "TokenPresent_NoAuthority",
			token:     signed(t, now.Add(time.Hour)),
			wantState: StateAuthenticated,
		},
		{
			name:        "TokenExpiredLocally",
			token:       signed(t, now.Add(-time.Hour)),
			authority:   &fakeAuthority{},
			wantState:   StateUnauthenticated,
			wantDropped: true,
		},
		{
			name:      "AuthorityConfirms",
			token:     "opaque",
			authority: &fakeAuthority{profile: domain.Profile{Username: "ramesh", Name: "Ramesh K"}},
			wantState: StateAuthenticated,
		},
		{
			name:        "AuthorityRejects",
			token:       "opaque",
			authority:   &fakeAuthority{err: errRejected},
			wantState:   StateUnauthenticated,
			wantDropped: true,
		},
		{
			name:      "AuthorityUnreachable_StaysLoading",
			token:     "opaque",
			authority: &fakeAuthority{err: errors.New("dial tcp: connection refused")},
			wantState: StateLoading,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := NewMemoryStore(10, time.Hour, nil)
			var authority Authority
			if tc.authority != nil {
				authority = tc.authority
			}
			g := NewGuard(store, authority, isRejected, nil)

			id := ""
			if tc.sessionID != nil {
				id = tc.sessionID(store)
			} else {
				s, err := g.Establish(ctx, tc.token, domain.Profile{Username: "ramesh"})
				require.NoError(t, err)
				id = s.ID
			}

			res := g.Resolve(ctx, id)
			assert.Equal(t, tc.wantState, res.State)
			if tc.wantState == StateAuthenticated {
				assert.Equal(t, id, res.Session.ID)
				assert.Equal(t, "ramesh", res.Session.Profile.Username)
			} else {
				assert.Empty(t, res.Session.ID)
			}

			if id != "" && tc.sessionID == nil {
				_, err := store.Get(ctx, id)
				if tc.wantDropped {
					assert.ErrorIs(t, err, ErrNotFound)
				} else {
					assert.NoError(t, err)
				}
			}
		})
	}
}

func TestGuard_AuthorityProfileWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	authority := &fakeAuthority{profile: domain.Profile{Username: "ramesh", Name: "Ramesh Kumar", Role: "washerman"}}
	g := NewGuard(NewMemoryStore(10, time.Hour, nil), authority, isRejected, nil)

	s, err := g.Establish(ctx, "opaque", domain.Profile{Username: "ramesh"})
	require.NoError(t, err)

	res := g.Resolve(ctx, s.ID)
	assert.Equal(t, "Ramesh Kumar", res.Session.Profile.Name)
	assert.Equal(t, 1, authority.calls)
}

func TestGuard_StoreFailure_StaysLoading(t *testing.T) {
	t.Parallel()

	g := NewGuard(brokenStore{}, nil, nil, nil)
	assert.Equal(t, StateLoading, g.Resolve(context.Background(), "any").State)
}

func TestGuard_End(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour, nil)
	g := NewGuard(store, nil, nil, nil)

	s, err := g.Establish(ctx, "opaque", domain.Profile{})
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, g.Resolve(ctx, s.ID).State)

	require.NoError(t, g.End(ctx, s.ID))
	assert.Equal(t, StateUnauthenticated, g.Resolve(ctx, s.ID).State)
	assert.NoError(t, g.End(ctx, ""))
}

func TestMemoryStore_EvictionCallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var evicted []string
	store := NewMemoryStore(1, time.Hour, func(id string) { evicted = append(evicted, id) })

	first := New("a", domain.Profile{}, time.Now())
	second := New("b", domain.Profile{}, time.Now())
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	assert.Equal(t, []string{first.ID}, evicted)
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
