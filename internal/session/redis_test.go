package session

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/warlaundry/washerman/internal/domain"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *redis.Client
	store     *RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcredis.Run(s.ctx, "redis:7-alpine")
	require.NoError(s.T(), err)
	s.container = container

	uri, err := container.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	opts, err := redis.ParseURL(uri)
	require.NoError(s.T(), err)

	s.client = redis.NewClient(opts)
	s.store = NewRedisStore(s.client, 2*time.Second)
}

func (s *RedisStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushDB(s.ctx).Err())
}

func (s *RedisStoreSuite) TestRoundTrip() {
	saved := New("tok-1", domain.Profile{Username: "ramesh", Role: "washerman"}, time.Now().UTC().Truncate(time.Second))
	s.Require().NoError(s.store.Save(s.ctx, saved))

	got, err := s.store.Get(s.ctx, saved.ID)
	s.Require().NoError(err)
	s.Equal(saved.Token, got.Token)
	s.Equal(saved.Profile, got.Profile)
	s.True(saved.CreatedAt.Equal(got.CreatedAt))

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *RedisStoreSuite) TestDeleteAndMissing() {
	saved := New("tok-2", domain.Profile{}, time.Now())
	s.Require().NoError(s.store.Save(s.ctx, saved))
	s.Require().NoError(s.store.Delete(s.ctx, saved.ID))

	_, err := s.store.Get(s.ctx, saved.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RedisStoreSuite) TestExpires() {
	saved := New("tok-3", domain.Profile{}, time.Now())
	s.Require().NoError(s.store.Save(s.ctx, saved))

	s.Eventually(func() bool {
		_, err := s.store.Get(s.ctx, saved.ID)
		return err == ErrNotFound
	}, 10*time.Second, 250*time.Millisecond)
}

func (s *RedisStoreSuite) TestGuardOverRedis() {
	g := NewGuard(s.store, nil, nil, nil)
	sess, err := g.Establish(s.ctx, "opaque", domain.Profile{Username: "ramesh"})
	s.Require().NoError(err)

	s.Equal(StateAuthenticated, g.Resolve(s.ctx, sess.ID).State)
	s.Require().NoError(g.End(s.ctx, sess.ID))
	s.Equal(StateUnauthenticated, g.Resolve(s.ctx, sess.ID).State)
}
