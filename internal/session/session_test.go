package session

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/playback"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newRecord(id string) *Record {
	return &Record{
		ID:        id,
		ProjectID: "proj-1",
		Project:   &model.Project{ID: "proj-1", Title: "Demo"},
		Snapshot: playback.Snapshot{
			SessionID: id,
			Mode:      model.ModeTestMe,
			State:     model.StateWaitingForInput,
			Fired:     []string{"step:s1"},
		},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newMemory(t *testing.T, ttl time.Duration) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemoryStore(ttl, time.Hour)
	m.now = clock.Now
	t.Cleanup(func() { _ = m.Close() })
	return m, clock
}

func TestMemoryStore_CreateGetSaveDelete(t *testing.T) {
	ctx := context.Background()
	m, _ := newMemory(t, time.Minute)

	rec := newRecord("s-1")
	require.NoError(t, m.Create(ctx, rec))
	assert.Error(t, m.Create(ctx, newRecord("s-1")), "duplicate create")

	got, err := m.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", got.ProjectID)
	assert.Equal(t, model.StateWaitingForInput, got.Snapshot.State)
	assert.Equal(t, []string{"step:s1"}, got.Snapshot.Fired)

	got.Snapshot.State = model.StateComplete
	require.NoError(t, m.Save(ctx, got))
	again, err := m.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateComplete, again.Snapshot.State)

	require.NoError(t, m.Delete(ctx, "s-1"))
	_, err = m.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "s-1"), ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m, _ := newMemory(t, time.Minute)
	require.NoError(t, m.Create(ctx, newRecord("s-1")))

	a, err := m.Get(ctx, "s-1")
	require.NoError(t, err)
	a.Project.Title = "mutated"

	b, err := m.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Demo", b.Project.Title)
}

func TestMemoryStore_SlidingExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newMemory(t, time.Minute)
	rec := newRecord("s-1")
	require.NoError(t, m.Create(ctx, rec))
	assert.Equal(t, clock.Now().Add(time.Minute), rec.ExpiresAt)

	clock.Add(50 * time.Second)
	require.NoError(t, m.Save(ctx, rec))

	clock.Add(50 * time.Second)
	_, err := m.Get(ctx, "s-1")
	require.NoError(t, err, "save refreshes the ttl")

	clock.Add(11 * time.Second)
	_, err = m.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Save(ctx, rec), ErrNotFound, "expired sessions are not resurrected")
}

func TestMemoryStore_EvictExpired(t *testing.T) {
	ctx := context.Background()
	m, clock := newMemory(t, time.Minute)
	require.NoError(t, m.Create(ctx, newRecord("old")))
	clock.Add(30 * time.Second)
	require.NoError(t, m.Create(ctx, newRecord("new")))

	clock.Add(45 * time.Second)
	m.evictExpired()
	assert.Equal(t, 1, m.Len())
	_, err := m.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestMemoryStore_CloseIdempotent(t *testing.T) {
	m := NewMemoryStore(time.Minute, time.Millisecond)
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)

	tok, exp, err := issuer.Issue("s-1", "proj-1", "test-me")
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "s-1", claims.SessionID)
	assert.Equal(t, "proj-1", claims.ProjectID)
	assert.Equal(t, "test-me", claims.Mode)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Minute)
	require.NoError(t, err)
	other, err := NewTokenIssuer("other", time.Minute)
	require.NoError(t, err)

	tok, _, err := other.Issue("s-1", "proj-1", "guide-me")
	require.NoError(t, err)
	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	_, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	start := time.Now()
	issuer.now = func() time.Time { return start }
	tok, _, err = issuer.Issue("s-1", "proj-1", "guide-me")
	require.NoError(t, err)
	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	_, err = NewTokenIssuer("", time.Minute)
	assert.Error(t, err)
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client := redisClient(t)
	s := NewRedisStore(client, time.Minute)

	id := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { client.Del(ctx, sessionKey(id)) })

	assert.ErrorIs(t, s.Save(ctx, newRecord(id)), ErrNotFound, "save before create")
	require.NoError(t, s.Create(ctx, newRecord(id)))
	assert.Error(t, s.Create(ctx, newRecord(id)))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Demo", got.Project.Title)

	ttl, err := client.TTL(ctx, sessionKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
