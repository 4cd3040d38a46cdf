package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artmarket/artmarket-backend/pkg/enums"
	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
)

func TestSessionsShareOneStorePerSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessions, err := NewSessions(SessionsParams{Storage: newFakeStorage()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	stores := make([]*Store, 20)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store, err := sessions.Get(ctx, "user:1")
			if err == nil {
				stores[i] = store
			}
		}(i)
	}
	wg.Wait()

	for _, store := range stores {
		require.NotNil(t, store)
		assert.Same(t, stores[0], store)
	}
	assert.Equal(t, 1, sessions.Active())
}

func TestSessionsIsolateNamespaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newFakeStorage()
	sessions, err := NewSessions(SessionsParams{Storage: storage})
	require.NoError(t, err)

	first, err := sessions.Get(ctx, "guest:a")
	require.NoError(t, err)
	second, err := sessions.Get(ctx, "guest:b")
	require.NoError(t, err)

	first.AddItem(ctx, mustItem(t, `{"id":"x","price":1}`), enums.PurchasableTypeArtwork)
	assert.Empty(t, second.Lines())

	_, found, err := storage.Get(ctx, "guest:b", StorageKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionsRequireID(t *testing.T) {
	t.Parallel()

	sessions, err := NewSessions(SessionsParams{Storage: newFakeStorage()})
	require.NoError(t, err)

	_, err = sessions.Get(context.Background(), "   ")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestNewSessionsRequiresStorage(t *testing.T) {
	t.Parallel()

	_, err := NewSessions(SessionsParams{})
	require.Error(t, err)
}

func TestReleaseReloadsFromStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	observer := &countingObserver{}
	sessions, err := NewSessions(SessionsParams{Storage: newFakeStorage(), Observer: observer})
	require.NoError(t, err)

	store, err := sessions.Get(ctx, "user:9")
	require.NoError(t, err)
	store.AddItem(ctx, mustItem(t, `{"id":"x","price":4}`), enums.PurchasableTypeEquipment)
	assert.Equal(t, 1, observer.active)

	sessions.Release("user:9")
	assert.Equal(t, 0, sessions.Active())
	assert.Equal(t, 0, observer.active)

	reloaded, err := sessions.Get(ctx, "user:9")
	require.NoError(t, err)
	assert.NotSame(t, store, reloaded)
	lines := reloaded.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, enums.PurchasableTypeEquipment, lines[0].Type)
}

func TestSweepReleasesIdleStores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	sessions, err := NewSessions(SessionsParams{Storage: newFakeStorage(), Now: clock.Now})
	require.NoError(t, err)

	_, err = sessions.Get(ctx, "guest:old")
	require.NoError(t, err)
	clock.advance(20 * time.Minute)
	fresh, err := sessions.Get(ctx, "guest:new")
	require.NoError(t, err)
	clock.advance(5 * time.Minute)
	fresh.Snapshot()

	assert.Equal(t, 1, sessions.Sweep(15*time.Minute))
	assert.Equal(t, 1, sessions.Active())
	assert.Equal(t, 0, sessions.Sweep(0))
}

func TestGetKeepsStoreAlive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	sessions, err := NewSessions(SessionsParams{Storage: newFakeStorage(), Now: clock.Now})
	require.NoError(t, err)

	first, err := sessions.Get(ctx, "guest:busy")
	require.NoError(t, err)
	clock.advance(20 * time.Minute)

	again, err := sessions.Get(ctx, "guest:busy")
	require.NoError(t, err)
	assert.Same(t, first, again)

	assert.Equal(t, 0, sessions.Sweep(15*time.Minute))
	third, err := sessions.Get(ctx, "guest:busy")
	require.NoError(t, err)
	assert.Same(t, first, third)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
