package stats

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/factchecker/veritas/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*Tracker, database.Store) {
	t.Helper()
	store, err := database.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewTracker(store, rand.New(rand.NewSource(42))), store
}

func TestRefresh_SeedsFromDefaultCounter(t *testing.T) {
	tracker, _ := newTracker(t)

	s := tracker.Refresh(context.Background())
	assert.Equal(t, int64(1_000_005), s.ContentAnalyzed)
	assert.GreaterOrEqual(t, s.Accuracy, 98.5)
	assert.LessOrEqual(t, s.Accuracy, 99.9)
	assert.InDelta(t, 99.2, s.Accuracy, 0.1+1e-9)
}

func TestIncrement_PersistsCounter(t *testing.T) {
	ctx := context.Background()
	tracker, store := newTracker(t)
	tracker.Refresh(ctx)

	tracker.Increment(ctx)
	s := tracker.Increment(ctx)
	assert.Equal(t, int64(1_000_007), s.ContentAnalyzed)

	raw, err := store.Get(ctx, database.KeyUploadedCount)
	require.NoError(t, err)
	assert.Equal(t, "7", string(raw))

	// a fresh tracker over the same store sees the new count
	other := NewTracker(store, rand.New(rand.NewSource(1)))
	assert.Equal(t, int64(1_000_007), other.Refresh(ctx).ContentAnalyzed)
}

func TestIncrement_AccuracyStaysClamped(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker(t)
	for i := 0; i < 500; i++ {
		s := tracker.Increment(ctx)
		require.GreaterOrEqual(t, s.Accuracy, 98.5)
		require.LessOrEqual(t, s.Accuracy, 99.9)
	}
}

func TestRefresh_CorruptCounterFallsBack(t *testing.T) {
	ctx := context.Background()
	tracker, store := newTracker(t)
	require.NoError(t, store.Put(ctx, database.KeyUploadedCount, []byte("abc")))

	assert.Equal(t, int64(1_000_005), tracker.Refresh(ctx).ContentAnalyzed)
}

// flakyStore fails the next failGets reads.
type flakyStore struct {
	database.Store
	failGets int
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.failGets > 0 {
		s.failGets--
		return nil, errors.New("disk unavailable")
	}
	return s.Store.Get(ctx, key)
}

func TestIncrement_ReadFailureKeepsCounter(t *testing.T) {
	ctx := context.Background()
	_, backend := newTracker(t)
	require.NoError(t, backend.Put(ctx, database.KeyUploadedCount, []byte("1000")))

	store := &flakyStore{Store: backend}
	tracker := NewTracker(store, rand.New(rand.NewSource(42)))
	require.Equal(t, int64(1_001_000), tracker.Refresh(ctx).ContentAnalyzed)

	store.failGets = 1
	s := tracker.Increment(ctx)
	assert.Equal(t, int64(1_001_001), s.ContentAnalyzed)

	raw, err := backend.Get(ctx, database.KeyUploadedCount)
	require.NoError(t, err)
	assert.Equal(t, "1000", string(raw))

	tracker.Increment(ctx)
	raw, err = backend.Get(ctx, database.KeyUploadedCount)
	require.NoError(t, err)
	assert.Equal(t, "1001", string(raw))

	store.failGets = 1
	assert.Equal(t, int64(1_001_002), tracker.Refresh(ctx).ContentAnalyzed)
}

func TestRun_StopsOnCancel(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		tracker.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, int64(1_000_005), tracker.Snapshot().ContentAnalyzed)
}
