// Package stats maintains the advisory accuracy and content-analyzed figures.
package stats

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/factchecker/veritas/internal/database"
	"github.com/factchecker/veritas/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	baseAccuracy        = 99.2
	minAccuracy         = 98.5
	maxAccuracy         = 99.9
	baseContentAnalyzed = 1_000_000
	defaultUploadCount  = 5
)

// Tracker owns the aggregate stats. Only the analysis success path calls
// Increment; presentation code reads Snapshot.
type Tracker struct {
	mu      sync.Mutex
	store   database.Store
	rng     *rand.Rand
	current models.AggregateStats
}

// NewTracker creates a tracker. A nil rng uses a time-seeded source.
func NewTracker(store database.Store, rng *rand.Rand) *Tracker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Tracker{
		store: store,
		rng:   rng,
		current: models.AggregateStats{
			Accuracy:        baseAccuracy,
			ContentAnalyzed: baseContentAnalyzed,
		},
	}
}

// Snapshot returns the current figures.
func (t *Tracker) Snapshot() models.AggregateStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Refresh recomputes the figures from the persisted upload counter. When
// the counter cannot be read, the content figure is left unchanged.
func (t *Tracker) Refresh(ctx context.Context) models.AggregateStats {
	count, err := t.count(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	analyzed := t.current.ContentAnalyzed
	if err == nil {
		analyzed = baseContentAnalyzed + count
	}
	variation := (t.rng.Float64() - 0.5) * 0.2
	t.current = models.AggregateStats{
		Accuracy:        round1(clamp(baseAccuracy + variation)),
		ContentAnalyzed: analyzed,
	}
	return t.current
}

// Increment records one more completed analysis.
func (t *Tracker) Increment(ctx context.Context) models.AggregateStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A counter that cannot be read is never overwritten.
	if count, err := t.count(ctx); err == nil {
		if err := t.store.Put(ctx, database.KeyUploadedCount, []byte(strconv.FormatInt(count+1, 10))); err != nil {
			log.Warn().Err(err).Msg("Failed to persist upload counter")
		}
	}

	t.current = models.AggregateStats{
		Accuracy:        clamp(t.current.Accuracy + (t.rng.Float64()-0.5)*0.1),
		ContentAnalyzed: t.current.ContentAnalyzed + 1,
	}
	return t.current
}

// Run refreshes the figures every interval until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	t.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Refresh(ctx)
		}
	}
}

// count reads the persisted counter. A missing or corrupt counter yields the
// seed value; any other read failure is returned.
func (t *Tracker) count(ctx context.Context) (int64, error) {
	data, err := t.store.Get(ctx, database.KeyUploadedCount)
	if errors.Is(err, database.ErrNotFound) {
		return defaultUploadCount, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read upload counter")
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return defaultUploadCount, nil
	}
	return n, nil
}

func clamp(v float64) float64 {
	return math.Max(minAccuracy, math.Min(maxAccuracy, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
