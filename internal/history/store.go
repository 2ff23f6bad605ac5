// Package history keeps the bounded, most-recent-first log of analysis results.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/factchecker/veritas/internal/database"
	"github.com/factchecker/veritas/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultCapacity is the number of results retained.
const DefaultCapacity = 50

// ErrInvalidHistory is returned by Import for data that is not a history export.
var ErrInvalidHistory = errors.New("invalid history data")

// Store is the in-memory history backed by a durable database.Store.
// The in-memory list is authoritative for the running process; the backend
// is rewritten in full on every change.
type Store struct {
	mu       sync.RWMutex
	backend  database.Store
	capacity int
	entries  []models.AnalysisResult
}

// NewStore creates a history store. capacity <= 0 means DefaultCapacity.
func NewStore(backend database.Store, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		backend:  backend,
		capacity: capacity,
	}
}

// LoadAll reads the persisted history and makes it the current list.
// Missing or corrupt data yields an empty list and is only logged; the
// current in-memory list is kept in that case.
func (s *Store) LoadAll(ctx context.Context) []models.AnalysisResult {
	data, err := s.backend.Get(ctx, database.KeyHistory)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Warn().Err(err).Msg("Failed to read history, starting empty")
		}
		return []models.AnalysisResult{}
	}

	var loaded []models.AnalysisResult
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Warn().Err(err).Msg("Stored history is corrupt, starting empty")
		return []models.AnalysisResult{}
	}
	if len(loaded) > s.capacity {
		loaded = loaded[:s.capacity]
	}

	s.mu.Lock()
	s.entries = loaded
	s.mu.Unlock()

	return clone(loaded)
}

// All returns a copy of the current list, most recent first.
func (s *Store) All() []models.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.entries)
}

// Recent returns up to n of the most recent results.
func (s *Store) Recent(n int) []models.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.entries) {
		n = len(s.entries)
	}
	return clone(s.entries[:n])
}

// Append inserts result at the head, drops anything beyond capacity and
// persists the list. A persistence error is returned, but the in-memory
// list has already been updated.
func (s *Store) Append(ctx context.Context, result models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.AnalysisResult, 0, min(len(s.entries)+1, s.capacity))
	next = append(next, result)
	next = append(next, s.entries...)
	if len(next) > s.capacity {
		next = next[:s.capacity]
	}
	s.entries = next

	return s.persistLocked(ctx)
}

// Filter returns the results matching every active predicate of f.
func (s *Store) Filter(f models.HistoryFilter) []models.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AnalysisResult, 0, len(s.entries))
	for _, r := range s.entries {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// ComputeSummary counts results by verdict and averages confidence.
func (s *Store) ComputeSummary() models.HistorySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summarize(s.entries)
}

// Summarize computes the summary of an arbitrary list.
func Summarize(results []models.AnalysisResult) models.HistorySummary {
	var sum models.HistorySummary
	total := 0
	for _, r := range results {
		switch r.Verdict {
		case models.VerdictAuthentic:
			sum.Authentic++
		case models.VerdictFake:
			sum.Fake++
		}
		total += r.ConfidenceScore
	}
	sum.Total = len(results)
	if sum.Total > 0 {
		sum.MeanConfidence = int(math.Round(float64(total) / float64(sum.Total)))
	}
	return sum
}

// Export writes the full history as indented JSON.
func (s *Store) Export(w io.Writer) error {
	s.mu.RLock()
	entries := s.entries
	if entries == nil {
		entries = []models.AnalysisResult{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// ExportFileName names an export made at now.
func ExportFileName(now time.Time) string {
	return "veritas-history-" + now.Format("2006-01-02") + ".json"
}

// Import replaces the history with a previously exported list.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	var imported []models.AnalysisResult
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHistory, err)
	}
	for i, res := range imported {
		if err := validate(res); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrInvalidHistory, i, err)
		}
	}
	if len(imported) > s.capacity {
		imported = imported[:s.capacity]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = imported
	return s.persistLocked(ctx)
}

// Clear removes every result.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.backend.Delete(ctx, database.KeyHistory)
}

// Len returns the number of stored results.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) persistLocked(ctx context.Context) error {
	entries := s.entries
	if entries == nil {
		entries = []models.AnalysisResult{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.backend.Put(ctx, database.KeyHistory, data); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

func validate(r models.AnalysisResult) error {
	if r.ID == "" {
		return errors.New("missing id")
	}
	if !r.Modality.Valid() {
		return fmt.Errorf("invalid modality %q", r.Modality)
	}
	if !r.Verdict.Valid() {
		return fmt.Errorf("invalid verdict %q", r.Verdict)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 100 {
		return fmt.Errorf("confidence %d out of range", r.ConfidenceScore)
	}
	return nil
}

func clone(in []models.AnalysisResult) []models.AnalysisResult {
	out := make([]models.AnalysisResult, len(in))
	copy(out, in)
	return out
}
