// Package analysis sends content to the external detection service and
// turns its verdicts into history records.
package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/factchecker/veritas/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HistoryAppender receives every committed result.
type HistoryAppender interface {
	Append(ctx context.Context, result models.AnalysisResult) error
}

// StatsRecorder counts committed results.
type StatsRecorder interface {
	Increment(ctx context.Context) models.AggregateStats
}

// Orchestrator runs one analysis from input to committed result.
type Orchestrator struct {
	requester Requester
	history   HistoryAppender
	stats     StatsRecorder
	now       func() time.Time
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(requester Requester, history HistoryAppender, stats StatsRecorder) *Orchestrator {
	return &Orchestrator{
		requester: requester,
		history:   history,
		stats:     stats,
		now:       time.Now,
	}
}

// Analyze fetches a verdict and commits it.
func (o *Orchestrator) Analyze(ctx context.Context, in Input) (*models.AnalysisResult, error) {
	result, err := o.Fetch(ctx, in)
	if err != nil {
		return nil, err
	}
	o.Commit(ctx, *result)
	return result, nil
}

// Fetch validates the input, sends one request and normalizes the
// response. It has no side effects on history or stats.
func (o *Orchestrator) Fetch(ctx context.Context, in Input) (*models.AnalysisResult, error) {
	startTime := time.Now()

	// Step 1: Plan the request
	plan, err := BuildPlan(in)
	if err != nil {
		log.Debug().Err(err).Str("modality", string(in.Modality)).Msg("Rejected analysis input")
		return nil, err
	}

	// Step 2: Send it
	log.Info().
		Str("modality", string(plan.Modality)).
		Str("endpoint", plan.Endpoint).
		Str("encoding", plan.Encoding.String()).
		Msg("Sending analysis request")
	body, err := o.requester.Send(ctx, plan)
	if err != nil {
		log.Error().Err(err).Str("endpoint", plan.Endpoint).Msg("Analysis request failed")
		return nil, err
	}

	// Step 3: Normalize the response
	resp, err := decodeResponse(plan.Modality, body)
	if err == nil {
		result := models.AnalysisResult{
			ID:        uuid.New().String(),
			Modality:  plan.Modality,
			Source:    plan.Source,
			CreatedAt: o.now().UTC(),
		}
		if err = resp.normalize(&result); err == nil {
			log.Info().
				Str("id", result.ID).
				Str("modality", string(result.Modality)).
				Str("verdict", string(result.Verdict)).
				Int("confidence", result.ConfidenceScore).
				Dur("duration", time.Since(startTime)).
				Msg("Analysis complete")
			return &result, nil
		}
	}

	log.Error().
		Err(err).
		Str("endpoint", plan.Endpoint).
		Str("body", prefix(body, 256)).
		Msg("Malformed analysis response")
	return nil, err
}

// Commit appends result to history and counts it. A history write failure
// is logged; the result stays in the in-memory history.
func (o *Orchestrator) Commit(ctx context.Context, result models.AnalysisResult) {
	if err := o.history.Append(ctx, result); err != nil {
		log.Warn().Err(err).Str("id", result.ID).Msg("Failed to persist history")
	}
	if o.stats != nil {
		o.stats.Increment(ctx)
	}
}

// IsClientError reports whether err was caused by the submitted input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrUnsupportedInput)
}

func prefix(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
