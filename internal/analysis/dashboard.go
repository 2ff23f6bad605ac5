package analysis

import (
	"context"
	"sync"

	"github.com/factchecker/veritas/internal/models"
	"github.com/rs/zerolog/log"
)

// Dashboard allows one analysis in flight at a time and drops completions
// of requests that were abandoned or superseded.
type Dashboard struct {
	orch *Orchestrator

	mu       sync.Mutex
	seq      uint64
	inFlight bool
	cancel   context.CancelFunc
}

// NewDashboard creates a dashboard over orch.
func NewDashboard(orch *Orchestrator) *Dashboard {
	return &Dashboard{orch: orch}
}

// Submit runs one analysis. It fails with ErrBusy while another submission
// is pending, and with ErrStale if Abandon was called before it finished.
// Only a current request commits its result.
func (d *Dashboard) Submit(ctx context.Context, in Input) (*models.AnalysisResult, error) {
	d.mu.Lock()
	if d.inFlight {
		d.mu.Unlock()
		return nil, ErrBusy
	}
	d.seq++
	seq := d.seq
	d.inFlight = true
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	result, err := d.orch.Fetch(ctx, in)

	d.mu.Lock()
	defer d.mu.Unlock()

	if seq != d.seq {
		log.Info().Uint64("seq", seq).Uint64("current", d.seq).Msg("Discarding stale analysis")
		return nil, ErrStale
	}
	d.inFlight = false
	d.cancel = nil

	if err != nil {
		return nil, err
	}
	d.orch.Commit(ctx, *result)
	return result, nil
}

// Abandon cancels the pending submission, if any, and re-enables Submit.
func (d *Dashboard) Abandon() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.inFlight {
		return false
	}
	d.seq++
	d.inFlight = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	return true
}

// Busy reports whether a submission is pending.
func (d *Dashboard) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}
