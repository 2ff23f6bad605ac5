package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/factchecker/veritas/internal/database"
	"github.com/factchecker/veritas/internal/history"
	"github.com/factchecker/veritas/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedRequester answers only when released, ignoring cancellation so a
// superseded request can still complete successfully.
type gatedRequester struct {
	started chan chan string
}

func newGatedRequester() *gatedRequester {
	return &gatedRequester{started: make(chan chan string, 8)}
}

func (g *gatedRequester) Send(_ context.Context, _ Plan) ([]byte, error) {
	reply := make(chan string, 1)
	g.started <- reply
	return []byte(<-reply), nil
}

func newDashboard(t *testing.T, req Requester) (*Dashboard, *history.Store, *countingStats) {
	t.Helper()
	backend, err := database.NewFileStore(t.TempDir())
	require.NoError(t, err)
	hist := history.NewStore(backend, history.DefaultCapacity)
	stats := &countingStats{}
	return NewDashboard(NewOrchestrator(req, hist, stats)), hist, stats
}

type outcome struct {
	result *models.AnalysisResult
	err    error
}

func submitAsync(d *Dashboard, in Input) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		r, err := d.Submit(context.Background(), in)
		ch <- outcome{r, err}
	}()
	return ch
}

func waitStarted(t *testing.T, g *gatedRequester) chan<- string {
	t.Helper()
	select {
	case reply := <-g.started:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("request never started")
		return nil
	}
}

func receive(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("submit never returned")
		return outcome{}
	}
}

var textInput = Input{Modality: models.ModalityText, Text: "breaking news"}

func TestDashboard_SingleFlight(t *testing.T) {
	gate := newGatedRequester()
	dash, hist, _ := newDashboard(t, gate)

	first := submitAsync(dash, textInput)
	reply := waitStarted(t, gate)
	assert.True(t, dash.Busy())

	_, err := dash.Submit(context.Background(), textInput)
	assert.ErrorIs(t, err, ErrBusy)

	reply <- `{"is_fake": false, "confidence": 0.9}`
	o := receive(t, first)
	require.NoError(t, o.err)
	assert.Equal(t, models.VerdictAuthentic, o.result.Verdict)
	assert.False(t, dash.Busy())
	assert.Equal(t, 1, hist.Len())
}

func TestDashboard_StaleCompletionDiscarded(t *testing.T) {
	gate := newGatedRequester()
	dash, hist, stats := newDashboard(t, gate)

	stale := submitAsync(dash, textInput)
	staleReply := waitStarted(t, gate)

	assert.True(t, dash.Abandon())
	assert.False(t, dash.Busy(), "abandon re-enables submit")

	current := submitAsync(dash, Input{Modality: models.ModalityText, Text: "newer"})
	currentReply := waitStarted(t, gate)

	// the abandoned request completes first, successfully
	staleReply <- `{"is_fake": true, "confidence": 0.8}`
	o := receive(t, stale)
	assert.ErrorIs(t, o.err, ErrStale)
	assert.True(t, dash.Busy(), "stale completion does not release the newer request")
	assert.Equal(t, 0, hist.Len())

	currentReply <- `{"is_fake": false, "confidence": 0.6}`
	o = receive(t, current)
	require.NoError(t, o.err)

	all := hist.All()
	require.Len(t, all, 1)
	assert.Equal(t, "newer", all[0].Source)
	assert.Equal(t, int64(1), stats.n.Load())
}

func TestDashboard_AbandonIdle(t *testing.T) {
	dash, _, _ := newDashboard(t, newGatedRequester())
	assert.False(t, dash.Abandon())
}

func TestDashboard_FailureReenables(t *testing.T) {
	gate := newGatedRequester()
	dash, hist, _ := newDashboard(t, gate)

	pending := submitAsync(dash, textInput)
	waitStarted(t, gate) <- `{"confidence": 0.8}`

	o := receive(t, pending)
	assert.ErrorIs(t, o.err, ErrMalformedResponse)
	assert.False(t, dash.Busy())
	assert.Equal(t, 0, hist.Len())

	_, err := dash.Submit(context.Background(), Input{Modality: models.ModalityAudio})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, dash.Busy())
}
