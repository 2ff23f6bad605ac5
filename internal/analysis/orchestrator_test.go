package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/factchecker/veritas/internal/config"
	"github.com/factchecker/veritas/internal/database"
	"github.com/factchecker/veritas/internal/history"
	"github.com/factchecker/veritas/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStats records increments.
type countingStats struct {
	n atomic.Int64
}

func (c *countingStats) Increment(context.Context) models.AggregateStats {
	return models.AggregateStats{ContentAnalyzed: c.n.Add(1)}
}

// fakeService is a stand-in for the detection service.
type fakeService struct {
	*httptest.Server
	calls   atomic.Int32
	lastReq atomic.Pointer[capturedRequest]
}

type capturedRequest struct {
	Path        string
	ContentType string
	JSON        map[string]string
	FileName    string
	FileContent string
}

func newFakeService(t *testing.T, status int, respond func(path string) string) *fakeService {
	t.Helper()
	svc := &fakeService{}
	svc.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc.calls.Add(1)
		captured := &capturedRequest{Path: r.URL.Path, ContentType: r.Header.Get("Content-Type")}
		if r.Header.Get("Content-Type") == "application/json" {
			_ = json.NewDecoder(r.Body).Decode(&captured.JSON)
		} else if f, hdr, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(f)
			captured.FileName = hdr.Filename
			captured.FileContent = string(data)
		}
		svc.lastReq.Store(captured)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, respond(r.URL.Path))
	}))
	t.Cleanup(svc.Close)
	return svc
}

func newOrchestrator(t *testing.T, baseURL string) (*Orchestrator, *history.Store, *countingStats) {
	t.Helper()
	backend, err := database.NewFileStore(t.TempDir())
	require.NoError(t, err)
	hist := history.NewStore(backend, history.DefaultCapacity)
	stats := &countingStats{}

	cfg := config.DefaultConfig().Analysis
	cfg.BaseURL = baseURL
	cfg.Timeout = 5 * time.Second

	orch := NewOrchestrator(NewClient(&cfg), hist, stats)
	orch.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	return orch, hist, stats
}

func TestAnalyze_TextFake(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, func(string) string {
		return `{"is_fake": true, "confidence": 0.87}`
	})
	orch, hist, stats := newOrchestrator(t, svc.URL)

	result, err := orch.Analyze(context.Background(), Input{Modality: models.ModalityText, Text: "Vaccines contain microchips"})
	require.NoError(t, err)

	assert.Equal(t, models.VerdictFake, result.Verdict)
	assert.Equal(t, 87, result.ConfidenceScore)
	assert.Equal(t, 87, result.Detail.CredibilityScore)
	assert.Equal(t, []string{"AI detected suspicious patterns"}, result.Detail.RiskFactors)
	assert.Equal(t, "Vaccines contain microchips", result.Source)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC), result.CreatedAt)

	req := svc.lastReq.Load()
	assert.Equal(t, EndpointText, req.Path)
	assert.Equal(t, "application/json", req.ContentType)
	assert.Equal(t, map[string]string{"text": "Vaccines contain microchips"}, req.JSON)

	require.Equal(t, 1, hist.Len())
	assert.Equal(t, *result, hist.All()[0])
	assert.Equal(t, int64(1), stats.n.Load())
}

func TestAnalyze_AudioAuthenticMultipart(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, func(string) string {
		return `{"is_fake": false, "confidence": 0.934}`
	})
	orch, _, _ := newOrchestrator(t, svc.URL)

	result, err := orch.Analyze(context.Background(), Input{Modality: models.ModalityAudio, File: file("call.wav", "RIFFDATA")})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictAuthentic, result.Verdict)
	assert.Equal(t, 93, result.ConfidenceScore)
	assert.Equal(t, "call.wav", result.Source)
	assert.Equal(t, []string{"Content appears authentic"}, result.Detail.RiskFactors)

	req := svc.lastReq.Load()
	assert.Equal(t, EndpointAudio, req.Path)
	assert.Contains(t, req.ContentType, "multipart/form-data")
	assert.Equal(t, "call.wav", req.FileName)
	assert.Equal(t, "RIFFDATA", req.FileContent)
}

func TestAnalyze_VideoVerdict(t *testing.T) {
	tests := []struct {
		face, audio string
		overall     float64
		want        models.Verdict
	}{
		{"real", "bonafide", 0.12, models.VerdictAuthentic},
		{"Real", "BONAFIDE", 0.99, models.VerdictAuthentic},
		{"fake", "bonafide", 0.99, models.VerdictFake},
		{"real", "spoof", 0.5, models.VerdictFake},
		{"fake", "spoof", 0.01, models.VerdictFake},
	}
	for _, tt := range tests {
		t.Run(tt.face+"/"+tt.audio, func(t *testing.T) {
			svc := newFakeService(t, http.StatusOK, func(string) string {
				return fmt.Sprintf(`{"face_result":{"label":%q,"confidence":0.8},"audio_result":{"label":%q,"confidence":0.7},"overall_confidence":%v}`,
					tt.face, tt.audio, tt.overall)
			})
			orch, _, _ := newOrchestrator(t, svc.URL)

			result, err := orch.Analyze(context.Background(), Input{Modality: models.ModalityVideo, Text: "https://youtube.com/watch?v=x"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Verdict)
			assert.Equal(t, int(tt.overall*100+0.5), result.ConfidenceScore)
			require.NotNil(t, result.Detail.FaceResult)
			require.NotNil(t, result.Detail.AudioResult)
			assert.Equal(t, tt.face, result.Detail.FaceResult.Label)
			assert.Equal(t, 0.7, result.Detail.AudioResult.Confidence)

			req := svc.lastReq.Load()
			assert.Equal(t, EndpointVideoURL, req.Path)
			assert.Equal(t, map[string]string{"url": "https://youtube.com/watch?v=x"}, req.JSON)
		})
	}
}

func TestAnalyze_VideoFileRiskFactors(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, func(string) string {
		return `{"face_result":{"label":"fake","confidence":0.9},"audio_result":{"label":"bonafide","confidence":0.6},"overall_confidence":0.75}`
	})
	orch, _, _ := newOrchestrator(t, svc.URL)

	result, err := orch.Analyze(context.Background(), Input{Modality: models.ModalityVideo, File: file("speech.mp4", "MP4")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Face: fake", "Audio: bonafide"}, result.Detail.RiskFactors)
	assert.Equal(t, EndpointVideoFile, svc.lastReq.Load().Path)
}

func TestAnalyze_NoNetworkOnBadInput(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, func(string) string { return `{}` })
	orch, hist, stats := newOrchestrator(t, svc.URL)

	_, err := orch.Analyze(context.Background(), Input{Modality: models.ModalityText})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = orch.Analyze(context.Background(), Input{Modality: models.ModalityAudio, Text: "https://example.com/a.mp3"})
	assert.ErrorIs(t, err, ErrUnsupportedInput)

	assert.Equal(t, int32(0), svc.calls.Load())
	assert.Equal(t, 0, hist.Len())
	assert.Equal(t, int64(0), stats.n.Load())
}

func TestAnalyze_FailureStatus(t *testing.T) {
	svc := newFakeService(t, http.StatusInternalServerError, func(string) string {
		return `{"error":"model crashed"}`
	})
	orch, hist, stats := newOrchestrator(t, svc.URL)

	_, err := orch.Analyze(context.Background(), Input{Modality: models.ModalityText, Text: "hello"})
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, 0, hist.Len())
	assert.Equal(t, int64(0), stats.n.Load())
	assert.Equal(t, int32(1), svc.calls.Load(), "no automatic retry")
}

func TestAnalyze_Unreachable(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, func(string) string { return `{}` })
	url := svc.URL
	svc.Close()

	orch, hist, _ := newOrchestrator(t, url)
	_, err := orch.Analyze(context.Background(), Input{Modality: models.ModalityText, Text: "hello"})
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, 0, hist.Len())
}

func TestAnalyze_MalformedResponse(t *testing.T) {
	bodies := map[string]struct {
		modality models.Modality
		body     string
	}{
		"not json":            {models.ModalityText, `<html>oops</html>`},
		"missing is_fake":     {models.ModalityText, `{"confidence":0.5}`},
		"missing confidence":  {models.ModalityText, `{"is_fake":false}`},
		"confidence too high": {models.ModalityText, `{"is_fake":false,"confidence":87}`},
		"missing face":        {models.ModalityVideo, `{"audio_result":{"label":"bonafide"},"overall_confidence":0.5}`},
		"empty audio label":   {models.ModalityVideo, `{"face_result":{"label":"real"},"audio_result":{"label":""},"overall_confidence":0.5}`},
		"missing overall":     {models.ModalityVideo, `{"face_result":{"label":"real"},"audio_result":{"label":"bonafide"}}`},
	}
	for name, tc := range bodies {
		t.Run(name, func(t *testing.T) {
			svc := newFakeService(t, http.StatusOK, func(string) string { return tc.body })
			orch, hist, stats := newOrchestrator(t, svc.URL)

			_, err := orch.Analyze(context.Background(), Input{Modality: tc.modality, Text: "https://example.com/x"})
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, 0, hist.Len())
			assert.Equal(t, int64(0), stats.n.Load())
		})
	}
}

func TestAnalyze_IndependentCalls(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, func(string) string {
		return `{"is_fake": false, "confidence": 0.5}`
	})
	orch, hist, stats := newOrchestrator(t, svc.URL)

	in := Input{Modality: models.ModalityText, Text: "same text"}
	first, err := orch.Analyze(context.Background(), in)
	require.NoError(t, err)
	second, err := orch.Analyze(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, hist.Len())
	assert.Equal(t, int64(2), stats.n.Load())
}

func TestClient_RejectsOversizedUpload(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, func(string) string { return `{}` })
	cfg := config.DefaultConfig().Analysis
	cfg.BaseURL = svc.URL
	cfg.MaxUploadBytes = 4

	client := NewClient(&cfg)
	plan, err := BuildPlan(Input{Modality: models.ModalityAudio, File: file("big.wav", "0123456789")})
	require.NoError(t, err)

	_, err = client.Send(context.Background(), plan)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, int32(0), svc.calls.Load())
}

func TestClient_TextFromFile(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, func(string) string {
		return `{"is_fake": false, "confidence": 0.61}`
	})
	orch, _, _ := newOrchestrator(t, svc.URL)

	result, err := orch.Analyze(context.Background(), Input{Modality: models.ModalityText, File: file("claims.txt", "the earth is flat")})
	require.NoError(t, err)
	assert.Equal(t, "claims.txt", result.Source)
	assert.Equal(t, map[string]string{"text": "the earth is flat"}, svc.lastReq.Load().JSON)
}
