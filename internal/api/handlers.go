// Package api provides HTTP API handlers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/factchecker/veritas/internal/analysis"
	"github.com/factchecker/veritas/internal/auth"
	"github.com/factchecker/veritas/internal/history"
	"github.com/factchecker/veritas/internal/models"
	"github.com/factchecker/veritas/internal/presentation"
	"github.com/factchecker/veritas/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Version is reported by the health check and the CLI.
var Version = "1.0.0"

const (
	recentResults   = 3
	multipartMemory = 32 << 20
	formOverhead    = 1 << 20
	maxImportBytes  = 10 << 20
)

// Handler contains all HTTP handlers.
type Handler struct {
	history    *history.Store
	stats      *stats.Tracker
	sessions   *auth.Manager
	dashboards *dashboards
	maxUpload  int64
	now        func() time.Time
}

// NewHandler creates a new handler.
func NewHandler(svc Services, maxUploadBytes int64) *Handler {
	return &Handler{
		history:    svc.History,
		stats:      svc.Stats,
		sessions:   svc.Sessions,
		dashboards: newDashboards(svc.Orchestrator, svc.Sessions),
		maxUpload:  maxUploadBytes,
		now:        time.Now,
	}
}

// HealthCheck returns the service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":          "healthy",
		"version":         Version,
		"timestamp":       h.now().UTC().Format(time.RFC3339),
		"history_entries": h.history.Len(),
		"sessions":        h.sessions.Count(),
	}
	writeJSON(w, http.StatusOK, response)
}

// Login opens a session for the supplied token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.sessions.Login(req.Token, req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Token and user are required")
		return
	}

	log.Info().Str("user", session.User).Msg("Session started")
	writeJSON(w, http.StatusCreated, session)
}

// Logout ends the caller's session and abandons its pending analysis.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	if err := h.sessions.Logout(session.Token); err != nil {
		writeError(w, http.StatusUnauthorized, "Session expired or unknown")
		return
	}

	log.Info().Str("user", session.User).Msg("Session ended")
	w.WriteHeader(http.StatusNoContent)
}

type analyzeResponse struct {
	Result *models.AnalysisResult `json:"result"`
	Card   presentation.Card      `json:"card"`
}

// Analyze submits one analysis on the caller's dashboard. It accepts a JSON
// body or a multipart form with an optional "file" part.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	in := analysis.Input{Modality: models.Modality(chi.URLParam(r, "modality"))}
	var req models.AnalyzeRequest

	if isMultipart(r) {
		if h.maxUpload > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+formOverhead)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		req.Text = r.FormValue("text")
		req.URL = r.FormValue("url")

		f, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer f.Close()
			in.File = &analysis.FileInput{Name: header.Filename, Content: f}
		case errors.Is(err, http.ErrMissingFile):
		default:
			writeError(w, http.StatusBadRequest, "Invalid file upload")
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Text = inputText(in.Modality, req)

	dash := h.dashboards.get(auth.FromContext(r.Context()))
	result, err := dash.Submit(r.Context(), in)
	if err != nil {
		if !analysis.IsClientError(err) {
			log.Warn().Err(err).Str("modality", string(in.Modality)).Msg("Analysis did not complete")
		}
		writeError(w, analysisStatus(err), analysis.UserNotice(err))
		return
	}

	writeJSON(w, http.StatusCreated, analyzeResponse{
		Result: result,
		Card:   presentation.Render(*result),
	})
}

// AbandonAnalysis cancels the caller's pending analysis, if any.
func (h *Handler) AbandonAnalysis(w http.ResponseWriter, r *http.Request) {
	abandoned := h.dashboards.get(auth.FromContext(r.Context())).Abandon()
	writeJSON(w, http.StatusOK, map[string]bool{"abandoned": abandoned})
}

// RecentResults returns the dashboard's latest results.
func (h *Handler) RecentResults(w http.ResponseWriter, r *http.Request) {
	results := h.history.Recent(recentResults)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"cards":   presentation.RenderAll(results),
		"busy":    h.dashboards.get(auth.FromContext(r.Context())).Busy(),
	})
}

// InputHints returns the upload prompts for every modality.
func (h *Handler) InputHints(w http.ResponseWriter, r *http.Request) {
	hints := make(map[models.Modality]presentation.Hints, len(models.Modalities))
	for _, m := range models.Modalities {
		hints[m] = presentation.ModalityHints(m)
	}
	writeJSON(w, http.StatusOK, hints)
}

// ListHistory returns the history narrowed by search, type and result.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.HistoryFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Modality: models.Modality(allToEmpty(q.Get("type"))),
		Verdict:  models.Verdict(allToEmpty(q.Get("result"))),
	}
	if filter.Modality != "" && !filter.Modality.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown type filter")
		return
	}
	if filter.Verdict != "" && !filter.Verdict.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown result filter")
		return
	}

	results := h.history.Filter(filter)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"cards":   presentation.RenderAll(results),
		"total":   len(results),
	})
}

// HistorySummary returns verdict counts and mean confidence.
func (h *Handler) HistorySummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.ComputeSummary())
}

// ExportHistory streams the full history as a JSON attachment.
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	name := history.ExportFileName(h.now())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if err := h.history.Export(w); err != nil {
		log.Error().Err(err).Msg("Failed to export history")
	}
}

// ImportHistory replaces the history with an uploaded export.
func (h *Handler) ImportHistory(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := h.history.Import(r.Context(), body); err != nil {
		if errors.Is(err, history.ErrInvalidHistory) {
			writeError(w, http.StatusBadRequest, "Invalid history file")
			return
		}
		log.Error().Err(err).Msg("Failed to import history")
		writeError(w, http.StatusInternalServerError, "Failed to save history")
		return
	}
	writeJSON(w, http.StatusOK, h.history.ComputeSummary())
}

// ClearHistory removes every stored result.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to clear history")
		writeError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats returns the aggregate stats with their display strings.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	snapshot := h.stats.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":   snapshot,
		"display": presentation.RenderStats(snapshot),
	})
}

func analysisStatus(err error) int {
	switch {
	case analysis.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrBusy), errors.Is(err, analysis.ErrStale):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// inputText picks the field the modality's form shows: the text box for
// text, the URL field otherwise.
func inputText(m models.Modality, req models.AnalyzeRequest) string {
	primary, fallback := req.URL, req.Text
	if m == models.ModalityText {
		primary, fallback = req.Text, req.URL
	}
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return fallback
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func allToEmpty(v string) string {
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
