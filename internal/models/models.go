// Package models defines the core data structures used throughout the application.
package models

import (
	"strings"
	"time"
)

// Modality is the kind of content submitted for analysis.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
	ModalityVideo Modality = "video"
)

// Modalities lists every supported modality in display order.
var Modalities = []Modality{ModalityText, ModalityAudio, ModalityVideo}

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityAudio, ModalityVideo:
		return true
	}
	return false
}

// Verdict is the outcome of an analysis.
type Verdict string

const (
	VerdictAuthentic Verdict = "authentic"
	VerdictFake      Verdict = "fake"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	return v == VerdictAuthentic || v == VerdictFake
}

// SubResult is one labeled component of a video analysis.
type SubResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // 0..1
}

// Detail holds the explanatory fields attached to a result.
type Detail struct {
	CredibilityScore int        `json:"credibility_score"`
	RiskFactors      []string   `json:"risk_factors"`
	Sources          int        `json:"sources"`
	FaceResult       *SubResult `json:"face_result,omitempty"`
	AudioResult      *SubResult `json:"audio_result,omitempty"`
}

// AnalysisResult is a completed analysis. It is never modified after creation.
type AnalysisResult struct {
	ID              string    `json:"id"`
	Modality        Modality  `json:"modality"`
	Source          string    `json:"source"`
	Verdict         Verdict   `json:"verdict"`
	ConfidenceScore int       `json:"confidence_score"` // 0..100
	CreatedAt       time.Time `json:"created_at"`
	Detail          Detail    `json:"detail"`
}

// HistoryFilter selects a subset of the history. Zero fields match everything.
type HistoryFilter struct {
	Search   string   `json:"search,omitempty"`
	Modality Modality `json:"modality,omitempty"`
	Verdict  Verdict  `json:"verdict,omitempty"`
}

// Match reports whether r satisfies every active predicate of f.
func (f HistoryFilter) Match(r AnalysisResult) bool {
	if f.Modality != "" && r.Modality != f.Modality {
		return false
	}
	if f.Verdict != "" && r.Verdict != f.Verdict {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(r.Source), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// HistorySummary aggregates the stored history.
type HistorySummary struct {
	Total          int `json:"total"`
	Authentic      int `json:"authentic"`
	Fake           int `json:"fake"`
	MeanConfidence int `json:"mean_confidence"`
}

// AggregateStats is the advisory accuracy/volume display.
type AggregateStats struct {
	Accuracy        float64 `json:"accuracy"`
	ContentAnalyzed int64   `json:"content_analyzed"`
}

// Session is an authenticated caller.
type Session struct {
	Token     string    `json:"-"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalyzeRequest is the JSON body of an analysis submission. Text is used
// by the text modality, URL by video.
type AnalyzeRequest struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// LoginRequest opens a session.
type LoginRequest struct {
	Token string `json:"token"`
	User  string `json:"user"`
}
