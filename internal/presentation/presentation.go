// Package presentation maps analysis results to display fields.
// Every function here is pure: the same input always renders the same output.
package presentation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/factchecker/veritas/internal/models"
)

// DateLayout matches the history list, e.g. "Oct 16, 2026 14:05".
const DateLayout = "Jan 2, 2006 15:04"

// Card is the rendered form of one result.
type Card struct {
	ID            string `json:"id"`
	Icon          string `json:"icon"`
	ModalityLabel string `json:"modality_label"`
	Source        string `json:"source"`
	VerdictLabel  string `json:"verdict_label"`
	VerdictIcon   string `json:"verdict_icon"`
	BadgeVariant  string `json:"badge_variant"`
	Color         string `json:"color"`
	Confidence    string `json:"confidence"`
	OverallText   string `json:"overall_text"`
	Progress      int    `json:"progress"`
	Sources       string `json:"sources"`
	Date          string `json:"date"`
	RiskFactors   string `json:"risk_factors"`
	Components    []Line `json:"components,omitempty"`
}

// Line is one labeled sub-result row of a video card.
type Line struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Color      string `json:"color"`
	Confidence string `json:"confidence"`
}

// Hints are the per-modality input prompts of the dashboard.
type Hints struct {
	UploadText     string `json:"upload_text"`
	URLPlaceholder string `json:"url_placeholder"`
	Accept         string `json:"accept"`
}

// Render maps a result to its display card.
func Render(r models.AnalysisResult) Card {
	card := Card{
		ID:            r.ID,
		Icon:          Icon(r.Modality),
		ModalityLabel: title(string(r.Modality)),
		Source:        r.Source,
		Confidence:    fmt.Sprintf("%d%%", r.ConfidenceScore),
		OverallText:   fmt.Sprintf("%d%% Overall", r.ConfidenceScore),
		Progress:      r.ConfidenceScore,
		Sources:       fmt.Sprintf("%d", r.Detail.Sources),
		Date:          FormatDate(r.CreatedAt),
		RiskFactors:   strings.Join(r.Detail.RiskFactors, ", "),
	}

	if r.Verdict == models.VerdictAuthentic {
		card.VerdictLabel = "Authentic"
		card.VerdictIcon = "check-circle"
		card.BadgeVariant = "default"
		card.Color = "green"
	} else {
		card.VerdictLabel = "Suspicious"
		card.VerdictIcon = "alert-circle"
		card.BadgeVariant = "destructive"
		card.Color = "red"
	}

	if r.Modality == models.ModalityVideo && r.Detail.FaceResult != nil && r.Detail.AudioResult != nil {
		card.Components = []Line{
			component("Face Analysis", *r.Detail.FaceResult, "real"),
			component("Audio Analysis", *r.Detail.AudioResult, "bonafide"),
		}
	}

	return card
}

// RenderAll maps a list of results.
func RenderAll(results []models.AnalysisResult) []Card {
	cards := make([]Card, len(results))
	for i, r := range results {
		cards[i] = Render(r)
	}
	return cards
}

func component(name string, sub models.SubResult, authenticLabel string) Line {
	color := "red"
	if strings.EqualFold(sub.Label, authenticLabel) {
		color = "green"
	}
	return Line{
		Name:       name,
		Label:      sub.Label,
		Color:      color,
		Confidence: Percent(sub.Confidence),
	}
}

// Icon names the icon for a modality.
func Icon(m models.Modality) string {
	switch m {
	case models.ModalityAudio:
		return "headphones"
	case models.ModalityVideo:
		return "video"
	default:
		return "file-text"
	}
}

// Percent renders a 0..1 fraction as a rounded percentage.
func Percent(fraction float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(fraction*100)))
}

// FormatDate renders t in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ModalityHints returns the dashboard prompts for m.
func ModalityHints(m models.Modality) Hints {
	switch m {
	case models.ModalityAudio:
		return Hints{
			UploadText:     "Drop audio files here or click to browse",
			URLPlaceholder: "https://example.com/audio.mp3",
			Accept:         ".mp3,.wav,.m4a",
		}
	case models.ModalityVideo:
		return Hints{
			UploadText:     "Drop video files here or click to browse",
			URLPlaceholder: "https://youtube.com/watch?v=...",
			Accept:         ".mp4,.mov,.avi",
		}
	default:
		return Hints{
			UploadText:     "Drop text documents here or click to browse",
			URLPlaceholder: "https://example.com/article",
			Accept:         ".txt,.doc,.docx,.pdf",
		}
	}
}

// FormatStat renders a stat card value. Accuracy keeps one decimal; large
// counts are abbreviated.
func FormatStat(title string, value float64) string {
	switch {
	case strings.Contains(strings.ToLower(title), "accuracy"):
		return fmt.Sprintf("%.1f", value)
	case value >= 1_000_000:
		return fmt.Sprintf("%.1fM", value/1_000_000)
	case value >= 1_000:
		return fmt.Sprintf("%.0fK", value/1_000)
	default:
		return fmt.Sprintf("%d", int64(math.Round(value)))
	}
}

// StatsView is the rendered aggregate stats.
type StatsView struct {
	Accuracy        string `json:"accuracy"`
	ContentAnalyzed string `json:"content_analyzed"`
}

// RenderStats formats aggregate stats for display.
func RenderStats(s models.AggregateStats) StatsView {
	return StatsView{
		Accuracy:        FormatStat("Accuracy", s.Accuracy) + "%",
		ContentAnalyzed: FormatStat("Content Analyzed", float64(s.ContentAnalyzed)),
	}
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
