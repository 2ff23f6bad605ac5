package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/factchecker/veritas/internal/models"
)

// verdictResponse is one modality-specific response shape.
type verdictResponse interface {
	// normalize fills verdict, confidence and detail on r.
	normalize(r *models.AnalysisResult) error
}

// textAudioResponse is returned for text and audio analysis.
type textAudioResponse struct {
	IsFake     *bool    `json:"is_fake"`
	Confidence *float64 `json:"confidence"`
}

type labeledResult struct {
	Label      *string  `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// videoResponse is returned for video analysis.
type videoResponse struct {
	FaceResult        *labeledResult `json:"face_result"`
	AudioResult       *labeledResult `json:"audio_result"`
	OverallConfidence *float64       `json:"overall_confidence"`
}

// decodeResponse parses body into the shape for modality.
func decodeResponse(modality models.Modality, body []byte) (verdictResponse, error) {
	var resp verdictResponse
	switch modality {
	case models.ModalityVideo:
		resp = &videoResponse{}
	default:
		resp = &textAudioResponse{}
	}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return resp, nil
}

func (t *textAudioResponse) normalize(r *models.AnalysisResult) error {
	if t.IsFake == nil {
		return fmt.Errorf("%w: missing is_fake", ErrMalformedResponse)
	}
	score, err := percentage("confidence", t.Confidence)
	if err != nil {
		return err
	}

	r.ConfidenceScore = score
	r.Detail = models.Detail{CredibilityScore: score, Sources: 0}
	if *t.IsFake {
		r.Verdict = models.VerdictFake
		r.Detail.RiskFactors = []string{"AI detected suspicious patterns"}
	} else {
		r.Verdict = models.VerdictAuthentic
		r.Detail.RiskFactors = []string{"Content appears authentic"}
	}
	return nil
}

func (v *videoResponse) normalize(r *models.AnalysisResult) error {
	face, err := v.FaceResult.sub("face_result")
	if err != nil {
		return err
	}
	audio, err := v.AudioResult.sub("audio_result")
	if err != nil {
		return err
	}
	score, err := percentage("overall_confidence", v.OverallConfidence)
	if err != nil {
		return err
	}

	faceIsReal := strings.EqualFold(face.Label, "real")
	audioIsReal := strings.EqualFold(audio.Label, "bonafide")

	r.ConfidenceScore = score
	r.Detail = models.Detail{
		CredibilityScore: score,
		Sources:          0,
		FaceResult:       face,
		AudioResult:      audio,
	}
	if faceIsReal && audioIsReal {
		r.Verdict = models.VerdictAuthentic
		r.Detail.RiskFactors = []string{"Components verified"}
	} else {
		r.Verdict = models.VerdictFake
		r.Detail.RiskFactors = []string{"Face: " + face.Label, "Audio: " + audio.Label}
	}
	return nil
}

func (l *labeledResult) sub(field string) (*models.SubResult, error) {
	if l == nil || l.Label == nil || strings.TrimSpace(*l.Label) == "" {
		return nil, fmt.Errorf("%w: missing %s.label", ErrMalformedResponse, field)
	}
	sub := &models.SubResult{Label: *l.Label}
	if l.Confidence != nil {
		if !inUnitRange(*l.Confidence) {
			return nil, fmt.Errorf("%w: %s.confidence %v out of range", ErrMalformedResponse, field, *l.Confidence)
		}
		sub.Confidence = *l.Confidence
	}
	return sub, nil
}

// percentage scales a 0..1 fraction to a rounded 0..100 score.
func percentage(field string, fraction *float64) (int, error) {
	if fraction == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedResponse, field)
	}
	if !inUnitRange(*fraction) {
		return 0, fmt.Errorf("%w: %s %v out of range", ErrMalformedResponse, field, *fraction)
	}
	return int(math.Round(*fraction * 100)), nil
}

func inUnitRange(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}
