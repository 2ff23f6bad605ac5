package analysis

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/factchecker/veritas/internal/models"
)

// Collaborator endpoints, relative to the configured base URL.
const (
	EndpointText      = "/api/analyze-text"
	EndpointAudio     = "/api/analyze-audio"
	EndpointVideoFile = "/api/analyze-video-file"
	EndpointVideoURL  = "/api/analyze-video-url"
)

// maxSourceRunes bounds the text snippet kept as a result's source.
const maxSourceRunes = 120

// FileInput is an uploaded file.
type FileInput struct {
	Name    string
	Content io.Reader
}

// Input is one user submission. Text carries the text box content, which
// for text analysis is the text itself and otherwise a URL.
type Input struct {
	Modality models.Modality
	Text     string
	File     *FileInput
}

// Encoding is how a request body is sent.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingMultipart
)

func (e Encoding) String() string {
	if e == EncodingMultipart {
		return "multipart"
	}
	return "json"
}

// Plan describes the single request made for an Input.
type Plan struct {
	Modality models.Modality
	Endpoint string
	Encoding Encoding
	// Field is the JSON key ("text" or "url") or the multipart field name ("file").
	Field string
	// Value is the JSON string value. Empty when it comes from File.
	Value  string
	File   *FileInput
	Source string
}

// BuildPlan chooses endpoint and encoding from modality and input kind.
// It performs no I/O.
func BuildPlan(in Input) (Plan, error) {
	text := strings.TrimSpace(in.Text)
	hasFile := in.File != nil && in.File.Content != nil

	if text == "" && !hasFile {
		return Plan{}, ErrInvalidInput
	}

	switch in.Modality {
	case models.ModalityText:
		// The text box wins; a file alone is sent as its text content.
		if text != "" {
			return Plan{
				Modality: in.Modality,
				Endpoint: EndpointText,
				Encoding: EncodingJSON,
				Field:    "text",
				Value:    in.Text,
				Source:   snippet(text),
			}, nil
		}
		return Plan{
			Modality: in.Modality,
			Endpoint: EndpointText,
			Encoding: EncodingJSON,
			Field:    "text",
			File:     in.File,
			Source:   in.File.Name,
		}, nil

	case models.ModalityAudio:
		if !hasFile {
			return Plan{}, fmt.Errorf("%w: audio analysis needs an uploaded file", ErrUnsupportedInput)
		}
		return multipartPlan(in.Modality, EndpointAudio, in.File), nil

	case models.ModalityVideo:
		if hasFile {
			return multipartPlan(in.Modality, EndpointVideoFile, in.File), nil
		}
		return Plan{
			Modality: in.Modality,
			Endpoint: EndpointVideoURL,
			Encoding: EncodingJSON,
			Field:    "url",
			Value:    text,
			Source:   text,
		}, nil

	default:
		return Plan{}, fmt.Errorf("%w: unknown modality %q", ErrUnsupportedInput, in.Modality)
	}
}

func multipartPlan(m models.Modality, endpoint string, f *FileInput) Plan {
	return Plan{
		Modality: m,
		Endpoint: endpoint,
		Encoding: EncodingMultipart,
		Field:    "file",
		File:     f,
		Source:   f.Name,
	}
}

func snippet(text string) string {
	if utf8.RuneCountInString(text) <= maxSourceRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxSourceRunes]) + "..."
}
