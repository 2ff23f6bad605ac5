package analysis

import "errors"

var (
	// ErrInvalidInput means neither a file nor text/URL was supplied.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedInput means the modality cannot take this kind of input.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrAnalysisFailed covers transport errors and non-2xx responses.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrMalformedResponse means the service answered without the expected fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrBusy is returned while another request from the same dashboard is pending.
	ErrBusy = errors.New("analysis already in progress")
	// ErrStale is returned to a request that was superseded before it completed.
	ErrStale = errors.New("analysis superseded")
)

// UserNotice converts any analysis error into the message shown to users.
// Transport details never leave this package through it.
func UserNotice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "Please upload a file or enter a URL"
	case errors.Is(err, ErrUnsupportedInput):
		return "Invalid analysis type or input."
	case errors.Is(err, ErrBusy):
		return "An analysis is already in progress."
	case errors.Is(err, ErrStale):
		return "The analysis was cancelled."
	default:
		return "Could not connect to the service."
	}
}
