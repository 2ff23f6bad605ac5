package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/factchecker/veritas/internal/config"
	"golang.org/x/time/rate"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Requester sends a planned request and returns the raw response body.
type Requester interface {
	Send(ctx context.Context, plan Plan) ([]byte, error)
}

// Client talks to the external detection service over HTTP.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxUploadBytes int64
}

// NewClient creates a client for the configured service.
func NewClient(cfg *config.AnalysisConfig) *Client {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		limiter:        limiter,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Send issues exactly one POST for plan. Any transport failure or non-2xx
// status is reported as ErrAnalysisFailed.
func (c *Client) Send(ctx context.Context, plan Plan) ([]byte, error) {
	body, contentType, err := c.encode(plan)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+plan.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrAnalysisFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrAnalysisFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrAnalysisFailed, resp.StatusCode)
	}

	return respBody, nil
}

func (c *Client) encode(plan Plan) (io.Reader, string, error) {
	switch plan.Encoding {
	case EncodingMultipart:
		return c.encodeMultipart(plan)
	default:
		value := plan.Value
		if plan.File != nil {
			content, err := c.readFile(plan.File)
			if err != nil {
				return nil, "", err
			}
			value = string(content)
		}
		bodyBytes, err := json.Marshal(map[string]string{plan.Field: value})
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request: %w", err)
		}
		return bytes.NewReader(bodyBytes), "application/json", nil
	}
}

func (c *Client) encodeMultipart(plan Plan) (io.Reader, string, error) {
	content, err := c.readFile(plan.File)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(plan.Field, plan.File.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// readFile reads the upload, rejecting files over the configured limit.
func (c *Client) readFile(f *FileInput) ([]byte, error) {
	r := f.Content
	if c.maxUploadBytes > 0 {
		r = io.LimitReader(r, c.maxUploadBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidInput, f.Name, err)
	}
	if c.maxUploadBytes > 0 && int64(len(content)) > c.maxUploadBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidInput, f.Name, c.maxUploadBytes)
	}
	return content, nil
}
