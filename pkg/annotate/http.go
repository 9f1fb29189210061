package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrAnnotationService wraps failures reported by the annotation service.
var ErrAnnotationService = errors.New("annotation service error")

// DefaultTimeout bounds a single annotation call when none is configured.
const DefaultTimeout = 10 * time.Second

type annotateRequest struct {
	Text  string `json:"text"`
	Lang  string `json:"lang,omitempty"`
	Model string `json:"model,omitempty"`
}

type annotateResponse struct {
	Sentences []Sentence `json:"sentences"`
}

// HTTPClient talks to a spaCy-style annotation server: it POSTs
// {"text","lang","model"} and expects {"sentences":[...]} back.
type HTTPClient struct {
	Endpoint string
	Lang     string
	Model    string
	// Timeout applies per call on top of ctx. Zero means DefaultTimeout.
	Timeout time.Duration
	Client  *http.Client
}

// NewHTTPClient returns a client for endpoint.
func NewHTTPClient(endpoint, lang, model string) *HTTPClient {
	return &HTTPClient{
		Endpoint: endpoint,
		Lang:     lang,
		Model:    model,
		Timeout:  DefaultTimeout,
		Client:   &http.Client{},
	}
}

// Annotate sends sentence to the service. When the service splits the input
// into several sentences they are merged back into one.
func (c *HTTPClient) Annotate(ctx context.Context, sentence string) (*Sentence, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(annotateRequest{Text: sentence, Lang: c.Lang, Model: c.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("annotation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAnnotationService, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrAnnotationService, err)
	}
	if len(out.Sentences) == 0 {
		return &Sentence{Text: sentence}, nil
	}
	merged := Merge(out.Sentences)
	if merged.Text == "" {
		merged.Text = sentence
	}
	return merged, nil
}

// Entities annotates sentence and returns its entity span texts.
func (c *HTTPClient) Entities(ctx context.Context, sentence string) ([]string, error) {
	s, err := c.Annotate(ctx, sentence)
	if err != nil {
		return nil, err
	}
	return s.EntityTexts(), nil
}
