package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "http://localhost:9090/v1"
	defaultTimeout = 15 * time.Second
)

// Annotator provides NLP annotations for sentences. Implementations must be
// safe for concurrent use; the pipeline treats annotations as read-only.
type Annotator interface {
	Annotate(ctx context.Context, sentence string) (*Annotation, error)
}

// Client fetches annotations from the upstream NLP service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a new NLP annotation client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: defaultBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type annotateRequest struct {
	Sentence string `json:"sentence"`
}

// Annotate fetches the annotation for a single sentence.
func (c *Client) Annotate(ctx context.Context, sentence string) (*Annotation, error) {
	reqBody := annotateRequest{Sentence: sentence}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/annotate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("annotation service error (status %d): %s", resp.StatusCode, string(body))
	}

	var ann Annotation
	if err := json.Unmarshal(body, &ann); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &ann, nil
}
