package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Config holds the vision service configuration.
type Config struct {
	// BaseURL is the URL of the vision service, e.g. https://vision.example.com
	BaseURL string
	// APIKey authenticates requests, sent as a bearer token.
	APIKey string
	// Timeout is the HTTP timeout for vision requests.
	Timeout time.Duration
}

// Client calls the vision service over JSON HTTP.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a vision service client.
func NewClient(config *Config) (*Client, error) {
	if config == nil || config.BaseURL == "" {
		return nil, errors.New("vision base url is required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type analyzeRequest struct {
	ImageURL string `json:"imageUrl"`
	PhotoID  string `json:"photoId"`
}

type reembedRequest struct {
	ImageURL string `json:"imageUrl"`
	PhotoID  string `json:"photoId"`
}

type reembedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// AnalyzeImage captions, tags and embeds the image behind imageURL.
// A response that cannot be parsed is treated as an empty analysis: the
// caller keeps the photo pending and a later cycle retries.
func (c *Client) AnalyzeImage(ctx context.Context, imageURL, photoUID string) (*Analysis, error) {
	body, err := c.post(ctx, "/analyze-image", &analyzeRequest{
		ImageURL: imageURL,
		PhotoID:  photoUID,
	})
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{}
	if err := json.Unmarshal(body, analysis); err != nil {
		slog.Warn("malformed analyze-image response", "photo", photoUID, "error", err)
		return &Analysis{}, nil
	}
	return analysis, nil
}

// Reembed regenerates the embedding for an already analyzed image.
func (c *Client) Reembed(ctx context.Context, imageURL, photoUID string) ([]float32, error) {
	body, err := c.post(ctx, "/reembed", &reembedRequest{
		ImageURL: imageURL,
		PhotoID:  photoUID,
	})
	if err != nil {
		return nil, err
	}

	resp := &reembedResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		slog.Warn("malformed reembed response", "photo", photoUID, "error", err)
		return nil, nil
	}
	return resp.Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "vision request %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("vision request %s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read vision response")
	}
	return body, nil
}
