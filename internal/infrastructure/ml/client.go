package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FeedRanker/internal/domain"
	"FeedRanker/internal/ports"
)

// maxErrorBody bounds how much of a failed response is quoted in the error.
const maxErrorBody = 512

// Client talks to the external AI scoring service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.ScoringProvider = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type scoreRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Score asks the service for quality, target roles, skill level, tags and the
// clickbait flag of an article.
func (c *Client) Score(ctx context.Context, article domain.Article) (domain.AIScores, error) {
	if c.endpoint == "" {
		return domain.AIScores{}, fmt.Errorf("ml inference url is not configured")
	}

	payload := scoreRequest{
		ID:          article.ID,
		Title:       article.Title,
		Description: article.Description,
		URL:         article.URL,
	}

	var scores domain.AIScores
	if err := c.post(ctx, "/score", payload, &scores); err != nil {
		return domain.AIScores{}, fmt.Errorf("score article %s: %w", article.ID, err)
	}

	return scores, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
