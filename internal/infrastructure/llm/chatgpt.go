package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FeedRanker/internal/config"
	"FeedRanker/internal/domain"
	"FeedRanker/internal/ports"
)

const defaultSystemPrompt = `You grade technical articles for a developer news feed.
Reply with a single JSON object and nothing else:
{"qualityScore": 0-10, "targetRoles": [{"role": "FRONTEND|BACKEND|DEVOPS|MOBILE|DATA|SECURITY", "weight": 0-1}],
 "skillLevel": "BEGINNER|INTERMEDIATE|ADVANCED", "tags": ["lowercase topic"], "isClickbait": true|false}`

// ChatGPTClient implements ports.ScoringProvider backed by OpenAI-compatible chat APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.ScoringProvider = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Score asks the model to grade the article and parses its JSON verdict.
func (c *ChatGPTClient) Score(ctx context.Context, article domain.Article) (domain.AIScores, error) {
	if c == nil {
		return domain.AIScores{}, fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.AIScores{}, fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": articlePrompt(article)},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return domain.AIScores{}, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.AIScores{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AIScores{}, fmt.Errorf("score article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.AIScores{}, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.AIScores{}, fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return domain.AIScores{}, fmt.Errorf("chatgpt returned no choices")
	}

	return parseVerdict(parsed.Choices[0].Message.Content)
}

// parseVerdict tolerates prose or code fences around the JSON object.
func parseVerdict(content string) (domain.AIScores, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end < start {
		return domain.AIScores{}, fmt.Errorf("no json object in model reply")
	}

	var scores domain.AIScores
	if err := json.Unmarshal([]byte(content[start:end+1]), &scores); err != nil {
		return domain.AIScores{}, fmt.Errorf("parse model reply: %w", err)
	}
	return scores, nil
}

func articlePrompt(a domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", a.Title)
	if a.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", a.URL)
	}
	fmt.Fprintf(&b, "Description: %s\n", a.Description)
	return b.String()
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}
