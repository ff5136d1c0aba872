package coach

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"compass-api/internal/shared"
)

// ModelConfig points at the hosted model vendor.
type ModelConfig struct {
	URL    string
	APIKey string
	Model  string
}

type Client struct {
	cfg  ModelConfig
	http *http.Client
}

func NewClient(cfg ModelConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: shared.DefaultHTTPTimeout},
	}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
	MaxTokens int       `json:"max_tokens"`
}

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamCompletion sends one chat-completion request and feeds every token
// delta to onDelta as it arrives. The full generated text is returned once
// the model signals completion.
func (c *Client) StreamCompletion(ctx context.Context, messages []Message, onDelta func(delta string) error) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:     c.cfg.Model,
		Messages:  messages,
		Stream:    true,
		MaxTokens: shared.DefaultMaxTokens,
	})
	if err != nil {
		return "", err
	}

	rctx, cancel := context.WithTimeout(ctx, shared.DefaultStreamTimeout)
	defer cancel()

	r, err := http.NewRequestWithContext(rctx, http.MethodPost, c.cfg.URL+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", errors.Join(shared.ErrModelRequest, err)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	res, err := c.http.Do(r)
	if err != nil {
		return "", errors.Join(shared.ErrModelRequest, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", errors.Join(shared.ErrModelStatus, fmt.Errorf("status %d", res.StatusCode))
	}

	var full strings.Builder
	hasDone := false
	reader := bufio.NewScanner(res.Body)

scanner:
	for reader.Scan() {
		select {
		case <-rctx.Done():
			break scanner
		default:
		}

		line := reader.Text()
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		jsonData := strings.TrimPrefix(line, "data: ")
		if jsonData == "[DONE]" {
			hasDone = true
			break
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(jsonData), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				// Downstream is gone; stop reading, keep what we have.
				break scanner
			}
		}
	}

	if err := reader.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return full.String(), errors.Join(shared.ErrModelResponse, err)
	}
	if rctx.Err() != nil {
		return full.String(), errors.Join(shared.ErrModelContext, rctx.Err())
	}
	if !hasDone && full.Len() == 0 {
		return "", errors.New("no response from model")
	}
	return full.String(), nil
}
