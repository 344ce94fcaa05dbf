// Package ai wraps the text-completion service Keeper uses for the ask
// command.
package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
)

// Client calls a completion endpoint. The endpoint, key, and model are
// configuration; the rest of the bot only sees Complete.
type Client struct {
	HTTP  *http.Client
	URL   string
	Key   string
	Model string
}

// New returns a client with a bounded request timeout.
func New(url, key, model string) *Client {
	return &Client{
		HTTP:  &http.Client{Timeout: 30 * time.Second},
		URL:   url,
		Key:   key,
		Model: model,
	}
}

type request struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type response struct {
	Text  string `json:"text"`
	Error string `json:"error,omitzero"`
}

// Complete sends a prompt and returns the completion text. Any failure is
// returned as an error; callers fold it into a user-visible fallback.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	b, err := json.Marshal(&request{Model: c.Model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("couldn't encode completion request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("couldn't create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Key)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("couldn't read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion service returned %s", resp.Status)
	}
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("couldn't decode completion response: %w", err)
	}
	if r.Error != "" {
		return "", fmt.Errorf("completion service error: %s", r.Error)
	}
	return r.Text, nil
}
