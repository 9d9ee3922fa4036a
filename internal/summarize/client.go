// Package summarize wraps the LLM provider: it builds a constrained prompt
// from a transcript, invokes the model once, and defensively parses the
// model's JSON output into structured note content.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autonote-app/autonote/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the chat model used for summarization.
const DefaultModel = openai.GPT4oMini

// ChatAPI defines the interface for a single-shot chat completion.
type ChatAPI interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client turns transcripts into structured summaries.
type Client struct {
	api ChatAPI
}

// Result is the structured output of a summarization call. ActionItems holds
// the model's study topics.
type Result struct {
	Title         string
	Summary       string
	KeyPoints     []string
	ActionItems   []string
	TimedKeywords []domain.TimedKeyword
}

// OpenAIAdapter implements ChatAPI over the OpenAI chat completions API.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

// NewOpenAIAdapter creates the adapter.
func NewOpenAIAdapter(apiKey, model string) *OpenAIAdapter {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Complete sends the prompt as a single user message and returns the raw
// response text.
func (a *OpenAIAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Config holds construction parameters for Client.
type Config struct {
	APIKey string
	Model  string
}

// NewClient creates a summarization client. A missing API key is a
// configuration error, reported before any network call is made.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.ErrMissingSummarizationKey
	}
	return &Client{api: NewOpenAIAdapter(cfg.APIKey, cfg.Model)}, nil
}

// NewClientWithAPI creates a Client over an explicit ChatAPI (for testing).
func NewClientWithAPI(api ChatAPI) *Client {
	return &Client{api: api}
}

// Summarize invokes the model once and parses its output. A malformed model
// response degrades to fallback content instead of returning an error; only
// transport/provider failures are surfaced, and the orchestrator treats even
// those as non-fatal.
func (c *Client) Summarize(ctx context.Context, transcript string, timeline []domain.WordTimestamp) (*Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.New("transcript is empty")
	}

	raw, err := c.api.Complete(ctx, BuildPrompt(transcript))
	if err != nil {
		return nil, fmt.Errorf("summarization request failed: %w", err)
	}

	return ParseModelOutput(raw), nil
}
