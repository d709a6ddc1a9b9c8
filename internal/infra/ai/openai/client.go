package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/artifact-age/internal/domain/ai"
)

const (
	defaultModel       = "gpt-4.1"
	defaultMaxTokens   = 1600
	defaultTemperature = float32(0.3)
)

// Options tunes the chat completion request. Zero values pick the defaults.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float32 // nil picks the default
	BaseURL     string
}

type Client struct {
	*openai.Client
	apiKey string
	opts   Options
}

func NewClient(apiKey string, opts Options) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == nil {
		t := defaultTemperature
		opts.Temperature = &t
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), apiKey: apiKey, opts: opts}
}

func (c *Client) Model() string { return c.opts.Model }

// Analyze sends the prompt and the image as one user turn and returns the text answer.
func (c *Client) Analyze(ctx context.Context, in ai.Request) (string, error) {
	if c.apiKey == "" {
		return "", ai.ErrMissingAPIKey
	}

	req := openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: in.Prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    in.ImageDataURI,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.opts.Model) {
		req.MaxCompletionTokens = c.opts.MaxTokens
	} else {
		req.MaxTokens = c.opts.MaxTokens
		req.Temperature = requestTemperature(*c.opts.Temperature)
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// requestTemperature keeps an explicit 0 on the wire. The request field is
// omitempty, so a literal 0 would fall back to the provider default of 1.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify maps provider status codes onto the domain sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ai.ErrUnauthorized, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ai.ErrQuotaExceeded, err)
	default:
		return fmt.Errorf("failed to create chat completion: %w", err)
	}
}
