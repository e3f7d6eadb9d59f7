// Package openai implements the OpenAI-style chat-completions backend,
// reached through the unifying proxy endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/ildar2244/advent4/llm"
)

type Config struct {
	// Endpoint is the proxy base URL including the /v1 suffix.
	Endpoint       string
	APIKey         string
	RequestTimeout time.Duration
}

type Client struct {
	api            *goopenai.Client
	requestTimeout time.Duration
}

func New(cfg Config) *Client {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	apiCfg := goopenai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	apiCfg.BaseURL = endpoint
	return &Client{
		api:            goopenai.NewClientWithConfig(apiCfg),
		requestTimeout: cfg.RequestTimeout,
	}
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	start := time.Now()
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	body := goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.ForceJSON {
		body.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, body)
	if err != nil {
		return llm.Result{}, classifyErr(err)
	}
	if len(resp.Choices) == 0 {
		return llm.Result{}, fmt.Errorf("%w: openai: empty choices", llm.ErrMalformedResponse)
	}

	return llm.Result{
		Text: resp.Choices[0].Message.Content,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Duration: time.Since(start),
	}, nil
}

func toOpenAIMessages(messages []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func classifyErr(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &llm.ProviderError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.ProviderError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return llm.WrapTransportErr(err)
}
