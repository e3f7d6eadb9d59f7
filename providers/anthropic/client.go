// Package anthropic implements the Anthropic-style messages backend,
// reached through the unifying proxy endpoint. The Messages API has no JSON
// response-format switch, so in JSON mode the formatting instruction travels
// inside the prompt and the reply is validated by the caller.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ildar2244/advent4/llm"
)

const defaultMaxTokens = 1000

type Config struct {
	// Endpoint is the proxy base URL; the SDK appends /v1/messages.
	Endpoint       string
	APIKey         string
	RequestTimeout time.Duration
}

type Client struct {
	api            anthropicsdk.Client
	requestTimeout time.Duration
}

func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		// Retry policy, if any, belongs to the transport above this layer.
		option.WithMaxRetries(0),
	}
	if endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	return &Client{
		api:            anthropicsdk.NewClient(opts...),
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

	messages, system := toAnthropicMessages(req.Messages)
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(req.Temperature)
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}

	message, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return llm.Result{}, classifyErr(err)
	}

	text := ""
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			text += variant.Text
		}
	}
	if text == "" {
		return llm.Result{}, fmt.Errorf("%w: anthropic: no text content", llm.ErrMalformedResponse)
	}

	return llm.Result{
		Text: text,
		Usage: llm.Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
			TotalTokens:  int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
		Duration: time.Since(start),
	}, nil
}

// toAnthropicMessages splits off the system prompt; the Messages API carries
// it as a top-level parameter rather than a message role.
func toAnthropicMessages(messages []llm.Message) ([]anthropicsdk.MessageParam, string) {
	var out []anthropicsdk.MessageParam
	system := ""
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			out = append(out, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		}
	}
	return out, system
}

func classifyErr(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		return &llm.ProviderError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
	}
	return llm.WrapTransportErr(err)
}
