package modelclient

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"

	"github.com/forkyai/forky/internal/forkyerr"
	"github.com/forkyai/forky/internal/types"
)

// AnthropicClient implements ModelClient against the Anthropic Messages API.
type AnthropicClient struct {
	client      anthropic.Client
	maxTokens   int64
	callTimeout time.Duration
	breaker     *breaker
}

// AnthropicOption configures an AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithMaxTokens overrides the default max_tokens on every completion.
func WithMaxTokens(n int64) AnthropicOption {
	return func(c *AnthropicClient) { c.maxTokens = n }
}

// WithCallTimeout bounds every individual Complete/Stream call; on expiry
// the call returns a ModelTimeout error (spec §7) and commits no node.
func WithCallTimeout(d time.Duration) AnthropicOption {
	return func(c *AnthropicClient) { c.callTimeout = d }
}

// NewAnthropicClient builds a ModelClient backed by the Anthropic API. apiKey
// may be empty to fall back to the ANTHROPIC_API_KEY environment variable,
// matching anthropic-sdk-go's own default client construction.
func NewAnthropicClient(apiKey string, opts ...AnthropicOption) *AnthropicClient {
	var clientOpts []option.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	c := &AnthropicClient{
		client:      anthropic.NewClient(clientOpts...),
		maxTokens:   4096,
		callTimeout: 60 * time.Second,
		breaker:     newBreaker("anthropic"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func toAnthropicMessages(messages []Message) (system string, out []anthropic.MessageParam) {
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case types.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case types.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, out
}

func (c *AnthropicClient) params(messages []Message, model string) anthropic.MessageNewParams {
	system, msgs := toAnthropicMessages(messages)
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		p.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return p
}

// classifyErr maps a raw SDK error onto the spec §7 model error kinds and
// records the outcome against the circuit breaker.
func (c *AnthropicClient) classifyErr(ctx context.Context, err error) error {
	if err == nil {
		c.breaker.RecordSuccess()
		return nil
	}
	c.breaker.RecordFailure()
	if ctx.Err() != nil {
		return forkyerr.New(forkyerr.KindModelTimeout, "modelclient.complete", ctx.Err())
	}
	if c.breaker.State() == circuitOpen {
		return forkyerr.Newf(forkyerr.KindModelUnavailable, "modelclient.complete", "%s", errCircuitOpenMsg)
	}
	return forkyerr.New(forkyerr.KindModelError, "modelclient.complete", err)
}

// Complete implements ModelClient.
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	if !c.breaker.Allow() {
		return "", forkyerr.Newf(forkyerr.KindModelUnavailable, "modelclient.complete", "%s", errCircuitOpenMsg)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var text string
	op := func() error {
		msg, err := c.client.Messages.New(ctx, c.params(messages, model))
		if err != nil {
			return err
		}
		var out string
		for _, block := range msg.Content {
			if block.Type == "text" {
				out += block.Text
			}
		}
		text = out
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	err := backoff.Retry(op, bo)
	return text, c.classifyErr(ctx, err)
}

// Stream implements ModelClient. The channel closes after the final chunk.
func (c *AnthropicClient) Stream(ctx context.Context, messages []Message, model string) (<-chan types.ChatChunk, error) {
	if !c.breaker.Allow() {
		return nil, forkyerr.Newf(forkyerr.KindModelUnavailable, "modelclient.stream", "%s", errCircuitOpenMsg)
	}

	streamCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	stream := c.client.Messages.NewStreaming(streamCtx, c.params(messages, model))

	out := make(chan types.ChatChunk)
	go func() {
		defer cancel()
		defer close(out)
		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			if delta.Delta.Text != "" {
				out <- types.ChatChunk{Text: delta.Delta.Text}
			}
		}
		if err := stream.Err(); err != nil {
			out <- types.ChatChunk{Err: c.classifyErr(streamCtx, err), Done: true}
			return
		}
		c.breaker.RecordSuccess()
		out <- types.ChatChunk{Done: true}
	}()
	return out, nil
}

// AvailableModels implements ModelClient with the set of models this SDK
// version is known to support; the Anthropic API has no list-models call
// for the Messages API at the time of writing.
func (c *AnthropicClient) AvailableModels(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{
		{ID: string(anthropic.ModelClaudeOpus4_5), Name: "Claude Opus 4.5"},
		{ID: string(anthropic.ModelClaudeSonnet4_5), Name: "Claude Sonnet 4.5"},
		{ID: string(anthropic.ModelClaudeHaiku4_5), Name: "Claude Haiku 4.5"},
	}, nil
}

var _ ModelClient = (*AnthropicClient)(nil)
