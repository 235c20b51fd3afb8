// Package anthropic wraps the official SDK behind a one-shot completion
// interface so callers can be tested against fakes.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client issues single-turn completions against the Anthropic API.
type Client interface {
	Complete(ctx context.Context, req Request) (*Reply, error)
}

// Request is a single user prompt with an optional system prompt.
type Request struct {
	Model     string
	MaxTokens int64

	// System is the system prompt. When CacheSystem is set the prompt is
	// marked for ephemeral caching, which pays off when the same system
	// prompt is reused across a batch.
	System      string
	CacheSystem bool

	Prompt      string
	Temperature *float64
}

// Reply carries the flattened model output.
type Reply struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      Usage
}

// Usage tracks token consumption for one call.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
}

// pricing is input/output USD per million tokens.
var pricing = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-6":            {15.00, 75.00},
}

// Cost estimates the call cost in USD. Unknown models cost zero.
func (u Usage) Cost(model string) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	in := float64(u.InputTokens) / 1e6 * p[0]
	out := float64(u.OutputTokens) / 1e6 * p[1]
	// Cache writes bill at 1.25x input, cache reads at 0.1x.
	write := float64(u.CacheWriteTokens) / 1e6 * p[0] * 1.25
	read := float64(u.CacheReadTokens) / 1e6 * p[0] * 0.1
	return in + out + write + read
}

// LogCost records token usage and estimated cost for one pipeline phase.
func (u Usage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheWriteTokens),
		zap.Int64("cache_read_tokens", u.CacheReadTokens),
		zap.Float64("estimated_cost_usd", u.Cost(model)),
	)
}

type sdkClient struct {
	api sdk.Client
}

// NewClient builds a Client backed by the official SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{api: sdk.NewClient(option.WithAPIKey(apiKey))}
}

func (c *sdkClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		block := sdk.TextBlockParam{Text: req.System}
		if req.CacheSystem {
			block.CacheControl = sdk.NewCacheControlEphemeralParam()
		}
		params.System = []sdk.TextBlockParam{block}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: complete")
	}
	return fromSDKMessage(msg), nil
}

func fromSDKMessage(msg *sdk.Message) *Reply {
	var text string
	for _, b := range msg.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}
	return &Reply{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       text,
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:      msg.Usage.InputTokens,
			OutputTokens:     msg.Usage.OutputTokens,
			CacheWriteTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadTokens:  msg.Usage.CacheReadInputTokens,
		},
	}
}
