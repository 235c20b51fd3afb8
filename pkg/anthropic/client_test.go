package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
)

func TestUsageCostHaiku(t *testing.T) {
	u := Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 0.80+4.00, u.Cost("claude-haiku-4-5-20251001"), 0.0001)
}

func TestUsageCostWithCache(t *testing.T) {
	u := Usage{
		InputTokens:      100_000,
		OutputTokens:     10_000,
		CacheWriteTokens: 50_000,
		CacheReadTokens:  200_000,
	}
	// sonnet: 3.00 in / 15.00 out, writes at 1.25x, reads at 0.1x.
	want := 0.1*3.00 + 0.01*15.00 + 0.05*3.00*1.25 + 0.2*3.00*0.1
	assert.InDelta(t, want, u.Cost("claude-sonnet-4-5-20250929"), 0.0001)
}

func TestUsageCostUnknownModel(t *testing.T) {
	u := Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.Zero(t, u.Cost("some-other-model"))
}

func TestUsageLogCostDoesNotPanic(t *testing.T) {
	Usage{InputTokens: 100, OutputTokens: 50}.LogCost("claude-haiku-4-5-20251001", "verify_website")
}

func TestFromSDKMessageJoinsTextBlocks(t *testing.T) {
	msg := &sdk.Message{
		ID:         "msg_1",
		Model:      "claude-haiku-4-5-20251001",
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "part one "},
			{Type: "tool_use"},
			{Type: "text", Text: "part two"},
		},
		Usage: sdk.Usage{
			InputTokens:              12,
			OutputTokens:             7,
			CacheCreationInputTokens: 3,
			CacheReadInputTokens:     4,
		},
	}

	reply := fromSDKMessage(msg)
	assert.Equal(t, "msg_1", reply.ID)
	assert.Equal(t, "part one part two", reply.Text)
	assert.Equal(t, "end_turn", reply.StopReason)
	assert.Equal(t, int64(12), reply.Usage.InputTokens)
	assert.Equal(t, int64(7), reply.Usage.OutputTokens)
	assert.Equal(t, int64(3), reply.Usage.CacheWriteTokens)
	assert.Equal(t, int64(4), reply.Usage.CacheReadTokens)
}

func TestFromSDKMessageEmptyContent(t *testing.T) {
	reply := fromSDKMessage(&sdk.Message{ID: "msg_empty"})
	assert.Empty(t, reply.Text)
}

func TestNewClientReturnsNonNil(t *testing.T) {
	assert.NotNil(t, NewClient("test-key"))
}
