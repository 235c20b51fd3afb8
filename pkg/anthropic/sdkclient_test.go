package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points an sdkClient at a local test server.
func newTestClient(baseURL string) *sdkClient {
	return &sdkClient{
		api: sdk.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(baseURL),
		),
	}
}

func messageReply(id, text string, usage map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   id,
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
			"model":       "claude-sonnet-4-5-20250929",
			"stop_reason": "end_turn",
			"usage":       usage,
		})
	}
}

func TestComplete(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		messageReply("msg_test_001", "Hello from test", map[string]any{
			"input_tokens":                10,
			"output_tokens":               5,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     0,
		})(w, r)
	}))
	defer ts.Close()

	reply, err := newTestClient(ts.URL).Complete(context.Background(), Request{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Prompt:    "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_test_001", reply.ID)
	assert.Equal(t, "claude-sonnet-4-5-20250929", reply.Model)
	assert.Equal(t, "end_turn", reply.StopReason)
	assert.Equal(t, "Hello from test", reply.Text)
	assert.Equal(t, int64(10), reply.Usage.InputTokens)
	assert.Equal(t, int64(5), reply.Usage.OutputTokens)

	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.NotContains(t, gotBody, "system")
}

func TestCompleteWithCachedSystemPrompt(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		messageReply("msg_sys", "Acknowledged", map[string]any{
			"input_tokens":                50,
			"output_tokens":               3,
			"cache_creation_input_tokens": 5000,
			"cache_read_input_tokens":     0,
		})(w, r)
	}))
	defer ts.Close()

	temp := 0.5
	reply, err := newTestClient(ts.URL).Complete(context.Background(), Request{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   128,
		System:      "You decide things",
		CacheSystem: true,
		Prompt:      "Ack",
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_sys", reply.ID)
	assert.Equal(t, int64(5000), reply.Usage.CacheWriteTokens)

	system, ok := gotBody["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	block, ok := system[0].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, block, "cache_control")
	assert.InDelta(t, 0.5, gotBody["temperature"], 0.001)
}

func TestCompleteServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"type": "error",
			"error": map[string]any{
				"type":    "api_error",
				"message": "Internal server error",
			},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Complete(context.Background(), Request{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Prompt:    "Hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: complete")
}
