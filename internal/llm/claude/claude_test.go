package claude

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("", "model")
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "RELI is breaking out on volume."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 42, "output_tokens": 9}
		}`))
	}))
	defer srv.Close()

	p, err := New("test-key", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), llm.Request{System: "be brief", Prompt: "RELI +7.5%"})
	require.NoError(t, err)

	assert.Equal(t, "RELI is breaking out on volume.", resp.Text)
	assert.Equal(t, 42, resp.InputTokens)
	assert.Equal(t, 9, resp.OutputTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, "claude-test", got["model"])
	assert.EqualValues(t, llm.DefaultMaxTokens, got["max_tokens"])
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	p, err := New("k", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), llm.Request{Prompt: "x"})
	assert.True(t, errors.Is(err, core.ErrLLMFailed))
}
