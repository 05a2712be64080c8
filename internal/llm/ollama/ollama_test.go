package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/llm"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.endpoint != DefaultEndpoint {
		t.Errorf("expected default endpoint, got %s", p.endpoint)
	}
	if p.model != DefaultModel {
		t.Errorf("expected default model, got %s", p.model)
	}
}

func TestNew_TrimsEndpoint(t *testing.T) {
	p, _ := New("http://gpu-box:11434/", "mistral")
	if p.endpoint != "http://gpu-box:11434" {
		t.Errorf("unexpected endpoint %s", p.endpoint)
	}
}

func TestComplete(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(`{"response":"BTC momentum is fading.","done":true,"done_reason":"stop","prompt_eval_count":20,"eval_count":6}`))
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "mistral")
	resp, err := p.Complete(context.Background(), llm.Request{System: "terse", Prompt: "BTC -4.2%", MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Text != "BTC momentum is fading." {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.InputTokens != 20 || resp.OutputTokens != 6 {
		t.Errorf("unexpected usage %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if got.Model != "mistral" || got.System != "terse" || got.Stream {
		t.Errorf("unexpected request %+v", got)
	}
	if got.Options.NumPredict != 100 {
		t.Errorf("expected num_predict 100, got %d", got.Options.NumPredict)
	}
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "")
	_, err := p.Complete(context.Background(), llm.Request{Prompt: "x"})
	if !errors.Is(err, core.ErrLLMFailed) {
		t.Errorf("expected ErrLLMFailed, got %v", err)
	}
}
