package anthropic

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ildar2244/advent4/llm"
)

func TestChatReturnsTextAndUsage(t *testing.T) {
	var gotPath string
	var gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"msg_01","type":"message","role":"assistant",
			"model":"claude-3-5-haiku-20241022",
			"content":[{"type":"text","text":"4"}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":12,"output_tokens":1}
		}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "test-key"})
	res, err := c.Chat(t.Context(), llm.Request{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []llm.Message{{Role: "user", Content: "What is 2+2?"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "4" {
		t.Fatalf("text = %q, want 4", res.Text)
	}
	if res.Usage.TotalTokens != 13 {
		t.Fatalf("total tokens = %d, want 13", res.Usage.TotalTokens)
	}
	if gotPath != "/v1/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("x-api-key = %q", gotKey)
	}
	if _, ok := gotBody["max_tokens"].(float64); !ok {
		t.Fatalf("max_tokens missing from request: %v", gotBody)
	}
}

func TestChatCarriesSystemPromptSeparately(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"msg_02","type":"message","role":"assistant",
			"model":"claude-3-5-haiku-20241022",
			"content":[{"type":"text","text":"{}"}],
			"usage":{"input_tokens":1,"output_tokens":1}
		}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "k"})
	_, err := c.Chat(t.Context(), llm.Request{
		Model: "claude-3-5-haiku-20241022",
		Messages: []llm.Message{
			{Role: "system", Content: "answer as JSON"},
			{Role: "user", Content: "hi"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotBody["system"] == nil {
		t.Fatal("system prompt should be a top-level parameter")
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want only the user turn", msgs)
	}
}

func TestChatMapsRemoteErrorToProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad request"}}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "k"})
	_, err := c.Chat(t.Context(), llm.Request{Model: "claude-3-5-haiku-20241022", Messages: []llm.Message{{Role: "user", Content: "hi"}}})
	var provErr *llm.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if provErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", provErr.StatusCode)
	}
}

func TestChatMapsMissingTextToMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"msg_03","type":"message","role":"assistant",
			"model":"claude-3-5-haiku-20241022",
			"content":[],
			"usage":{"input_tokens":1,"output_tokens":0}
		}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "k"})
	_, err := c.Chat(t.Context(), llm.Request{Model: "claude-3-5-haiku-20241022", Messages: []llm.Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, llm.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestChatTimeoutMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "k", RequestTimeout: 20 * time.Millisecond})
	_, err := c.Chat(t.Context(), llm.Request{Model: "claude-3-5-haiku-20241022", Messages: []llm.Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
