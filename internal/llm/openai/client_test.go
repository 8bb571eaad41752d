package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joseph-ayodele/refund-audit/internal/llm"
)

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(Config{}, nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey got %v", err)
	}
}

func TestCompleteSendsImageAndReadsContent(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" {\"items\":[]} "}}],
			"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	out, err := c.Complete(context.Background(), "find items", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"items":[]}` {
		t.Fatalf("expected trimmed content got %q", out)
	}
	if body["model"] != DefaultModel {
		t.Fatalf("expected model %s got %v", DefaultModel, body["model"])
	}
	if body["max_tokens"] != float64(DefaultMaxTokens) {
		t.Fatalf("expected max_tokens %d got %v", DefaultMaxTokens, body["max_tokens"])
	}
	raw, _ := json.Marshal(body["messages"])
	if !strings.Contains(string(raw), "data:image/png;base64,AAAA") {
		t.Fatalf("expected image part in messages got %s", raw)
	}
}

func TestCompleteRateLimitIsQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Complete(context.Background(), "p", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !llm.IsQuotaError(err) {
		t.Fatalf("expected quota error got %v", err)
	}
}
