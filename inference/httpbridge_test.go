package inference_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zoobzio/noetic"
	"github.com/zoobzio/noetic/inference"
)

func TestHTTPBridge_EmbedReturnsNormalizedVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{3, 4}, "index": 0}},
		})
	}))
	defer srv.Close()

	bridge := inference.NewHTTPBridge("test-key", inference.WithBaseURL(srv.URL))
	vec, err := bridge.Embed(t.Context(), inference.EmbedRequest{Model: "m", Text: "hi"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("expected 2 dims, got %d", len(vec))
	}
	// 3,4 normalized is 0.6,0.8
	if diff := vec[0] - 0.6; diff > 0.01 || diff < -0.01 {
		t.Errorf("expected first component ~0.6, got %v", vec[0])
	}
}

func TestHTTPBridge_EmbedUnsupportedTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 2}, "index": 0}},
		})
	}))
	defer srv.Close()

	bridge := inference.NewHTTPBridge("test-key", inference.WithBaseURL(srv.URL))
	dim := 10
	_, err := bridge.Embed(t.Context(), inference.EmbedRequest{Model: "m", Text: "hi", TruncateDim: &dim})
	if noetic.KindOf(err) != noetic.KindUnsupported {
		t.Errorf("expected Unsupported for a truncation larger than the native dim, got %v", err)
	}
}

func TestHTTPBridge_ServerErrorExhaustsRetriesAsTransient(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	bridge := inference.NewHTTPBridge("test-key",
		inference.WithBaseURL(srv.URL),
		inference.WithMaxRetries(2),
	)
	_, err := bridge.Embed(t.Context(), inference.EmbedRequest{Model: "m", Text: "hi"})
	if noetic.KindOf(err) != noetic.KindTransient {
		t.Errorf("expected Transient after exhausting retries, got %v", err)
	}
	if calls < 2 {
		t.Errorf("expected at least 2 attempts, got %d", calls)
	}
}

func TestHTTPBridge_BadRequestIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	bridge := inference.NewHTTPBridge("test-key", inference.WithBaseURL(srv.URL))
	_, err := bridge.Embed(t.Context(), inference.EmbedRequest{Model: "m", Text: "hi"})
	if noetic.KindOf(err) != noetic.KindInvalidInput {
		t.Errorf("expected InvalidInput for a 400, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 attempt for a non-retryable error, got %d", calls)
	}
}

func TestHTTPBridge_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "revised text"}}},
		})
	}))
	defer srv.Close()

	bridge := inference.NewHTTPBridge("test-key", inference.WithBaseURL(srv.URL))
	out, err := bridge.Generate(t.Context(), "m", "prompt", inference.GenerateOptions{Temperature: 0.2, MaxTokens: 100})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if out != "revised text" {
		t.Errorf("expected generated text to round-trip, got %q", out)
	}
}

func TestHTTPBridge_RespectsCallerDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{{"embedding": []float32{1}, "index": 0}}})
	}))
	defer srv.Close()

	bridge := inference.NewHTTPBridge("test-key", inference.WithBaseURL(srv.URL), inference.WithEmbedTimeout(5*time.Millisecond))
	_, err := bridge.Embed(t.Context(), inference.EmbedRequest{Model: "m", Text: "hi"})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}
