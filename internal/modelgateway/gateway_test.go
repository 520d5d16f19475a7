package modelgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"docingest/internal/config"
)

func testConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:          baseURL,
		LLMModel:         "llama3",
		VisionModel:      "llava",
		EmbeddingModel:   "nomic-embed-text",
		EmbeddingDim:     4,
		GenerateTimeout:  time.Second,
		VisionTimeout:    time.Second,
		EmbedTimeout:     time.Second,
		MaxRetries:       2,
		RetryBaseDelay:   time.Millisecond,
		MaxConcurrentGen: 2,
		MaxConcurrentVis: 2,
		MaxConcurrentEmb: 2,
	}
}

func TestEmbedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 2, 3, 4}})
	}))
	defer srv.Close()

	gw := New(testConfig(srv.URL))
	res, err := gw.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Degraded {
		t.Fatalf("expected non-degraded result")
	}
	if len(res.Vector) != 4 {
		t.Fatalf("expected vector of length 4, got %d", len(res.Vector))
	}
}

func TestEmbedDegradesOnPermanentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	gw := New(testConfig(srv.URL))
	res, err := gw.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected degraded result, not error: %v", err)
	}
	if !res.Degraded {
		t.Fatalf("expected degraded result")
	}
	if len(res.Vector) != 4 {
		t.Fatalf("expected zero-vector of length 4, got %d", len(res.Vector))
	}
	for _, v := range res.Vector {
		if v != 0 {
			t.Fatalf("expected all-zero degraded vector, got %v", res.Vector)
		}
	}
}

func TestEmbedRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 1, 1, 1}})
	}))
	defer srv.Close()

	gw := New(testConfig(srv.URL))
	res, err := gw.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Degraded {
		t.Fatalf("expected eventual success, not degraded")
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls (2 failures + 1 success), got %d", calls)
	}
}

func TestGenerateSurfacesPermanentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gw := New(testConfig(srv.URL))
	_, err := gw.Generate(context.Background(), "hi", GenerateOptions{})
	if err == nil {
		t.Fatalf("expected permanent error")
	}
}

func TestAssertModelsPresent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tagsResponse{Models: []ModelTag{
			{Name: "llama3"}, {Name: "llava"}, {Name: "nomic-embed-text"},
		}})
	}))
	defer srv.Close()

	gw := New(testConfig(srv.URL))
	if err := gw.AssertModelsPresent(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbedRespectsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 2, 3, 4}})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RatePerSecondEmb = 5
	cfg.RateBurst = 1
	gw := New(cfg)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := gw.Embed(context.Background(), "hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Burst 1 at 5/s: the 2nd and 3rd calls each wait ~200ms, so 3 calls take
	// at least ~400ms; a correctly-unbounded call path finishes in microseconds.
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Fatalf("expected rate limiting to slow repeated calls, took %v", elapsed)
	}
}

func TestAssertModelsPresentMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tagsResponse{Models: []ModelTag{{Name: "llama3"}}})
	}))
	defer srv.Close()

	gw := New(testConfig(srv.URL))
	if err := gw.AssertModelsPresent(context.Background()); err == nil {
		t.Fatalf("expected error for missing model")
	}
}
