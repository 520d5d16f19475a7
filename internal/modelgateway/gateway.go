// Package modelgateway is a typed HTTP client to the Ollama-style model
// runtime: text generation, vision analysis, and embedding generation.
// Timeouts, retries, and per-operation concurrency are handled here so
// callers never touch the wire format.
package modelgateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"docingest/internal/config"
	"docingest/internal/observability"
)

// Gateway is a concurrency-bounded HTTP client to the model runtime.
type Gateway struct {
	httpClient *http.Client
	baseURL    string

	generateModel string
	visionModel   string
	embedModel    string
	embedDim      int

	generateTimeout time.Duration
	visionTimeout   time.Duration
	embedTimeout    time.Duration

	maxRetries int
	retryBase  time.Duration

	genSem   *semaphore.Weighted
	visSem   *semaphore.Weighted
	embedSem *semaphore.Weighted

	genLimiter   *rate.Limiter
	visLimiter   *rate.Limiter
	embedLimiter *rate.Limiter
}

// New builds a Gateway from configuration, wiring an otelhttp-instrumented
// client so model-runtime calls participate in the surrounding trace. Each
// operation type is bounded both by an in-flight semaphore and a token-
// bucket rate limiter, per §4.3.
func New(cfg config.GatewayConfig) *Gateway {
	client := observability.NewHTTPClient(&http.Client{})
	return &Gateway{
		httpClient:      client,
		baseURL:         cfg.BaseURL,
		generateModel:   cfg.LLMModel,
		visionModel:     cfg.VisionModel,
		embedModel:      cfg.EmbeddingModel,
		embedDim:        cfg.EmbeddingDim,
		generateTimeout: cfg.GenerateTimeout,
		visionTimeout:   cfg.VisionTimeout,
		embedTimeout:    cfg.EmbedTimeout,
		maxRetries:      cfg.MaxRetries,
		retryBase:       cfg.RetryBaseDelay,
		genSem:          semaphore.NewWeighted(int64(maxInt(1, cfg.MaxConcurrentGen))),
		visSem:          semaphore.NewWeighted(int64(maxInt(1, cfg.MaxConcurrentVis))),
		embedSem:        semaphore.NewWeighted(int64(maxInt(1, cfg.MaxConcurrentEmb))),
		genLimiter:      newLimiter(cfg.RatePerSecondGen, cfg.RateBurst),
		visLimiter:      newLimiter(cfg.RatePerSecondVis, cfg.RateBurst),
		embedLimiter:    newLimiter(cfg.RatePerSecondEmb, cfg.RateBurst),
	}
}

// newLimiter builds a token-bucket limiter bounding sustained call rate,
// independent of the semaphore's in-flight bound. A non-positive rps means
// unlimited, per §4.3's "timeouts and retries" not mandating a rate cap.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// EmbeddingDim reports the advertised dimension D of the configured
// embedding model, used to size degraded zero-vectors.
func (g *Gateway) EmbeddingDim() int { return g.embedDim }

// EmbeddingModelName reports the configured embedding model's name, used to
// key the (chunk_id, model_name) uniqueness constraint in the store.
func (g *Gateway) EmbeddingModelName() string { return g.embedModel }

// GenerateOptions mirrors the Ollama "options" object.
type GenerateOptions struct {
	Temperature   float64 `json:"temperature,omitempty"`
	MaxTokens     int     `json:"max_tokens,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options,omitempty"`
	Images  []string        `json:"images,omitempty"`
}

type generateResponse struct {
	Response      string `json:"response"`
	TotalDuration int64  `json:"total_duration"`
	EvalCount     int    `json:"eval_count"`
}

// PermanentError wraps a 4xx response: retrying it would never succeed.
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("model gateway: permanent error, status %d: %s", e.StatusCode, e.Body)
}

// Generate runs text generation against the LLM model, blocking up to the
// configured generate timeout, retrying transport/5xx failures.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if err := g.genLimiter.Wait(ctx); err != nil {
		return "", err
	}
	if err := g.genSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer g.genSem.Release(1)

	body := generateRequest{Model: g.generateModel, Prompt: prompt, Stream: false, Options: opts}
	var resp generateResponse
	if err := g.postJSONWithRetry(ctx, "/api/generate", body, &resp, g.generateTimeout); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Vision runs image-grounded generation against the vision model.
func (g *Gateway) Vision(ctx context.Context, prompt string, imageBytes []byte, opts GenerateOptions) (string, error) {
	if err := g.visLimiter.Wait(ctx); err != nil {
		return "", err
	}
	if err := g.visSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer g.visSem.Release(1)

	body := generateRequest{
		Model:   g.visionModel,
		Prompt:  prompt,
		Stream:  false,
		Options: opts,
		Images:  []string{base64.StdEncoding.EncodeToString(imageBytes)},
	}
	var resp generateResponse
	if err := g.postJSONWithRetry(ctx, "/api/generate", body, &resp, g.visionTimeout); err != nil {
		return "", err
	}
	return resp.Response, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedResult carries the vector plus whether it is a degraded placeholder.
type EmbedResult struct {
	Vector    []float32
	Degraded  bool
	ModelName string
}

// Embed generates a single embedding vector. On permanent or exhausted-retry
// failure, it returns a zero-vector of the advertised dimension flagged as
// degraded rather than an error, per §4.3.
func (g *Gateway) Embed(ctx context.Context, text string) (EmbedResult, error) {
	if err := g.embedLimiter.Wait(ctx); err != nil {
		return EmbedResult{}, err
	}
	if err := g.embedSem.Acquire(ctx, 1); err != nil {
		return EmbedResult{}, err
	}
	defer g.embedSem.Release(1)

	body := embedRequest{Model: g.embedModel, Prompt: text}
	var resp embedResponse
	err := g.postJSONWithRetry(ctx, "/api/embeddings", body, &resp, g.embedTimeout)
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("embedding call failed, returning degraded vector")
		return EmbedResult{
			Vector:    make([]float32, g.embedDim),
			Degraded:  true,
			ModelName: g.embedModel,
		}, nil
	}
	if len(resp.Embedding) != g.embedDim && g.embedDim > 0 {
		observability.LoggerWithTrace(ctx).Warn().
			Int("got", len(resp.Embedding)).Int("want", g.embedDim).
			Msg("embedding dimension mismatch, padding/truncating")
		resp.Embedding = fitDimension(resp.Embedding, g.embedDim)
	}
	return EmbedResult{Vector: resp.Embedding, ModelName: g.embedModel}, nil
}

func fitDimension(v []float32, d int) []float32 {
	out := make([]float32, d)
	copy(out, v)
	return out
}

// ModelTag describes one entry from GET /api/tags.
type ModelTag struct {
	Name string `json:"name"`
}

type tagsResponse struct {
	Models []ModelTag `json:"models"`
}

// AssertModelsPresent calls GET /api/tags and fails if any of the required
// models are absent, so misconfiguration surfaces at startup rather than
// mid-pipeline.
func (g *Gateway) AssertModelsPresent(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model gateway: tags request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("model gateway: tags request returned %s: %s", resp.Status, string(b))
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("model gateway: decoding tags response: %w", err)
	}
	have := map[string]bool{}
	for _, t := range tags.Models {
		have[t.Name] = true
	}
	for _, want := range []string{g.generateModel, g.visionModel, g.embedModel} {
		if want != "" && !have[want] {
			return fmt.Errorf("model gateway: required model %q not present on runtime", want)
		}
	}
	return nil
}

func (g *Gateway) postJSONWithRetry(ctx context.Context, path string, body any, out any, timeout time.Duration) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("model gateway: encoding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.retryBase * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := g.doPostJSON(cctx, path, payload, out)
		cancel()
		if err == nil {
			return nil
		}

		var perm *PermanentError
		if asPermanent(err, &perm) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("model gateway: exhausted %d retries: %w", g.maxRetries, lastErr)
}

func asPermanent(err error, target **PermanentError) bool {
	pe, ok := err.(*PermanentError)
	if ok {
		*target = pe
	}
	return ok
}

func (g *Gateway) doPostJSON(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 4 {
		b, _ := io.ReadAll(resp.Body)
		return &PermanentError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error, status %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
